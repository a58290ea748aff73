package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kibitz-chess/kibitz/internal/model"

	_ "modernc.org/sqlite"
)

const createAnalysesTable = `
CREATE TABLE IF NOT EXISTS analyses (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    depth       INTEGER NOT NULL,
    positions   TEXT NOT NULL,
    results     TEXT,
    error       TEXT,
    duration_ms INTEGER,
    created_at  DATETIME NOT NULL,
    started_at  DATETIME,
    finished_at DATETIME
)`

// ErrNotFound is returned when an analysis is not found.
var ErrNotFound = errors.New("analysis not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createAnalysesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create analyses table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAnalysis inserts a new analysis record.
func (s *SQLiteStore) CreateAnalysis(ctx context.Context, a *model.Analysis) error {
	positions, err := json.Marshal(a.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	results, err := marshalResults(a.Results)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (
			id, status, depth, positions, results, error,
			duration_ms, created_at, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Status, a.Depth, string(positions), results, a.Error,
		a.DurationMS, a.CreatedAt, a.StartedAt, a.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetAnalysis retrieves an analysis by ID.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, depth, positions, results, error,
			duration_ms, created_at, started_at, finished_at
		FROM analyses WHERE id = ?`, id,
	)
	a, err := scanAnalysis(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns a paginated list of analyses ordered by created_at DESC,
// along with the total count of all analyses.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, limit, offset int) ([]*model.Analysis, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM analyses").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, status, depth, positions, results, error,
			duration_ms, created_at, started_at, finished_at
		FROM analyses ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate analyses: %w", err)
	}

	return analyses, total, nil
}

// UpdateAnalysisStatus moves an analysis to a new status, enforcing the
// transition table. Entering running stamps started_at; terminal statuses
// stamp finished_at.
func (s *SQLiteStore) UpdateAnalysisStatus(ctx context.Context, id, status string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM analyses WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read analysis status: %w", err)
	}
	if !model.ValidTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	switch status {
	case model.StatusRunning:
		_, err = tx.ExecContext(ctx,
			"UPDATE analyses SET status = ?, started_at = ? WHERE id = ?",
			status, time.Now().UTC(), id,
		)
	case model.StatusCompleted, model.StatusFailed:
		_, err = tx.ExecContext(ctx,
			"UPDATE analyses SET status = ?, finished_at = ? WHERE id = ?",
			status, time.Now().UTC(), id,
		)
	default:
		_, err = tx.ExecContext(ctx,
			"UPDATE analyses SET status = ? WHERE id = ?",
			status, id,
		)
	}
	if err != nil {
		return fmt.Errorf("update analysis status: %w", err)
	}

	return tx.Commit()
}

// UpdateAnalysis writes an analysis's mutable fields: status, results,
// error, duration, and timestamps. Status changes go through the same
// transition table as UpdateAnalysisStatus.
func (s *SQLiteStore) UpdateAnalysis(ctx context.Context, a *model.Analysis) error {
	results, err := marshalResults(a.Results)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM analyses WHERE id = ?", a.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read analysis status: %w", err)
	}
	if current != a.Status && !model.ValidTransition(current, a.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, a.Status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE analyses SET
			status = ?, results = ?, error = ?, duration_ms = ?,
			started_at = COALESCE(?, started_at), finished_at = ?
		WHERE id = ?`,
		a.Status, results, a.Error, a.DurationMS,
		a.StartedAt, a.FinishedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}

	return tx.Commit()
}

// GetAnalysisStats returns aggregate statistics over all analyses.
func (s *SQLiteStore) GetAnalysisStats(ctx context.Context) (*AnalysisStats, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	stats := &AnalysisStats{CountByStatus: make(map[string]int)}

	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(json_array_length(positions)), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM analyses`,
	).Scan(&stats.Total, &stats.PositionsTotal, &stats.AvgDurationMS)
	if err != nil {
		return nil, fmt.Errorf("aggregate analyses: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT status, COUNT(*) FROM analyses GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.CountByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return stats, nil
}

// marshalResults encodes results as JSON, or NULL when none exist yet.
func marshalResults(results []model.EvaluationResult) (any, error) {
	if results == nil {
		return nil, nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}

// scanAnalysis reads one analysis row via the given scan function, decoding
// the JSON position and result columns.
func scanAnalysis(scan func(...any) error) (*model.Analysis, error) {
	a := &model.Analysis{}
	var positions string
	var results sql.NullString

	if err := scan(
		&a.ID, &a.Status, &a.Depth, &positions, &results, &a.Error,
		&a.DurationMS, &a.CreatedAt, &a.StartedAt, &a.FinishedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(positions), &a.Positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	if results.Valid {
		if err := json.Unmarshal([]byte(results.String), &a.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	return a, nil
}
