package analysis

import (
	"sync"

	"github.com/kibitz-chess/kibitz/internal/model"
)

// subscriberBufferSize is the channel buffer for each progress subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Event is one progress update from a running analysis: the result for a
// single position, tagged with its index in the submitted batch.
type Event struct {
	Index  int                    `json:"index"`
	Result model.EvaluationResult `json:"result"`
}

// Broker manages per-analysis progress streaming to subscribers.
// It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after an analysis finishes) receive a closed channel instead of
// blocking forever. Each marker is a few bytes, which is acceptable for the
// expected analysis volume.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*topic
}

type topic struct {
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBroker creates a new progress broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*topic),
	}
}

// Subscribe returns a channel that receives progress events for the given
// analysis and an unsubscribe function. If the analysis has already finished
// (Close was called), the returned channel is immediately closed.
func (b *Broker) Subscribe(analysisID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[analysisID]
	if !ok {
		t = &topic{subs: make(map[int]chan Event)}
		b.topics[analysisID] = t
	}

	ch := make(chan Event, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends a progress event to all subscribers of the given analysis.
// Events are dropped for subscribers whose buffers are full.
func (b *Broker) Publish(analysisID string, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[analysisID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// Drop event for slow subscribers to avoid blocking evaluation.
		}
	}
}

// Close signals that no more events will be published for the given analysis.
// All subscriber channels are closed and future Subscribe calls return a
// closed channel.
func (b *Broker) Close(analysisID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[analysisID]
	if !ok {
		// Create a closed marker so late subscribers get a closed channel.
		b.topics[analysisID] = &topic{subs: make(map[int]chan Event), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
