package main

import "github.com/kibitz-chess/kibitz/internal/cli"

func main() {
	cli.Execute()
}
