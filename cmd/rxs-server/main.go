// Command rxs-server runs the RXS remote exchange server.
package main

import (
	"fmt"
	"os"

	"github.com/pfagner/rxs/cmd/rxs-server/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
