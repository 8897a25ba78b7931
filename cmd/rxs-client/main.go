// Command rxs-client drives filesystem and shell command-capture
// operations against an rxs-server.
package main

import (
	"fmt"
	"os"

	"github.com/pfagner/rxs/cmd/rxs-client/commands"
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
