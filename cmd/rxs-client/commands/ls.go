package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [shell command]",
	Short: "Run a shell command on the server and print its captured output",
	Args:  cobra.ArbitraryArgs,
	RunE:  runLs,
}

func runLs(_ *cobra.Command, args []string) error {
	cmdLine := "ls -la"
	if len(args) > 0 {
		cmdLine = joinArgs(args)
	}

	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()

	remotePath, err := c.Ls(cmdLine)
	if err != nil {
		return fmt.Errorf("ls: %w", err)
	}

	if _, err := download(c, remotePath, os.Stdout); err != nil {
		return err
	}
	return nil
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
