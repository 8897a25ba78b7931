package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <remote-path> <local-path>",
	Short: "Download a file from the server",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

func runGet(_ *cobra.Command, args []string) error {
	remotePath, localPath := args[0], args[1]

	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer out.Close()

	n, err := download(c, remotePath, out)
	if err != nil {
		return err
	}
	fmt.Printf("downloaded %d bytes to %s\n", n, localPath)
	return nil
}
