package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <local-path> <remote-path>",
	Short: "Upload a file to the server",
	Args:  cobra.ExactArgs(2),
	RunE:  runPut,
}

func runPut(_ *cobra.Command, args []string) error {
	localPath, remotePath := args[0], args[1]

	in, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer in.Close()

	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := upload(c, remotePath, in)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %d bytes to %s\n", n, remotePath)
	return nil
}
