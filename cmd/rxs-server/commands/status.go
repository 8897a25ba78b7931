package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether rxs-server is running",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	dir, err := stateDir()
	if err != nil {
		return err
	}
	pidPath := filepath.Join(dir, "rxs-server.pid")

	pid, running := readPID(pidPath)
	if !running {
		fmt.Println("rxs-server is not running")
		return nil
	}
	fmt.Printf("rxs-server is running (PID %d)\n", pid)
	return nil
}
