package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running rxs-server daemon",
	RunE:  runStop,
}

func runStop(_ *cobra.Command, _ []string) error {
	dir, err := stateDir()
	if err != nil {
		return err
	}
	pidPath := filepath.Join(dir, "rxs-server.pid")

	pid, running := readPID(pidPath)
	if !running {
		return fmt.Errorf("rxs-server is not running")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}

	for i := 0; i < 50; i++ {
		if _, stillRunning := readPID(pidPath); !stillRunning {
			fmt.Println("rxs-server stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("rxs-server did not stop within 5s; consider sending SIGKILL to PID %d", pid)
}
