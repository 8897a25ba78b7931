// Package commands implements the rxs-client CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pfagner/rxs/internal/client"
	"github.com/pfagner/rxs/internal/cliutil"
)

var (
	// Version, Commit, and Date are injected at build time via ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	addr     string
	user     string
	password string
	encoder  bool
)

var rootCmd = &cobra.Command{
	Use:   "rxs-client",
	Short: "RXS remote exchange client",
	Long: `rxs-client connects to an rxs-server control socket and drives
its filesystem and shell command-capture operations: list a remote
directory, push or pull a file, or run an interactive session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "localhost:8721", "rxs-server address (host:port)")
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "username (prompted if omitted)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "password (prompted if omitted)")
	rootCmd.PersistentFlags().BoolVarP(&encoder, "encoder", "e", false, "negotiate encoder mode for this session")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Exit prints an error to stderr and exits with status 1.
func Exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// connect dials addr and authenticates, prompting interactively for
// any credential not supplied on the command line.
func connect() (*client.Client, error) {
	if user == "" {
		u, err := cliutil.InputRequired("Username")
		if err != nil {
			return nil, err
		}
		user = u
	}
	if password == "" {
		p, err := cliutil.Password("Password")
		if err != nil {
			return nil, err
		}
		password = p
	}

	c, err := client.Dial(addr)
	if err != nil {
		return nil, err
	}
	if err := c.Authenticate(user, password, encoder); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return c, nil
}
