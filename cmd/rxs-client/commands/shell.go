package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfagner/rxs/internal/cliutil"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session against the server",
	RunE:  runShell,
}

func runShell(_ *cobra.Command, _ []string) error {
	c, err := connect()
	if err != nil {
		return err
	}
	defer c.Close()

	cwd, err := c.Getcwd()
	if err != nil {
		return fmt.Errorf("getcwd: %w", err)
	}
	fmt.Printf("connected to %s as %s, cwd %s\n", addr, user, cwd)
	fmt.Println("type help for a list of commands")

	reader := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("rxs> ")
		if !reader.Scan() {
			break
		}
		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "exit", "quit":
			return nil
		case "pwd":
			cwd, err := c.Getcwd()
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			fmt.Println(cwd)
		case "cd":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: cd <dir>")
				continue
			}
			if err := c.Chdir(fields[1]); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		case "mkdir":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: mkdir <dir>")
				continue
			}
			if err := c.MkdirAll(fields[1], 0o755); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		case "rm":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: rm <path>")
				continue
			}
			choice, err := cliutil.Select(fmt.Sprintf("remove %s?", fields[1]), []string{"no", "yes"})
			if err != nil {
				if cliutil.IsAborted(err) {
					continue
				}
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			if choice != "yes" {
				continue
			}
			if err := c.Unlink(fields[1]); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		case "help":
			table := cliutil.NewTableData("command", "usage")
			table.AddRow("ls", "ls [shell command]")
			table.AddRow("get", "get <remote> <local>")
			table.AddRow("put", "put <local> <remote>")
			table.AddRow("cd", "cd <dir>")
			table.AddRow("pwd", "pwd")
			table.AddRow("mkdir", "mkdir <dir>")
			table.AddRow("rm", "rm <path>")
			table.AddRow("exit", "exit | quit")
			cliutil.PrintTable(os.Stdout, table)
		case "ls":
			cmdLine := "ls -la"
			if len(fields) > 1 {
				cmdLine = strings.Join(fields[1:], " ")
			}
			remotePath, err := c.Ls(cmdLine)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			if _, err := download(c, remotePath, os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		case "get":
			if len(fields) < 3 {
				fmt.Fprintln(os.Stderr, "usage: get <remote> <local>")
				continue
			}
			out, err := os.Create(fields[2])
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			n, err := download(c, fields[1], out)
			out.Close()
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			fmt.Printf("downloaded %d bytes\n", n)
		case "put":
			if len(fields) < 3 {
				fmt.Fprintln(os.Stderr, "usage: put <local> <remote>")
				continue
			}
			in, err := os.Open(fields[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			n, err := upload(c, fields[2], in)
			in.Close()
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			fmt.Printf("uploaded %d bytes\n", n)
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n", fields[0])
		}
	}
	return nil
}
