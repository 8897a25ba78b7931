package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pfagner/rxs/internal/adminhttp"
	"github.com/pfagner/rxs/internal/audit"
	"github.com/pfagner/rxs/internal/config"
	"github.com/pfagner/rxs/internal/logger"
	"github.com/pfagner/rxs/internal/metrics"
	"github.com/pfagner/rxs/internal/server"
	"github.com/pfagner/rxs/internal/telemetry"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the RXS server",
	Long: `Start the RXS server with the specified configuration.

By default the server runs in the background (daemon mode). Use
--foreground to run it attached, e.g. under a process supervisor.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "path to PID file (default: $XDG_STATE_HOME/rxs/rxs-server.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "path to log file for daemon mode (default: $XDG_STATE_HOME/rxs/rxs-server.log)")
}

func runStart(_ *cobra.Command, _ []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "rxs-server",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err.Error())
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "rxs-server",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err.Error())
		}
	}()

	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))

	var auditLedger *audit.Ledger
	if cfg.Audit.Enabled {
		auditLedger, err = audit.Open(cfg.Audit.Dir)
		if err != nil {
			return fmt.Errorf("open audit ledger: %w", err)
		}
		defer auditLedger.Close()
		logger.Info("audit ledger opened", "dir", cfg.Audit.Dir)
	}

	var collector metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewPromCollector(prometheus.DefaultRegisterer)
	}

	policy := server.NewPolicy(cfg.Policy.Allow, cfg.Policy.Deny)

	dispatcher := &server.Dispatcher{
		Policy:     policy,
		UserDBPath: cfg.UserDB.Path,
		Metrics:    collector,
		Audit:      auditLedger,
		DataDialer: net.Dialer{Timeout: cfg.Server.DataDialTimeout},
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.ListenAddr, err)
	}
	logger.Info("rxs-server listening", "addr", cfg.Server.ListenAddr)

	serverDone := make(chan error, 1)
	go func() { serverDone <- dispatcher.ListenAndServe(ctx, ln) }()

	var adminServer *http.Server
	if cfg.Metrics.Enabled {
		adminServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: adminhttp.NewRouter(adminhttp.Deps{Policy: policy, Audit: auditLedger}),
		}
		go func() {
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin HTTP server error", "error", err.Error())
			}
		}()
		logger.Info("admin HTTP surface listening", "port", cfg.Metrics.Port)
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
			return fmt.Errorf("write PID file: %w", err)
		}
		defer os.Remove(pidFile)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("server running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
		cancel()
		if adminServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			_ = adminServer.Shutdown(shutdownCtx)
			shutdownCancel()
		}
		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err.Error())
			return err
		}
		logger.Info("server stopped gracefully")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err.Error())
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}

// startDaemon re-execs the current binary in foreground mode, detached
// into its own session, and writes its PID for "status"/"stop".
func startDaemon() error {
	dir, err := stateDir()
	if err != nil {
		return err
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(dir, "rxs-server.pid")
	}
	if pid, running := readPID(pidPath); running {
		return fmt.Errorf("rxs-server is already running (PID %d); use 'rxs-server stop' first", pid)
	}
	_ = os.Remove(pidPath)

	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(dir, "rxs-server.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	logHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logHandle.Close()

	cmd := exec.Command(executable, daemonArgs...)
	cmd.Stdout = logHandle
	cmd.Stderr = logHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Printf("rxs-server started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  log file: %s\n", logPath)
	fmt.Println("Use 'rxs-server stop' to stop it, 'rxs-server status' to check it.")

	// Give the daemon a moment to either bind its listener or die
	// outright, so a bad config surfaces immediately instead of only
	// in the log file.
	time.Sleep(300 * time.Millisecond)
	if _, running := readPID(pidPath); !running {
		return fmt.Errorf("rxs-server exited immediately after starting; see %s", logPath)
	}
	return nil
}
