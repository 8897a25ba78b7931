// Package logger provides the structured logging facility of the
// rxs-server binary and the server-side packages, built on log/slog.
// The rxs-client binary does not use it.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level is the internal log level enumeration.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config configures the package-level logger.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel atomic.Int32

	mu      sync.RWMutex
	slogger *slog.Logger
	output  io.Writer = os.Stdout
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	reconfigure("text")
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func reconfigure(format string) {
	mu.Lock()
	defer mu.Unlock()

	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(Level(currentLevel.Load())))
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	slogger = slog.New(handler)
}

// Init applies cfg to the package-level logger. Output may be "stdout",
// "stderr", or a file path opened for append.
func Init(cfg Config) error {
	format := "text"
	if cfg.Format != "" {
		format = strings.ToLower(cfg.Format)
	}

	if cfg.Output != "" {
		switch strings.ToLower(cfg.Output) {
		case "stdout", "":
			mu.Lock()
			output = os.Stdout
			mu.Unlock()
		case "stderr":
			mu.Lock()
			output = os.Stderr
			mu.Unlock()
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("logger: open %q: %w", cfg.Output, err)
			}
			mu.Lock()
			output = f
			mu.Unlock()
		}
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	reconfigure(format)
	return nil
}

// SetLevel changes the minimum log level at runtime.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel.Store(int32(LevelDebug))
	case "INFO":
		currentLevel.Store(int32(LevelInfo))
	case "WARN":
		currentLevel.Store(int32(LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(LevelError))
	default:
		return
	}
	reconfigure("text")
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a child logger with the given structured fields attached
// to every subsequent record.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}
