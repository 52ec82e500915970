package util

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultLogDir receives the log file of a Quiet logger configured without a Dir.
const DefaultLogDir = "logs"

type loggerContextKey struct{}

// LogConfig controls where and how verbosely a service logs.
type LogConfig struct {
	Level   string
	Service string
	// Dir, when set, adds <Dir>/<Service>.log as a second JSON sink.
	Dir string
	// Quiet drops the stdout sink (terminal UIs own stdout). A Quiet logger
	// always writes a file, under DefaultLogDir when Dir is empty.
	Quiet bool
}

// ParseLevel maps debug, info, warn and error to slog levels; unknown input is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger configures the global slog logger with JSON output and returns a
// cleanup func that closes the log file, if one was opened.
func InitLogger(cfg LogConfig) (*slog.Logger, func()) {
	var writers []io.Writer
	if !cfg.Quiet {
		writers = append(writers, os.Stdout)
	}
	cleanup := func() {}
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" && cfg.Quiet {
		dir = DefaultLogDir
	}
	if dir != "" {
		service := strings.TrimSpace(cfg.Service)
		if service == "" {
			service = "service"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create log dir: %v\n", err)
		} else if f, err := os.OpenFile(filepath.Join(dir, service+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		} else {
			writers = append(writers, f)
			cleanup = func() { _ = f.Close() }
		}
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	out := io.MultiWriter(writers...)
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: true,
	})
	logger := slog.New(handler)
	if s := strings.TrimSpace(cfg.Service); s != "" {
		logger = logger.With("service", s)
	}
	slog.SetDefault(logger)
	return logger, cleanup
}

// ContextWithLogger stores a request-scoped logger in ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the logger stored by ContextWithLogger, or slog.Default().
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
