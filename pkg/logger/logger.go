// Package logger wraps log/slog with the flow engine's output, rotation and
// field conventions.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger. It writes through slog.Default until Init runs.
var Log = slog.Default()

// Config describes logger output.
type Config struct {
	Level      string
	Format     string // json, text
	Output     string // stdout, stderr, file
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

type ctxKey struct{}

// Init configures a JSON logger on stdout at the given level.
func Init(level string) {
	InitWithConfig(Config{
		Level:  level,
		Format: "json",
		Output: "stdout",
	})
}

// ParseLevel maps a level name onto slog.Level; unknown names give info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// InitWithConfig configures Log from cfg.
func InitWithConfig(cfg Config) {
	var writer io.Writer
	switch cfg.Output {
	case "stderr":
		writer = os.Stderr
	case "file":
		if cfg.FilePath == "" {
			cfg.FilePath = "logs/flowsolve.log"
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			writer = os.Stderr
		} else {
			writer = &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}
		}
	default:
		writer = os.Stdout
	}

	InitWithWriter(cfg, writer)
}

// InitWithWriter configures Log to write to w, ignoring cfg.Output.
func InitWithWriter(cfg Config, w io.Writer) {
	lvl := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	Log = slog.New(handler)
}

// ContextWithRunID stores a run ID for WithContext to pick up.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, runID)
}

// RunIDFromContext returns the run ID stored by ContextWithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns Log with args plus the run ID carried by ctx, if any.
func WithContext(ctx context.Context, args ...any) *slog.Logger {
	l := Log
	if id, ok := RunIDFromContext(ctx); ok {
		l = WithRunID(id)
	}
	if len(args) > 0 {
		l = l.With(args...)
	}
	return l
}

// WithRunID tags records with a solve run ID.
func WithRunID(runID string) *slog.Logger {
	return Log.With("run_id", runID)
}

// WithAlgorithm is WithContext with the solver algorithm added.
func WithAlgorithm(ctx context.Context, algorithm string, args ...any) *slog.Logger {
	return WithContext(ctx, append([]any{"algorithm", algorithm}, args...)...)
}

// WithComponent tags records with the emitting component.
func WithComponent(component string) *slog.Logger {
	return Log.With("component", component)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}
