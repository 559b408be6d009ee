// Package telemetry configures structured logging.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"minotaur/internal/model"
)

// Options configures NewLogger.
type Options struct {
	Debug bool
	// File, when set, receives a copy of every record.
	File string
	// Console receives records unless nil. Stdout is reserved for reports,
	// so the CLI passes stderr here.
	Console io.Writer
}

// NewLogger builds a JSON logger fanning out to the console and the log file.
// A log file that cannot be opened is reported as an error alongside a
// logger that still writes to the console.
func NewLogger(opts Options) (*slog.Logger, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}

	var sinks fanout
	if opts.Console != nil {
		sinks = append(sinks, slog.NewJSONHandler(opts.Console, ho))
	}

	var fileErr error
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fileErr = fmt.Errorf("open log file: %w", err)
		} else {
			sinks = append(sinks, slog.NewJSONHandler(f, ho))
		}
	}

	switch len(sinks) {
	case 0:
		return slog.New(slog.NewJSONHandler(io.Discard, ho)), fileErr
	case 1:
		return slog.New(sinks[0]), fileErr
	}
	return slog.New(sinks), fileErr
}

// InitLogger installs the process-wide logger writing to stderr.
func InitLogger(debug bool, logFile string) {
	logger, err := NewLogger(Options{Debug: debug, File: logFile, Console: os.Stderr})
	slog.SetDefault(logger)
	if err != nil {
		slog.Warn("Logging to console only", "error", err)
	}
}

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

func LogDebug(msg string, args ...any) { slog.Debug(msg, args...) }

func LogInfo(msg string, args ...any) { slog.Info(msg, args...) }

func LogWarn(msg string, args ...any) { slog.Warn(msg, args...) }

// LogError logs msg at ERROR with err attached under "error".
func LogError(msg string, err error, args ...any) {
	slog.Error(msg, append(args, "error", err)...)
}

// LogIssues logs each absorbed per-item error at WARN.
func LogIssues(issues []model.Issue) {
	for _, is := range issues {
		slog.Warn("Analysis issue", "kind", is.Kind, "scope", is.Scope, "message", is.Message)
	}
}
