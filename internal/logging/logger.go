// Package logging defines the structured-logging interface shared by the
// propscan client, its request engine and the development backend.
// Adapters exist for log/slog and go.uber.org/zap; New picks one by name.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "balance synced", "user_id", id, "remaining", b.Remaining)
type Logger interface {
	// Debug logs low-level diagnostics such as individual request attempts.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Supported values for New.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatZap  = "zap"
)

// New builds a Logger writing to w in the requested format.
// Unknown formats return an error so misconfiguration is caught at startup.
func New(format string, w io.Writer, debug bool) (Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "", FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, opts))), nil
	case FormatJSON:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, opts))), nil
	case FormatZap:
		zl := zapcore.InfoLevel
		if debug {
			zl = zapcore.DebugLevel
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		core := zapcore.NewCore(enc, zapcore.AddSync(w), zl)
		return NewZapLogger(zap.New(core)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// Discard returns a Logger that drops everything. Handy in tests.
func Discard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
