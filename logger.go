package tracegc

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with collector-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCycle adds a cycle field to the logger.
func (l *Logger) WithCycle(cycle uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("cycle", cycle),
	}
}

// WithTag adds a type tag field to the logger.
func (l *Logger) WithTag(tag TypeTag) *Logger {
	return &Logger{
		Logger: l.Logger.With("tag", uint32(tag)),
	}
}

// LogRegister logs a registration.
func (l *Logger) LogRegister(ctx context.Context, h Handle, tag TypeTag, err error) {
	if err != nil {
		l.WarnContext(ctx, "register failed",
			"tag", uint32(tag),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "register completed",
			"handle", h.String(),
			"tag", uint32(tag),
		)
	}
}

// LogRootScan logs a failed root scan. The cycle is aborted.
func (l *Logger) LogRootScan(ctx context.Context, providers int, err error) {
	l.ErrorContext(ctx, "root scan failed, cycle aborted",
		"providers", providers,
		"error", err,
	)
}

// LogCollect logs a completed cycle.
func (l *Logger) LogCollect(ctx context.Context, stats CollectionStats, err error) {
	if err != nil {
		l.WarnContext(ctx, "collection completed with errors",
			"cycle", stats.Cycle,
			"swept", stats.Swept,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "collection completed",
			"cycle", stats.Cycle,
			"roots", stats.Roots,
			"marked", stats.Marked,
			"swept", stats.Swept,
			"pinned_retained", stats.PinnedRetained,
			"live", stats.Live,
			"bytes_reclaimed", stats.BytesReclaimed,
			"duration", stats.Duration,
		)
	}
}

// LogFinalize logs a failed finalizer.
func (l *Logger) LogFinalize(ctx context.Context, h Handle, tag TypeTag, err error) {
	l.ErrorContext(ctx, "finalizer failed",
		"handle", h.String(),
		"tag", uint32(tag),
		"error", err,
	)
}
