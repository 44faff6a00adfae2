package flash

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with flash-specific fields.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000),
		})),
	}
}

// WithFile adds a file field to the logger.
func (l *Logger) WithFile(path string) *Logger {
	return &Logger{Logger: l.Logger.With("file", path)}
}

// LogTrain logs the outcome of a training run.
func (l *Logger) LogTrain(ctx context.Context, st TrainStats, err error) {
	attrs := []any{
		"records", st.Records,
		"skipped", st.Skipped,
		"empty", st.Empty,
		"labels", st.Labels,
		"duration", st.Duration.Round(time.Millisecond),
	}
	switch {
	case err != nil:
		l.ErrorContext(ctx, "training failed", append(attrs, "error", err)...)
	case st.Skipped > 0:
		l.WarnContext(ctx, "training completed with skipped records", attrs...)
	default:
		l.InfoContext(ctx, "training completed", attrs...)
	}
}

// LogSkippedRecord logs a record the builder could not use.
func (l *Logger) LogSkippedRecord(ctx context.Context, err error) {
	l.DebugContext(ctx, "record skipped", "error", err)
}

// LogPredict logs a query.
func (l *Logger) LogPredict(ctx context.Context, k, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "predict failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "predict completed",
			"k", k,
			"results", results,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+op,
			"name", name,
			"bytes", size,
		)
	}
}
