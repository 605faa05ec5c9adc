package som

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with helpers for training events.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler writing to stderr at info level is used.
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

// NewJSONLogger creates a Logger that writes JSON lines to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that writes human-readable lines to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// With returns a Logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// LogEpoch logs the schedule used for one epoch.
func (l *Logger) LogEpoch(ctx context.Context, epoch, epochs int, learningRate, radius float64) {
	l.DebugContext(ctx, "epoch started",
		"epoch", epoch,
		"epochs", epochs,
		"learning_rate", learningRate,
		"radius", radius,
	)
}

// LogTrain logs the end of a training run.
func (l *Logger) LogTrain(ctx context.Context, samples, epochs int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "training failed",
			"samples", samples,
			"epochs", epochs,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "training completed",
		"samples", samples,
		"epochs", epochs,
		"elapsed", elapsed,
	)
}

// LogTask logs the outcome of one sweep task.
func (l *Logger) LogTask(ctx context.Context, name string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "task failed",
			"task", name,
			"elapsed", elapsed,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "task completed",
		"task", name,
		"elapsed", elapsed,
	)
}

// LogSweep logs the summary of a sweep.
func (l *Logger) LogSweep(ctx context.Context, total, failed int, elapsed time.Duration) {
	if failed > 0 {
		l.WarnContext(ctx, "sweep completed with failures",
			"total", total,
			"failed", failed,
			"success", total-failed,
			"elapsed", elapsed,
		)
		return
	}
	l.InfoContext(ctx, "sweep completed",
		"total", total,
		"elapsed", elapsed,
	)
}
