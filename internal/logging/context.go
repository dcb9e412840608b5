package logging

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	buildIDKey contextKey = iota
	splitKey
)

// WithBuildID returns a context tagged with the dataset build identifier.
func WithBuildID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, buildIDKey, id)
}

// WithSplit returns a context tagged with the split being generated.
func WithSplit(ctx context.Context, split string) context.Context {
	return context.WithValue(ctx, splitKey, split)
}

// ContextFields extracts the standard attributes stored on ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := ctx.Value(buildIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldBuildID, id))
	}
	if split, ok := ctx.Value(splitKey).(string); ok && split != "" {
		fields = append(fields, slog.String(FieldSplit, split))
	}
	return fields
}

// WithContext returns logger augmented with the fields stored on ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
