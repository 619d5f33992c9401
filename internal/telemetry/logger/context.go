package logger

import "context"

type contextKey string

const (
	loggerKey  contextKey = "sessbox.logger"
	cycleIDKey contextKey = "sessbox.cycle_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithCycleID tags the context with the ID of the running sync cycle.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext extracts the sync cycle ID from context.
func CycleIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(cycleIDKey).(string); ok {
		return id
	}
	return ""
}

// L returns the logger carried by ctx, bound to ctx so that records
// include its cycle ID.
func L(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}
