package logging

import (
	"context"

	"go.uber.org/zap"
)

// Context keys for story information.
type ctxKey string

const (
	// StoryKey is the context key for the running story name.
	StoryKey ctxKey = "story"
	// StepKey is the context key for the running step name.
	StepKey ctxKey = "step"
	// RequestIDKey is the context key for request ID.
	RequestIDKey ctxKey = "request_id"
)

// WithContext creates a child logger with fields extracted from the context.
// It extracts story, step and request_id if present.
func WithContext(logger Logger, ctx context.Context) Logger {
	if ctx == nil {
		return logger
	}

	var fields []zap.Field
	for _, key := range []ctxKey{StoryKey, StepKey, RequestIDKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}

	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// GetStory extracts the story name from context.
func GetStory(ctx context.Context) string {
	return stringValue(ctx, StoryKey)
}

// GetStep extracts the step name from context.
func GetStep(ctx context.Context) string {
	return stringValue(ctx, StepKey)
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// SetStory adds the story name to context.
func SetStory(ctx context.Context, story string) context.Context {
	return context.WithValue(ctx, StoryKey, story)
}

// SetStep adds the step name to context.
func SetStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, StepKey, step)
}

// SetRequestID adds request ID to context.
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// loggerKey is the context key for storing a logger in context.
type loggerKey struct{}

// FromContext returns the Logger stored in the context, or a no-op logger if none.
func FromContext(ctx context.Context) Logger {
	if ctx == nil {
		return Nop()
	}
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return l
	}
	return Nop()
}

// ToContext stores the Logger in the context.
func ToContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
