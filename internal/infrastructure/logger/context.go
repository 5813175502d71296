package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type ctxKey struct{}

func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return L()
}

// WithOperation tags every log line emitted under ctx with the operation
// name and a short random id.
func WithOperation(ctx context.Context, operation string) context.Context {
	opID := generateShortID()
	logger := FromContext(ctx).With(
		"operation", operation,
		"op_id", opID,
	)
	return ContextWithLogger(ctx, logger)
}

func WithContextFields(ctx context.Context, fields ...any) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx).With(fields...))
}

func WithRunID(ctx context.Context, runID string) context.Context {
	logger := FromContext(ctx).With("run_id", runID)
	return ContextWithLogger(ctx, logger)
}

func NewRunID() string {
	return generateShortID()
}

func generateShortID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
