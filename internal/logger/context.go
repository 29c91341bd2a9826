package logger

import "context"

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext carries request-scoped fields injected into every *Ctx log call.
type LogContext struct {
	RequestID string // chi request id
	FileID    string // yeet/yoink file identifier
	ClientIP  string
}

// WithContext attaches a LogContext to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if absent.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// WithFileID returns a copy of lc with FileID set.
func (lc *LogContext) WithFileID(id string) *LogContext {
	if lc == nil {
		return &LogContext{FileID: id}
	}
	clone := *lc
	clone.FileID = id
	return &clone
}
