package logging

import (
	"context"
	"log/slog"
)

const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRequestID carries the HTTP request correlation identifier.
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldLibraryID = "library_id"
	FieldAuthorID  = "author_id"
	FieldItemID    = "item_id"
	FieldViewID    = "view_id"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	userIDKey
)

// WithRequestID stores the request identifier on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithUserID stores the authenticated user identifier on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the user stored by WithUserID, if any.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldRequestID, id))
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldUserID, id))
	}
	return fields
}

// WithContext returns a logger augmented with fields derived from ctx.
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
