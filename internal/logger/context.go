package logger

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped fields that should be attached to every
// log line emitted while handling one coordinator operation.
type LogContext struct {
	TraceID     string // OpenTelemetry trace ID
	SpanID      string // OpenTelemetry span ID
	Resource    string
	Scope       string
	ResourceUID string
	LeaseID     string
}

// WithContext returns a new context carrying lc.
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

// Clone returns a shallow copy of lc, tolerant of a nil receiver.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithLease returns a copy of lc with the resource identity fields set.
func (lc *LogContext) WithLease(resource, scope, resourceUID string) *LogContext {
	clone := lc.Clone()
	if clone == nil {
		clone = &LogContext{}
	}
	clone.Resource, clone.Scope, clone.ResourceUID = resource, scope, resourceUID
	return clone
}

// Fields flattens lc into a slog-style key/value slice, skipping empty
// fields. Pass the result straight to Debug/Info/Warn/Error.
func (lc *LogContext) Fields() []any {
	if lc == nil {
		return nil
	}
	var fields []any
	add := func(key, val string) {
		if val != "" {
			fields = append(fields, key, val)
		}
	}
	add("trace_id", lc.TraceID)
	add("span_id", lc.SpanID)
	add("resource", lc.Resource)
	add("scope", lc.Scope)
	add("resource_uid", lc.ResourceUID)
	add("lease_id", lc.LeaseID)
	return fields
}

// DebugCtx logs at debug level, auto-injecting the context's LogContext fields.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if LevelDebug < Level(currentLevel.Load()) {
		return
	}
	getLogger().Debug(msg, append(FromContext(ctx).Fields(), args...)...)
}

// InfoCtx logs at info level, auto-injecting the context's LogContext fields.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	if LevelInfo < Level(currentLevel.Load()) {
		return
	}
	getLogger().Info(msg, append(FromContext(ctx).Fields(), args...)...)
}

// WarnCtx logs at warn level, auto-injecting the context's LogContext fields.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if LevelWarn < Level(currentLevel.Load()) {
		return
	}
	getLogger().Warn(msg, append(FromContext(ctx).Fields(), args...)...)
}

// ErrorCtx logs at error level, auto-injecting the context's LogContext fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Error(msg, append(FromContext(ctx).Fields(), args...)...)
}
