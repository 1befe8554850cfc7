package authclient

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivitySessionInitialized ActivityEventType = "session.initialized"
	ActivityLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityLoginFailure       ActivityEventType = "auth.login.failure"
	ActivityLogout             ActivityEventType = "auth.logout"
	ActivitySessionExpired     ActivityEventType = "session.expired"
	ActivitySignalSuppressed   ActivityEventType = "session.signal.suppressed"
	ActivityGuardTransition    ActivityEventType = "guard.transition"
)

// ActivityEvent describes a session lifecycle change.
type ActivityEvent struct {
	EventType  ActivityEventType
	IdentityID string
	From       GuardState
	To         GuardState
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recordActivity is best effort: failures are logged and dropped.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink error for %s: %v", event.EventType, err)
	}
}

func identityID(i *Identity) string {
	if i == nil {
		return ""
	}
	return i.ID.String()
}
