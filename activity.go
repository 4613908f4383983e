package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserRegistered ActivityEventType = "user.registered"
	ActivityEventProfileUpdated ActivityEventType = "user.profile.updated"
	ActivityEventUserDeleted    ActivityEventType = "user.deleted"
	ActivityEventLoginSuccess   ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure   ActivityEventType = "auth.login.failure"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	ActorID    string
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing purposes. Sinks
// are best effort, a failing sink never fails the operation.
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

// LoggingActivitySink writes every event to logger at info level
func LoggingActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		args := []any{
			"event", string(event.EventType),
			"user_id", event.UserID,
			"actor_id", event.ActorID,
		}
		for k, v := range event.Metadata {
			args = append(args, k, v)
		}
		logger.Info("activity", args...)
		return nil
	})
}
