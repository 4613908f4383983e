// Package activitymap turns account activity events into a flat record
// that log pipelines and audit stores can ingest without knowing the auth
// types.
package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/skfsd/go-auth"
)

const (
	defaultChannel    = "accounts"
	defaultObjectType = "user"
	// login failures for unknown emails carry neither actor nor user
	defaultActorID = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	now           func() time.Time
}

// Normalize converts an auth.ActivityEvent into the normalized shape. The
// actor falls back to the event user, then to the configured fallback.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.ActorID),
			strings.TrimSpace(event.UserID),
			options.actorFallback,
		),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    options.channel,
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: occurredAt,
	}
}

// Fields flattens n into key/value pairs for auth.Logger
func (n Normalized) Fields() []any {
	args := []any{
		"actor_id", n.ActorID,
		"verb", n.Verb,
		"object_type", n.ObjectType,
		"object_id", n.ObjectID,
		"channel", n.Channel,
		"occurred_at", n.OccurredAt,
	}
	for k, v := range n.Metadata {
		args = append(args, "meta_"+k, v)
	}
	return args
}

// Sink normalizes every event and hands it to record
func Sink(record func(ctx context.Context, n Normalized) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if record == nil {
			return nil
		}
		return record(ctx, Normalize(event, opts...))
	})
}

// LogSink writes normalized events to logger at info level
func LogSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return Sink(func(_ context.Context, n Normalized) error {
		logger.Info("activity", n.Fields()...)
		return nil
	}, opts...)
}

func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has neither
// actor nor user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time used for events without OccurredAt
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
