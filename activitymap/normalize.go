package activitymap

import (
	"context"
	"maps"
	"time"

	"github.com/goliatone/go-print"

	authclient "github.com/goliatone/go-authclient"
)

const (
	// MetadataKeyFromState stores the guard state a transition left.
	MetadataKeyFromState = "from_state"
	// MetadataKeyToState stores the guard state a transition entered.
	MetadataKeyToState = "to_state"

	// ObjectTypeSession is the object every session activity refers to
	ObjectTypeSession = "session"

	DefaultChannel   = "authclient"
	DefaultAnonymous = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
// The object is always the session of the acting identity.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Mapper converts session activity. The zero value uses DefaultChannel and
// DefaultAnonymous.
type Mapper struct {
	Channel string
	// Anonymous is the actor of events without an identity
	Anonymous string
	Now       func() time.Time
}

// Normalize maps event with the zero Mapper
func Normalize(event authclient.ActivityEvent) Normalized {
	return Mapper{}.Map(event)
}

// Map converts event. Guard transitions carry their states in metadata.
func (m Mapper) Map(event authclient.ActivityEvent) Normalized {
	out := Normalized{
		ActorID:    string(event.IdentityID),
		Verb:       string(event.EventType),
		ObjectType: ObjectTypeSession,
		ObjectID:   string(event.IdentityID),
		Channel:    m.Channel,
		OccurredAt: event.OccurredAt,
	}

	if out.ActorID == "" {
		out.ActorID = m.Anonymous
		if out.ActorID == "" {
			out.ActorID = DefaultAnonymous
		}
	}
	if out.Channel == "" {
		out.Channel = DefaultChannel
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = m.now()
	}

	if len(event.Metadata) > 0 {
		out.Metadata = maps.Clone(event.Metadata)
	}
	if event.From != "" || event.To != "" {
		if out.Metadata == nil {
			out.Metadata = map[string]any{}
		}
		out.Metadata[MetadataKeyFromState] = string(event.From)
		out.Metadata[MetadataKeyToState] = string(event.To)
	}

	return out
}

// Sink returns an ActivitySink that hands every mapped record to emit.
func (m Mapper) Sink(emit func(context.Context, Normalized) error) authclient.ActivitySink {
	return authclient.ActivitySinkFunc(func(ctx context.Context, event authclient.ActivityEvent) error {
		if emit == nil {
			return nil
		}
		return emit(ctx, m.Map(event))
	})
}

// LogSink writes mapped records to logger at info level.
func (m Mapper) LogSink(logger authclient.Logger) authclient.ActivitySink {
	return m.Sink(func(_ context.Context, record Normalized) error {
		if logger != nil {
			logger.Info("activity %s", print.MaybePrettyJSON(record))
		}
		return nil
	})
}

func (m Mapper) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}
