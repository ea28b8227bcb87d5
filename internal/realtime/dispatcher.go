package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rensmac/taskboard/internal/domain"
)

// Bus carries encoded comment envelopes between server instances. The redis
// repository provides the production implementation; a nil bus means a
// standalone deployment where the local registry is the whole world.
type Bus interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// envelope is the bus wire format. The client-facing event payload does not
// carry the organization slug, so the envelope adds it for room resolution
// on the receiving instance.
type envelope struct {
	OrgSlug string               `json:"org_slug"`
	Event   *domain.CommentEvent `json:"event"`
}

// Dispatcher publishes persisted comment events to every session joined to
// the event's room. It behaves identically whether the event came from a
// session's inbound path or from the REST comment-create path.
type Dispatcher struct {
	registry *Registry
	bus      Bus
}

// NewDispatcher creates a dispatcher over the given registry. bus may be nil
// for standalone deployments; events then fan out to the local registry only.
func NewDispatcher(registry *Registry, bus Bus) *Dispatcher {
	return &Dispatcher{registry: registry, bus: bus}
}

// Publish fans out a persisted comment event. With a bus configured the
// event makes a round trip through it, so every instance (this one included)
// delivers it from the same subscribe path.
func (d *Dispatcher) Publish(ctx context.Context, event *domain.CommentEvent) error {
	if d.bus == nil {
		return d.broadcast(event)
	}

	payload, err := json.Marshal(envelope{OrgSlug: event.OrgSlug, Event: event})
	if err != nil {
		return fmt.Errorf("failed to encode comment envelope: %w", err)
	}
	return d.bus.Publish(ctx, payload)
}

// Run consumes the bus and rebroadcasts each event to the local registry.
// It blocks until ctx is cancelled; with a nil bus there is nothing to
// consume and it simply waits for cancellation.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.bus == nil {
		<-ctx.Done()
		return nil
	}

	ch, err := d.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to comment bus: %w", err)
	}

	for payload := range ch {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Error().Err(err).Msg("Discarding malformed comment envelope")
			continue
		}
		if env.Event == nil {
			continue
		}
		env.Event.OrgSlug = env.OrgSlug
		if err := d.broadcast(env.Event); err != nil {
			log.Error().Err(err).Msg("Failed to broadcast comment event")
		}
	}

	return ctx.Err()
}

func (d *Dispatcher) broadcast(event *domain.CommentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode comment event: %w", err)
	}
	d.registry.Broadcast(event.Room(), payload)
	return nil
}
