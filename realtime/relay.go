package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"bety/events"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const subjectPrefix = "bety.events."

// relayed event types; session changes are node-local and stay off the wire
var relayedTypes = []events.EventType{
	events.EventTypeMessageCreated,
	events.EventTypeBetCreated,
	events.EventTypeBetClosed,
	events.EventTypeFavoriteToggled,
}

type originKey struct{}

func remoteOrigin(ctx context.Context) bool {
	marked, _ := ctx.Value(originKey{}).(bool)
	return marked
}

// envelope is the wire format: the source id lets a node drop its own
// messages when they come back around
type envelope struct {
	Source  string           `json:"source"`
	Type    events.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

// Relay mirrors committed local events onto NATS and re-emits events from
// other nodes onto the local bus. Remote re-emissions carry an origin
// marker so the relay never publishes them back, which would bounce events
// between nodes forever.
type Relay struct {
	bus    *events.Bus
	client *Client
	source string

	cancels []func()
	sub     *nats.Subscription
}

// NewRelay creates a relay with a fresh node id
func NewRelay(bus *events.Bus, client *Client) *Relay {
	return &Relay{
		bus:    bus,
		client: client,
		source: uuid.NewString(),
	}
}

// Start wires both directions
func (r *Relay) Start() error {
	for _, eventType := range relayedTypes {
		r.cancels = append(r.cancels, r.bus.Subscribe(eventType, r.publish))
	}

	sub, err := r.client.Conn.Subscribe(subjectPrefix+">", r.receive)
	if err != nil {
		r.Stop()
		return fmt.Errorf("failed to subscribe to relay subjects: %w", err)
	}
	r.sub = sub

	log.WithField("source", r.source).Info("Realtime relay started")
	return nil
}

// Stop detaches the relay from both the bus and NATS
func (r *Relay) Stop() {
	for _, cancel := range r.cancels {
		cancel()
	}
	r.cancels = nil

	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			log.WithError(err).Error("Failed to unsubscribe relay")
		}
		r.sub = nil
	}
}

func (r *Relay) publish(ctx context.Context, ev events.Event) {
	if remoteOrigin(ctx) {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.WithFields(log.Fields{
			"eventType": ev.Type(),
			"error":     err,
		}).Error("Failed to encode event payload")
		return
	}
	data, err := json.Marshal(envelope{
		Source:  r.source,
		Type:    ev.Type(),
		Payload: payload,
	})
	if err != nil {
		log.WithError(err).Error("Failed to encode event envelope")
		return
	}

	if err := r.client.Conn.Publish(subjectPrefix+string(ev.Type()), data); err != nil {
		log.WithFields(log.Fields{
			"eventType": ev.Type(),
			"error":     err,
		}).Error("Failed to publish event to NATS")
		return
	}

	log.WithFields(log.Fields{
		"eventType": ev.Type(),
		"size":      len(data),
	}).Debug("Relayed event to NATS")
}

func (r *Relay) receive(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.WithFields(log.Fields{
			"subject": msg.Subject,
			"error":   err,
		}).Error("Failed to decode relay envelope")
		return
	}
	if env.Source == r.source {
		return
	}

	ev, err := decodeEvent(env)
	if err != nil {
		log.WithFields(log.Fields{
			"subject": msg.Subject,
			"error":   err,
		}).Error("Failed to decode relayed event")
		return
	}

	ctx := context.WithValue(context.Background(), originKey{}, true)
	r.bus.Emit(ctx, ev)
}

func decodeEvent(env envelope) (events.Event, error) {
	switch env.Type {
	case events.EventTypeMessageCreated:
		var ev events.MessageCreatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		if ev.Message == nil {
			return nil, fmt.Errorf("message_created event without a message")
		}
		return ev, nil
	case events.EventTypeBetCreated:
		var ev events.BetCreatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case events.EventTypeBetClosed:
		var ev events.BetClosedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case events.EventTypeFavoriteToggled:
		var ev events.FavoriteToggledEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
