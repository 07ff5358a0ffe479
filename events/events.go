package events

import (
	"context"
	"sync"

	"bety/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeMessageCreated  EventType = "message_created"
	EventTypeBetClosed       EventType = "bet_closed"
	EventTypeBetCreated      EventType = "bet_created"
	EventTypeFavoriteToggled EventType = "favorite_toggled"
	EventTypeSessionChanged  EventType = "session_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// MessageCreatedEvent carries a committed chat message. Subscribers receive
// these in commit order per chat.
type MessageCreatedEvent struct {
	Message *models.Message
}

func (e MessageCreatedEvent) Type() EventType {
	return EventTypeMessageCreated
}

// BetCreatedEvent represents a newly created bet
type BetCreatedEvent struct {
	BetID     uuid.UUID
	CreatedBy uuid.UUID
}

func (e BetCreatedEvent) Type() EventType {
	return EventTypeBetCreated
}

// BetClosedEvent represents a settled bet
type BetClosedEvent struct {
	BetID        uuid.UUID
	WinnerID     *uuid.UUID
	Participants int
}

func (e BetClosedEvent) Type() EventType {
	return EventTypeBetClosed
}

// FavoriteToggledEvent represents a favorites toggle that committed
type FavoriteToggledEvent struct {
	BetID     uuid.UUID
	UserID    uuid.UUID
	Favorited bool
	Count     int
}

func (e FavoriteToggledEvent) Type() EventType {
	return EventTypeFavoriteToggled
}

// SessionChangedEvent represents an authentication state change
type SessionChangedEvent struct {
	ProfileID *uuid.UUID
	SignedIn  bool
}

func (e SessionChangedEvent) Type() EventType {
	return EventTypeSessionChanged
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// queued pairs an event with the context it was emitted under, so handlers
// can read emission-scoped values such as the relay origin marker.
type queued struct {
	ctx   context.Context
	event Event
}

// subscription owns a FIFO queue drained by a dedicated goroutine, so each
// subscriber sees events in the order they were emitted without blocking the
// emitter.
type subscription struct {
	eventType EventType
	handler   Handler
	queue     chan queued
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) run() {
	for {
		select {
		case q := <-s.queue:
			s.dispatch(q)
		case <-s.done:
			// Drain anything already queued before exiting
			for {
				select {
				case q := <-s.queue:
					s.dispatch(q)
				default:
					return
				}
			}
		}
	}
}

func (s *subscription) dispatch(q queued) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType": q.event.Type(),
				"panic":     r,
			}).Error("Event handler panicked")
		}
	}()
	ctx := q.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.handler(ctx, q.event)
}

func (s *subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Bus manages event subscriptions and dispatching. Unlike a plain fan-out,
// every subscriber is guaranteed to observe events in emission order.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]*subscription
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subs: make(map[EventType][]*subscription),
	}
}

// Subscribe adds a handler for a specific event type. The returned cancel
// function stops delivery; events queued before cancellation are still
// delivered.
func (b *Bus) Subscribe(eventType EventType, handler Handler) (cancel func()) {
	sub := &subscription{
		eventType: eventType,
		handler:   handler,
		queue:     make(chan queued, 256),
		done:      make(chan struct{}),
	}
	go sub.run()

	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	count := len(b.subs[eventType])
	b.mu.Unlock()

	log.WithFields(log.Fields{
		"eventType":       eventType,
		"subscriberCount": count,
	}).Debug("Subscribed handler to event type")

	return func() {
		b.mu.Lock()
		list := b.subs[eventType]
		for i, s := range list {
			if s == sub {
				b.subs[eventType] = append(list[:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		sub.close()
	}
}

// Emit publishes an event to all registered handlers in subscription order.
// Emit blocks only if a subscriber's queue is full.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[event.Type()]))
	copy(subs, b.subs[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":       event.Type(),
		"subscriberCount": len(subs),
	}).Debug("Emitting event")

	// Handlers run after the emitter's request may have finished, so they
	// get its values but not its cancellation
	handlerCtx := context.WithoutCancel(ctx)
	for _, sub := range subs {
		select {
		case sub.queue <- queued{ctx: handlerCtx, event: event}:
		case <-ctx.Done():
			return
		}
	}
}
