// Package events implements the in-process typed publish/subscribe bus that
// lets UI-facing components signal each other without direct references.
//
// Delivery is synchronous: Emit runs every listener registered for the key,
// in registration order, on the calling goroutine, and returns afterwards.
// There is no queue and no replay; an event emitted with no listeners is lost.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/metrics"
)

var (
	// ErrUnknownKind is returned when a transport names a kind outside Kinds().
	ErrUnknownKind = errors.New("unknown event kind")
	// ErrInvalidPayload is returned when a raw payload cannot be decoded.
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Listener handles one event. A non-nil error stops delivery of that event
// and is returned to the Emit caller.
type Listener[T any] func(payload T) error

// Envelope is the kind-erased view of an event handed to taps.
type Envelope struct {
	Kind    Kind
	Payload any
	// Origin is empty for events emitted in this process and carries the
	// remote source name for events injected by a transport.
	Origin string
}

type subscription struct {
	id uint64
	fn func(any) error
}

type tap struct {
	id uint64
	fn func(Envelope)
}

// Bus is a typed publish/subscribe channel. The zero value is not usable;
// create one with NewBus.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[Kind][]subscription
	taps      []tap
	log       *slog.Logger
}

// NewBus creates an empty bus. A nil logger falls back to slog.Default().
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		listeners: make(map[Kind][]subscription),
		log:       log.With("component", "event_bus"),
	}
}

// On registers fn for key. The returned func removes exactly this
// registration; calling it again is a no-op.
func On[T any](b *Bus, key Key[T], fn Listener[T]) (unsubscribe func()) {
	wrapped := func(p any) error { return fn(p.(T)) }

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[key.kind] = append(b.listeners[key.kind], subscription{id: id, fn: wrapped})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(key.kind, id) })
	}
}

// Emit publishes payload to every listener of key.
func Emit[T any](b *Bus, key Key[T], payload T) error {
	return b.dispatch(key.kind, payload, "")
}

// Tap registers an observer that sees every event after its typed listeners
// ran successfully. Taps cannot fail an emit.
func (b *Bus) Tap(fn func(Envelope)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.taps = append(b.taps, tap{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.taps = slices.DeleteFunc(slices.Clone(b.taps), func(t tap) bool { return t.id == id })
			b.mu.Unlock()
		})
	}
}

// ListenerCount returns how many listeners are registered for kind.
func (b *Bus) ListenerCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[kind])
}

// EmitJSON decodes data into the payload type of kind and emits it.
func (b *Bus) EmitJSON(kind Kind, data []byte) error {
	return b.EmitRemote("", kind, data)
}

// EmitRemote is EmitJSON for events that arrived from another process.
// origin is recorded on the Envelope so relays can avoid echoing them back.
func (b *Bus) EmitRemote(origin string, kind Kind, data []byte) error {
	payload, err := Decode(kind, data)
	if err != nil {
		return err
	}
	return b.dispatch(kind, payload, origin)
}

// Decode parses data into the fixed payload type of kind without emitting
// it. Errors wrap ErrUnknownKind or ErrInvalidPayload.
func Decode(kind Kind, data []byte) (any, error) {
	switch kind {
	case KindMessageCreated:
		return decode(MessageCreated, data)
	case KindNavigateToMessage:
		return decode(NavigateToMessage, data)
	case KindNotificationAction:
		return decode(NotificationAction, data)
	case KindStoryCreated:
		return decode(StoryCreated, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func decode[T any](key Key[T], data []byte) (any, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, key.kind, err)
	}
	return payload, nil
}

func (b *Bus) dispatch(kind Kind, payload any, origin string) error {
	// Snapshot so listeners may (un)subscribe while being called.
	b.mu.RLock()
	subs := slices.Clone(b.listeners[kind])
	taps := slices.Clone(b.taps)
	b.mu.RUnlock()

	metrics.EventsEmitted.WithLabelValues(string(kind)).Inc()
	b.log.Debug("emit", "kind", kind, "listeners", len(subs), "origin", origin)

	for _, s := range subs {
		if err := s.fn(payload); err != nil {
			metrics.ListenerErrors.WithLabelValues(string(kind)).Inc()
			return err
		}
	}

	env := Envelope{Kind: kind, Payload: payload, Origin: origin}
	for _, t := range taps {
		t.fn(env)
	}
	return nil
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := slices.DeleteFunc(slices.Clone(b.listeners[kind]), func(s subscription) bool { return s.id == id })
	if len(subs) == 0 {
		delete(b.listeners, kind)
		return
	}
	b.listeners[kind] = subs
}
