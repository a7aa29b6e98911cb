package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/metrics"
)

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("whispers"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Dial opens a NATS connection for one-shot use. Unlike Connect it fails
// when the server is unreachable and never reconnects.
func Dial(url string, timeout time.Duration) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("whisperctl"),
		nats.Timeout(timeout),
		nats.NoReconnect(),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return conn, nil
}

// Bridge relays events between the in-process bus and NATS so every API
// process sees the same signals. Core NATS is used on purpose: the bus is
// fire-and-forget and never replays, so a durable stream would add nothing.
type Bridge struct {
	conn    *nats.Conn
	subject string
	source  string
	bus     *events.Bus
	sub     *nats.Subscription
	untap   func()
	log     *slog.Logger
}

var _ ports.EventRelay = (*Bridge)(nil)

// NewBridge creates a bridge publishing under subject.<kind>.
func NewBridge(conn *nats.Conn, subject string, bus *events.Bus, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		conn:    conn,
		subject: subject,
		source:  nuid.Next(),
		bus:     bus,
		log:     log.With("component", "nats_bridge"),
	}
}

// Source identifies this process on the wire.
func (b *Bridge) Source() string { return b.source }

// Start subscribes to remote events and taps local ones.
func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(b.subject+".>", b.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	b.sub = sub
	b.untap = b.bus.Tap(b.forward)
	b.log.Info("bridge started", "subject", b.subject, "source", b.source)
	return nil
}

// forward publishes locally emitted events. Events that came from the
// broker are not sent back.
func (b *Bridge) forward(env events.Envelope) {
	if env.Origin != "" {
		return
	}
	if err := b.Relay(context.Background(), string(env.Kind), env.Payload); err != nil {
		b.log.Warn("relay failed", "kind", env.Kind, "error", err)
	}
}

// Relay publishes one event to the broker.
func (b *Bridge) Relay(ctx context.Context, kind string, payload any) error {
	_, span := otel.Tracer("whispers/nats").Start(ctx, "bus.relay")
	defer span.End()
	span.SetAttributes(attribute.String("event.kind", kind))

	raw, err := json.Marshal(payload)
	if err != nil {
		metrics.BridgeMessages.WithLabelValues("out", "error").Inc()
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := encodeEnvelope(wireEnvelope{
		Source:    b.source,
		Kind:      kind,
		EmittedAt: time.Now(),
		Payload:   raw,
	})
	if err != nil {
		metrics.BridgeMessages.WithLabelValues("out", "error").Inc()
		return err
	}

	if err := b.conn.Publish(b.subject+"."+kind, data); err != nil {
		metrics.BridgeMessages.WithLabelValues("out", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	metrics.BridgeMessages.WithLabelValues("out", "ok").Inc()
	return nil
}

func (b *Bridge) handle(msg *nats.Msg) {
	env, err := decodeEnvelope(msg.Data)
	if err != nil {
		metrics.BridgeMessages.WithLabelValues("in", "error").Inc()
		b.log.Warn("drop malformed envelope", "subject", msg.Subject, "error", err)
		return
	}
	if env.Source == b.source {
		return
	}

	if err := b.bus.EmitRemote(env.Source, events.Kind(env.Kind), env.Payload); err != nil {
		metrics.BridgeMessages.WithLabelValues("in", "error").Inc()
		b.log.Warn("remote event rejected", "kind", env.Kind, "source", env.Source, "error", err)
		return
	}
	metrics.BridgeMessages.WithLabelValues("in", "ok").Inc()
}

// Connected reports whether the underlying connection is up.
func (b *Bridge) Connected() bool { return b.conn.IsConnected() }

// Flush blocks until the server has acknowledged everything published so
// far, or ctx is done.
func (b *Bridge) Flush(ctx context.Context) error {
	if err := b.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close stops relaying, drains the connection, and waits up to drainWait
// for buffered messages to reach the server.
func (b *Bridge) Close() {
	if b.untap != nil {
		b.untap()
	}
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}

	closed := make(chan struct{})
	var once sync.Once
	b.conn.SetClosedHandler(func(*nats.Conn) { once.Do(func() { close(closed) }) })
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return
	}
	select {
	case <-closed:
	case <-time.After(drainWait):
		b.log.Warn("drain timed out", "after", drainWait)
		b.conn.Close()
	}
}

const drainWait = 5 * time.Second
