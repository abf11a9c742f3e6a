package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"mec/internal/config"
	"mec/internal/logging"
	"mec/internal/services"
)

// HeaderName carries the producing adapter's name on every message.
const HeaderName = "Mec-Name"

const (
	fetchWait        = 5 * time.Second
	duplicatesWindow = 2 * time.Minute
	consumerAckWait  = 60 * time.Second
	consumerDeliver  = 10
)

// Delivery is the part of a JetStream message the handler needs.
type Delivery interface {
	Data() []byte
	Headers() nats.Header
	Ack() error
	Nak() error
	Term() error
}

// Publisher hands messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Broker wraps a NATS connection and its JetStream context for the events stream.
type Broker struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  string
	prefix  string
	durable string
	logger  *slog.Logger
}

// Connect dials the configured NATS server.
func Connect(ctx context.Context, cfg config.Queue, logger *slog.Logger) (*Broker, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(cfg.NATSURL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "queue", "connect", "nats_url is not set", nil)
	}
	logger = logging.NewComponentLogger(logger, "broker")
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("mec"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", logging.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "queue", "connect", cfg.NATSURL, err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	b := &Broker{
		conn:    conn,
		js:      js,
		stream:  cfg.Stream,
		prefix:  cfg.SubjectPrefix,
		durable: cfg.Consumer,
		logger:  logger,
	}
	if err := b.EnsureStream(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Subject returns the subject envelopes from the named adapter are published on.
func (b *Broker) Subject(name string) string {
	return b.prefix + "." + name
}

// EnsureStream creates the events stream or updates its subjects.
func (b *Broker) EnsureStream(ctx context.Context) error {
	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       b.stream,
		Subjects:   []string{b.prefix + ".>"},
		Storage:    jetstream.FileStorage,
		Duplicates: duplicatesWindow,
	})
	if err != nil {
		return services.Wrap(services.ErrExternal, "queue", "ensure stream", b.stream, err)
	}
	return nil
}

// Publish sends one envelope. The event id doubles as the JetStream message id
// so a relay retry inside the duplicates window is dropped by the server.
func (b *Broker) Publish(ctx context.Context, msg Message) error {
	m := nats.NewMsg(b.Subject(msg.Name))
	m.Data = msg.Payload
	m.Header.Set(HeaderName, msg.Name)
	opts := []jetstream.PublishOpt{jetstream.WithExpectStream(b.stream)}
	if msg.EventID != "" {
		opts = append(opts, jetstream.WithMsgID(msg.EventID))
	}
	if _, err := b.js.PublishMsg(ctx, m, opts...); err != nil {
		return classifyPublish(msg.Name, err)
	}
	return nil
}

// PublishRaw sends a payload outside the events stream, such as serialized triples.
func (b *Broker) PublishRaw(ctx context.Context, subject string, data []byte) error {
	if _, err := b.js.Publish(ctx, subject, data); err != nil {
		return classifyPublish(subject, err)
	}
	return nil
}

func classifyPublish(name string, err error) error {
	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound), errors.Is(err, jetstream.ErrNoStreamResponse):
		return services.Wrap(services.ErrTransient, "queue", "publish", name, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout):
		return services.Wrap(services.ErrTimeout, "queue", "publish", name, err)
	default:
		return services.Wrap(services.ErrExternal, "queue", "publish", name, err)
	}
}

// Consume pulls envelopes one at a time and hands them to handle until ctx ends.
// Messages fetched after shutdown begins are returned to the server.
func (b *Broker) Consume(ctx context.Context, handle func(context.Context, Delivery)) error {
	stream, err := b.js.Stream(ctx, b.stream)
	if err != nil {
		return services.Wrap(services.ErrExternal, "queue", "get stream", b.stream, err)
	}
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       b.durable,
		FilterSubject: b.prefix + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       consumerAckWait,
		MaxDeliver:    consumerDeliver,
	})
	if err != nil {
		return services.Wrap(services.ErrExternal, "queue", "create consumer", b.durable, err)
	}
	b.logger.Info("consumer started",
		logging.String("stream", b.stream),
		logging.String("consumer", b.durable),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(fetchWait))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Debug("fetch failed", logging.Error(err))
			continue
		}
		for msg := range msgs.Messages() {
			if ctx.Err() != nil {
				if err := msg.Nak(); err != nil {
					b.logger.Warn("nak during shutdown failed", logging.Error(err))
				}
				continue
			}
			handle(ctx, msg)
		}
		if err := msgs.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, nats.ErrTimeout) {
			b.logger.Warn("message fetch error", logging.Error(err))
		}
	}
}

// Close drains pending publishes and closes the connection.
func (b *Broker) Close() {
	if b == nil || b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}
