package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"mec/internal/event"
	"mec/internal/logging"
	"mec/internal/metrics"
	"mec/internal/queue"
	"mec/internal/rdf"
	"mec/internal/services"
)

// Disposition is what happens to a delivery after processing.
type Disposition int

const (
	// Ack removes the message.
	Ack Disposition = iota
	// Term removes the message without redelivery; the failure is logged.
	Term
	// Nak asks the broker to redeliver.
	Nak
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Term:
		return "term"
	case Nak:
		return "nak"
	default:
		return "unknown"
	}
}

// Result describes one processed message.
type Result struct {
	Disposition Disposition
	EventID     string
	Triples     int
	Failures    event.Failures
	Err         error
}

// Processor validates, serializes and sinks envelopes.
type Processor struct {
	validator event.Validator
	sinks     []Sink
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithClock pins the validator's notion of now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.validator.Now = now }
}

// WithMetrics records dispositions and triple counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor builds a processor writing to sinks in order.
func NewProcessor(policy event.DoorPolicy, sinks []Sink, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Processor{
		validator: event.Validator{Doors: policy},
		sinks:     sinks,
		logger:    logging.NewComponentLogger(logger, "handler"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one message body produced by the named adapter.
func (p *Processor) Process(ctx context.Context, adapter string, data []byte) Result {
	ctx = services.WithAdapter(ctx, adapter)
	logger := logging.WithContext(ctx, p.logger)

	env, err := queue.DecodeEnvelope(data)
	if err != nil {
		logging.ErrorWithContext(logger, "envelope rejected", "decode_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "producer and consumer disagree on the envelope format"),
		)
		return p.done(adapter, Result{Disposition: Term, Err: err})
	}
	ev := env.Event
	ev.EnsureIDs()
	logger = logger.With(logging.String(logging.FieldEventID, ev.ID))

	if failures := p.validator.Validate(ev); len(failures) > 0 {
		attrs := []logging.Attr{
			logging.String("event_name", ev.Name),
			logging.String(logging.FieldSourceURL, ev.URL),
			logging.String("fields", strings.Join(failures.Fields(), ",")),
			logging.Error(failures.Err()),
			logging.String(logging.FieldImpact, "event not written to the graph"),
		}
		logging.WarnWithContext(logger, "event failed validation", "validation_failed", attrs...)
		return p.done(adapter, Result{Disposition: Term, EventID: ev.ID, Failures: failures})
	}

	triples, err := event.Serialize(ev)
	if err != nil {
		logging.ErrorWithContext(logger, "event not serializable", "serialization_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the ontology mapping does not cover this value"),
		)
		return p.done(adapter, Result{Disposition: Term, EventID: ev.ID, Err: err})
	}
	payload := []byte(rdf.FormatNTriples(triples))

	for _, sink := range p.sinks {
		if err := sink.Append(ctx, adapter, payload); err != nil {
			logging.WarnWithContext(logger, "graph sink failed", "sink_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "message will be redelivered"),
			)
			return p.done(adapter, Result{Disposition: Nak, EventID: ev.ID, Err: err})
		}
	}

	p.metrics.Triples(len(triples))
	logger.Debug("event written", logging.Int("triples", len(triples)))
	return p.done(adapter, Result{Disposition: Ack, EventID: ev.ID, Triples: len(triples)})
}

func (p *Processor) done(adapter string, res Result) Result {
	p.metrics.Consumed(adapter, res.Disposition.String())
	return res
}

// Handle processes a broker delivery and settles it.
func (p *Processor) Handle(ctx context.Context, msg queue.Delivery) {
	adapter := msg.Headers().Get(queue.HeaderName)
	res := p.Process(ctx, adapter, msg.Data())

	var err error
	switch res.Disposition {
	case Ack:
		err = msg.Ack()
	case Term:
		err = msg.Term()
	default:
		err = msg.Nak()
	}
	if err != nil {
		p.logger.Warn("message settlement failed",
			logging.String(logging.FieldAdapter, adapter),
			logging.String("disposition", res.Disposition.String()),
			logging.Error(err),
		)
	}
}
