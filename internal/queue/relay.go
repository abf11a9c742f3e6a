package queue

import (
	"context"
	"log/slog"
	"time"

	"mec/internal/logging"
	"mec/internal/metrics"
	"mec/internal/services"
)

// Relay drains pending outbox rows to the broker.
type Relay struct {
	store     *Store
	publisher Publisher
	interval  time.Duration
	batch     int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewRelay builds a relay. A zero interval or batch falls back to 10s and 100.
func NewRelay(store *Store, publisher Publisher, interval time.Duration, batch int, logger *slog.Logger, m *metrics.Metrics) *Relay {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		logger:    logging.NewComponentLogger(logger, "relay"),
		metrics:   m,
	}
}

// Run drains the outbox every interval until ctx ends.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(r.logger, "outbox drain failed", "relay_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "envelopes stay pending until the next tick"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Drain publishes one batch in insertion order and reports how many reached
// the broker. It stops at the first transport failure so ordering within an
// adapter is kept for the next attempt.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	rows, err := r.store.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, rec := range rows {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if err := r.publisher.Publish(ctx, rec.Message()); err != nil {
			status, markErr := r.store.MarkFailed(ctx, rec.ID, err)
			if markErr != nil {
				return published, markErr
			}
			r.metrics.Published(rec.Name, "error")
			logger := r.logger.With(
				logging.String(logging.FieldAdapter, rec.Name),
				logging.String(logging.FieldEventID, rec.EventID),
			)
			if status == StatusFailed {
				logging.ErrorWithContext(logger, "envelope publish abandoned", "publish_failed",
					logging.Error(err),
					logging.Int("attempts", rec.Attempts+1),
					logging.String(logging.FieldErrorHint, "run 'mec outbox retry' once the broker is healthy"),
				)
			}
			if services.Retryable(err) {
				r.refreshPending(ctx)
				return published, err
			}
			continue
		}
		if err := r.store.MarkPublished(ctx, rec.ID); err != nil {
			return published, err
		}
		r.metrics.Published(rec.Name, "ok")
		published++
	}
	if published > 0 {
		r.logger.Debug("outbox drained", logging.Int("published", published))
	}
	r.refreshPending(ctx)
	return published, nil
}

func (r *Relay) refreshPending(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	if stats, err := r.store.Stats(ctx); err == nil {
		r.metrics.OutboxPending(stats.Pending)
	}
}
