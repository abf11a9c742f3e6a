package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mec/internal/event"
	"mec/internal/logging"
	"mec/internal/portals"
	"mec/internal/services"
)

// Poll starts every eligible adapter and returns how many runs it started.
// States move to Running under the lock before any run goroutine exists.
func (d *Dispatcher) Poll(ctx context.Context) int {
	now := d.now()

	d.mu.Lock()
	started := make([]*entry, 0, len(d.entries))
	for _, e := range d.entries {
		if !e.state.Eligible(now) {
			continue
		}
		if err := e.state.Begin(now); err != nil {
			continue
		}
		started = append(started, e)
	}
	d.runs.Add(len(started))
	d.mu.Unlock()

	for _, e := range started {
		go d.run(ctx, e)
	}
	if len(started) > 0 {
		d.logger.Debug("poll started runs", logging.Int("runs", len(started)))
	}
	return len(started)
}

// outcome is the result of draining one candidate sequence.
type outcome struct {
	produced  int
	skipped   int
	notBefore time.Time
	err       error
}

func (o outcome) label() string {
	switch {
	case o.err != nil:
		return "failed"
	case !o.notBefore.IsZero():
		return "deferred"
	default:
		return "ok"
	}
}

func (d *Dispatcher) run(ctx context.Context, e *entry) {
	defer d.runs.Done()

	name := e.adapter.Name()
	ctx = services.WithAdapter(ctx, name)
	ctx = services.WithRunID(ctx, event.NewID())
	logger := logging.WithContext(ctx, d.logger)

	d.persist(ctx, e, logger)
	start := d.now()
	logger.Info("adapter run started")

	res := d.drain(ctx, e, logger)

	finished := d.now()
	d.mu.Lock()
	e.state.Finish(finished, res.notBefore, res.err)
	next := e.state.NextRun
	d.mu.Unlock()
	d.persist(context.WithoutCancel(ctx), e, logger)

	elapsed := finished.Sub(start)
	d.metrics.RunFinished(name, res.label(), elapsed)
	d.metrics.NextRun(name, next)

	attrs := []logging.Attr{
		logging.Int("produced", res.produced),
		logging.Int("skipped", res.skipped),
		logging.Duration("duration", elapsed),
		logging.Time("next_run", next),
	}
	if res.err != nil {
		attrs = append(attrs,
			logging.Error(res.err),
			logging.String("error_kind", services.Kind(res.err)),
			logging.String(logging.FieldErrorHint, "check the source site and the adapter's log lines above"),
		)
		logging.ErrorWithContext(logger, "adapter run failed", "run_failed", attrs...)
		d.notify(ctx, logger, func(ctx context.Context) error {
			return d.notifier.NotifyRunFailed(ctx, name, res.err)
		})
		return
	}
	if !res.notBefore.IsZero() {
		attrs = append(attrs, logging.Time("deferred_until", res.notBefore))
		d.notify(ctx, logger, func(ctx context.Context) error {
			return d.notifier.NotifyRunDeferred(ctx, name, res.notBefore)
		})
	}
	logger.Info("adapter run finished", logging.Args(attrs...)...)
}

// notify runs after the run context may already be cancelled, so it detaches.
func (d *Dispatcher) notify(ctx context.Context, logger *slog.Logger, send func(context.Context) error) {
	if err := send(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("notification not sent",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
}

// drain consumes the candidate sequence. A panicking adapter fails its run
// without taking the process down.
func (d *Dispatcher) drain(ctx context.Context, e *entry, logger *slog.Logger) (res outcome) {
	name := e.adapter.Name()
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("%s: adapter panic: %v", name, r)
		}
	}()

	for ev, err := range e.adapter.Candidates(ctx) {
		if err != nil {
			if portals.IsExtraction(err) {
				res.skipped++
				d.metrics.Skipped(name)
				d.logSkip(logger, err)
				continue
			}
			if deferred, ok := portals.AsDefer(err); ok {
				res.notBefore = deferred.Until
				logging.WarnWithContext(logger, "adapter deferred", "run_deferred",
					logging.Time("until", deferred.Until),
					logging.Error(deferred),
					logging.String(logging.FieldImpact, "next run postponed"),
				)
				return res
			}
			res.err = err
			return res
		}
		if ev == nil {
			continue
		}
		ev.Normalize()
		if _, err := d.sink.Enqueue(ctx, name, ev); err != nil {
			res.err = fmt.Errorf("enqueue %q: %w", ev.Name, err)
			return res
		}
		res.produced++
		d.metrics.Extracted(name)
		d.metrics.Enqueued(name)
	}
	if err := ctx.Err(); err != nil && res.err == nil {
		res.err = err
	}
	return res
}

func (d *Dispatcher) logSkip(logger *slog.Logger, err error) {
	attrs := []logging.Attr{logging.Error(err)}
	var extraction *portals.ExtractionError
	if errors.As(err, &extraction) && extraction.URL != "" {
		attrs = append(attrs, logging.String(logging.FieldSourceURL, extraction.URL))
	}
	logging.WarnWithContext(logger, "record skipped", "extraction_failed", attrs...)
}

func (d *Dispatcher) persist(ctx context.Context, e *entry, logger *slog.Logger) {
	if d.states == nil {
		return
	}
	d.mu.Lock()
	snap := e.state.Snapshot()
	d.mu.Unlock()

	progress := ""
	if resumable, ok := e.adapter.(portals.Resumable); ok && !snap.Busy {
		progress = resumable.Progress()
	}
	if err := d.states.SaveSchedule(ctx, snap, progress); err != nil {
		logger.Warn("schedule snapshot not saved",
			logging.Error(err),
			logging.String(logging.FieldEventType, "snapshot_failed"),
			logging.String(logging.FieldImpact, "status output may be stale"),
		)
	}
}
