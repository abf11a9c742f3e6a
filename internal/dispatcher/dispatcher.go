package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mec/internal/config"
	"mec/internal/event"
	"mec/internal/logging"
	"mec/internal/metrics"
	"mec/internal/notifications"
	"mec/internal/portals"
	"mec/internal/queue"
	"mec/internal/schedule"
)

// Sink receives the events an adapter run produces.
type Sink interface {
	Enqueue(ctx context.Context, name string, ev *event.MusicEvent) (int64, error)
}

// StateStore persists schedule snapshots across processes and restarts.
type StateStore interface {
	SaveSchedule(ctx context.Context, snap schedule.Snapshot, progress string) error
	LoadSchedule(ctx context.Context, name string) (*queue.ScheduleRecord, error)
}

type entry struct {
	adapter portals.Adapter
	state   *schedule.State
}

// Dispatcher owns the adapter schedules and the poll loop.
type Dispatcher struct {
	sink         Sink
	states       StateStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	notifier     notifications.Service
	pollInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	entries []*entry
	byName  map[string]*entry
	running bool
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	runs    sync.WaitGroup
}

// Option configures optional Dispatcher behavior.
type Option func(*Dispatcher)

// WithStateStore persists snapshots after every transition.
func WithStateStore(store StateStore) Option {
	return func(d *Dispatcher) { d.states = store }
}

// WithMetrics records runs and next-run gauges.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithNotifier alerts on failed and deferred runs.
func WithNotifier(n notifications.Service) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// New constructs a dispatcher polling every pollInterval.
func New(sink Sink, pollInterval time.Duration, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	d := &Dispatcher{
		sink:         sink,
		logger:       logging.NewComponentLogger(logger, "dispatcher"),
		pollInterval: pollInterval,
		now:          time.Now,
		notifier:     notifications.NewService(config.Notifications{}),
		byName:       make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds an adapter whose first run is eligible at first. A persisted
// snapshot, when one exists, takes precedence over first and restores the
// adapter's resume cursor.
func (d *Dispatcher) Register(ctx context.Context, adapter portals.Adapter, cadence schedule.Cadence, first time.Time) error {
	if adapter == nil {
		return errors.New("register: adapter is nil")
	}
	if err := cadence.Validate(); err != nil {
		return fmt.Errorf("register %s: %w", adapter.Name(), err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	name := adapter.Name()
	if _, ok := d.byName[name]; ok {
		return fmt.Errorf("register %s: adapter already registered", name)
	}

	state := schedule.NewState(name, cadence, first)
	if d.states != nil {
		rec, err := d.states.LoadSchedule(ctx, name)
		if err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		if rec != nil {
			d.restore(state, rec, adapter)
		}
	}

	e := &entry{adapter: adapter, state: state}
	d.entries = append(d.entries, e)
	d.byName[name] = e
	d.metrics.NextRun(name, state.NextRun)
	d.logger.Info("adapter registered",
		logging.String(logging.FieldAdapter, name),
		logging.String("cadence", cadence.String()),
		logging.Time("next_run", state.NextRun),
	)
	return nil
}

func (d *Dispatcher) restore(state *schedule.State, rec *queue.ScheduleRecord, adapter portals.Adapter) {
	if !rec.NextRun.IsZero() {
		state.NextRun = rec.NextRun
	}
	state.LastStart = rec.LastStart
	state.LastFinish = rec.LastFinish
	state.LastError = rec.LastError
	state.Runs = rec.Runs
	state.Failures = rec.Failures
	// A persisted busy flag belongs to a process that is gone.
	state.Busy = false

	resumable, ok := adapter.(portals.Resumable)
	if !ok || rec.Progress == "" {
		return
	}
	if err := resumable.Restore(rec.Progress); err != nil {
		logging.WarnWithContext(d.logger, "resume cursor ignored", "restore_failed",
			logging.String(logging.FieldAdapter, rec.Name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "adapter starts from the beginning"),
		)
	}
}

// Start polls immediately and then every poll interval until Stop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("dispatcher already running")
	}
	if len(d.entries) == 0 {
		d.mu.Unlock()
		return errors.New("no adapters registered")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.loop.Add(1)
	d.mu.Unlock()

	go d.pollLoop(runCtx)
	return nil
}

// Stop ends the poll loop, cancels in-flight runs and waits for them.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.loop.Wait()
	d.runs.Wait()
}

// Wait blocks until every in-flight run has finished.
func (d *Dispatcher) Wait() { d.runs.Wait() }

func (d *Dispatcher) pollLoop(ctx context.Context) {
	defer d.loop.Done()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		d.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Status returns a snapshot of every registered schedule in registration order.
func (d *Dispatcher) Status() []schedule.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]schedule.Snapshot, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, e.state.Snapshot())
	}
	return out
}
