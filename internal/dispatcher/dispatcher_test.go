package dispatcher_test

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"mec/internal/dispatcher"
	"mec/internal/event"
	"mec/internal/portals"
	"mec/internal/schedule"
	"mec/internal/services"
	"mec/internal/testsupport"
)

var base = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return base }

type memorySink struct {
	mu     sync.Mutex
	events map[string][]*event.MusicEvent
}

func newMemorySink() *memorySink {
	return &memorySink{events: make(map[string][]*event.MusicEvent)}
}

func (s *memorySink) Enqueue(_ context.Context, name string, ev *event.MusicEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[name] = append(s.events[name], ev)
	return int64(len(s.events[name])), nil
}

func (s *memorySink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events[name])
}

// scriptAdapter yields a fixed sequence of results.
type scriptAdapter struct {
	name    string
	results []result
	gate    chan struct{}
	started chan struct{}
}

type result struct {
	ev  *event.MusicEvent
	err error
}

func (a *scriptAdapter) Name() string { return a.name }

func (a *scriptAdapter) Candidates(ctx context.Context) iter.Seq2[*event.MusicEvent, error] {
	return func(yield func(*event.MusicEvent, error) bool) {
		if a.started != nil {
			a.started <- struct{}{}
		}
		if a.gate != nil {
			select {
			case <-a.gate:
			case <-ctx.Done():
				yield(nil, ctx.Err())
				return
			}
		}
		for _, r := range a.results {
			if !yield(r.ev, r.err) {
				return
			}
		}
	}
}

type panicAdapter struct{}

func (panicAdapter) Name() string { return "panicky" }

func (panicAdapter) Candidates(context.Context) iter.Seq2[*event.MusicEvent, error] {
	return func(func(*event.MusicEvent, error) bool) { panic("selector exploded") }
}

type cursorAdapter struct {
	scriptAdapter
	mu       sync.Mutex
	cursor   string
	restored string
}

func (a *cursorAdapter) Progress() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

func (a *cursorAdapter) Restore(p string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.restored = p
	a.cursor = p
	return nil
}

func sample(name string) *event.MusicEvent {
	return testsupport.NewEvent(name, base.Add(24*time.Hour))
}

func daily() schedule.Cadence { return schedule.Daily(2, time.UTC) }

func TestPollStartsEveryEligibleAdapter(t *testing.T) {
	sink := newMemorySink()
	d := dispatcher.New(sink, time.Minute, nil, dispatcher.WithClock(fixedClock))
	ctx := context.Background()

	names := []string{"goout", "ticketmaster", "ticketportal"}
	for _, name := range names {
		a := &scriptAdapter{name: name, results: []result{{ev: sample(name + "-1")}, {ev: sample(name + "-2")}}}
		if err := d.Register(ctx, a, daily(), base); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	future := &scriptAdapter{name: "later"}
	if err := d.Register(ctx, future, daily(), base.Add(time.Hour)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := d.Poll(ctx); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
	d.Wait()

	for _, name := range names {
		if sink.count(name) != 2 {
			t.Fatalf("%s: expected 2 events, got %d", name, sink.count(name))
		}
	}
	for _, snap := range d.Status() {
		if snap.Name == "later" {
			if snap.Runs != 0 {
				t.Fatal("adapter not yet due must not run")
			}
			continue
		}
		if snap.Busy || snap.Runs != 1 || !snap.NextRun.Equal(time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	}
}

func TestBusyAdapterIsNeverStartedTwice(t *testing.T) {
	sink := newMemorySink()
	d := dispatcher.New(sink, time.Minute, nil, dispatcher.WithClock(fixedClock))
	ctx := context.Background()

	slow := &scriptAdapter{
		name:    "goout",
		results: []result{{ev: sample("x")}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	if err := d.Register(ctx, slow, schedule.Every(time.Nanosecond), base); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := d.Poll(ctx); got != 1 {
		t.Fatalf("expected first poll to start the run, got %d", got)
	}
	<-slow.started
	for i := 0; i < 3; i++ {
		if got := d.Poll(ctx); got != 0 {
			t.Fatalf("busy adapter started again on poll %d", i)
		}
	}
	close(slow.gate)
	d.Wait()

	if len(slow.started) != 0 {
		t.Fatal("a second run started while the first was in flight")
	}
	if sink.count("goout") != 1 {
		t.Fatalf("expected one event, got %d", sink.count("goout"))
	}
}

func TestExtractionErrorsAreSkippedAndRunErrorsRecorded(t *testing.T) {
	sink := newMemorySink()
	d := dispatcher.New(sink, time.Minute, nil, dispatcher.WithClock(fixedClock))
	ctx := context.Background()

	a := &scriptAdapter{name: "ticketportal", results: []result{
		{ev: sample("a")},
		{err: portals.Extraction("ticketportal", "https://www.ticketportal.cz/event/x", errors.New("missing venue"))},
		{ev: sample("b")},
		{err: services.Wrap(services.ErrExternal, "ticketportal", "setup", "", errors.New("consent dialog"))},
		{ev: sample("never")},
	}}
	if err := d.Register(ctx, a, daily(), base); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d.Poll(ctx)
	d.Wait()

	if sink.count("ticketportal") != 2 {
		t.Fatalf("run must stop at the run error, got %d events", sink.count("ticketportal"))
	}
	snap := d.Status()[0]
	if snap.Failures != 1 || snap.LastError == "" || snap.Busy {
		t.Fatalf("run error must be recorded, got %+v", snap)
	}
	if !snap.NextRun.After(base) {
		t.Fatalf("schedule must advance after a failure, got %v", snap.NextRun)
	}
}

func TestDeferPushesNextRun(t *testing.T) {
	d := dispatcher.New(newMemorySink(), time.Minute, nil, dispatcher.WithClock(fixedClock))
	ctx := context.Background()

	until := time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC)
	a := &scriptAdapter{name: "ticketmaster", results: []result{
		{ev: sample("a")},
		{err: &portals.DeferError{Until: until, Err: services.Wrap(services.ErrRateLimited, "ticketmaster", "events", "quota", nil)}},
	}}
	if err := d.Register(ctx, a, daily(), base); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d.Poll(ctx)
	d.Wait()

	snap := d.Status()[0]
	if !snap.NextRun.Equal(until) {
		t.Fatalf("expected next run at the reset, got %v", snap.NextRun)
	}
	if snap.Failures != 0 {
		t.Fatal("a quota deferral is not a failure")
	}
}

func TestPanickingAdapterFailsOnlyItsRun(t *testing.T) {
	d := dispatcher.New(newMemorySink(), time.Minute, nil, dispatcher.WithClock(fixedClock))
	ctx := context.Background()
	if err := d.Register(ctx, panicAdapter{}, daily(), base); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d.Poll(ctx)
	d.Wait()
	snap := d.Status()[0]
	if snap.Failures != 1 || snap.Busy {
		t.Fatalf("panic must be recorded as a failure, got %+v", snap)
	}
}

func TestRegisterRejectsDuplicatesAndBadCadence(t *testing.T) {
	d := dispatcher.New(newMemorySink(), time.Minute, nil)
	ctx := context.Background()
	a := &scriptAdapter{name: "goout"}
	if err := d.Register(ctx, a, daily(), base); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := d.Register(ctx, a, daily(), base); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := d.Register(ctx, &scriptAdapter{name: "x"}, schedule.Daily(25, time.UTC), base); err == nil {
		t.Fatal("expected cadence validation error")
	}
}

func TestSnapshotsPersistAndRestore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := &cursorAdapter{scriptAdapter: scriptAdapter{name: "ticketmaster", results: []result{{ev: sample("a")}}}, cursor: "7"}
	d := dispatcher.New(store, time.Minute, nil, dispatcher.WithClock(fixedClock), dispatcher.WithStateStore(store))
	if err := d.Register(ctx, first, daily(), base); err != nil {
		t.Fatalf("Register: %v", err)
	}
	d.Poll(ctx)
	d.Wait()

	stats, err := store.Stats(ctx)
	if err != nil || stats.Pending != 1 {
		t.Fatalf("expected event in outbox, got %+v %v", stats, err)
	}
	rec, err := store.LoadSchedule(ctx, "ticketmaster")
	if err != nil || rec == nil || rec.Progress != "7" || rec.Runs != 1 {
		t.Fatalf("unexpected persisted schedule %+v %v", rec, err)
	}

	second := &cursorAdapter{scriptAdapter: scriptAdapter{name: "ticketmaster"}}
	restarted := dispatcher.New(store, time.Minute, nil, dispatcher.WithClock(fixedClock), dispatcher.WithStateStore(store))
	if err := restarted.Register(ctx, second, daily(), base); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if second.restored != "7" {
		t.Fatalf("cursor not restored, got %q", second.restored)
	}
	snap := restarted.Status()[0]
	if snap.Runs != 1 || !snap.NextRun.Equal(time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)) {
		t.Fatalf("schedule not restored, got %+v", snap)
	}
	if restarted.Poll(ctx) != 0 {
		t.Fatal("restored schedule is not due yet")
	}
}

func TestStartStop(t *testing.T) {
	sink := newMemorySink()
	d := dispatcher.New(sink, time.Hour, nil, dispatcher.WithClock(fixedClock))
	ctx := context.Background()
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected error without adapters")
	}
	a := &scriptAdapter{name: "goout", results: []result{{ev: sample("a")}}}
	if err := d.Register(ctx, a, daily(), base); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected error on second start")
	}
	deadline := time.After(2 * time.Second)
	for sink.count("goout") == 0 {
		select {
		case <-deadline:
			t.Fatal("initial poll never ran the adapter")
		case <-time.After(5 * time.Millisecond):
		}
	}
	d.Stop()
}

func TestSourcesFollowConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAdapters("goout", "ticketportal"))
	sources, err := dispatcher.Sources(cfg, base, nil)
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[0].Adapter.Name() != portals.GoOut || !sources[0].First.Equal(base) {
		t.Fatalf("unexpected goout source %+v", sources[0])
	}
	if sources[1].Adapter.Name() != portals.Ticketportal || !sources[1].First.Equal(base.Add(time.Hour)) {
		t.Fatalf("ticketportal must start an hour later, got %v", sources[1].First)
	}
	if _, err := dispatcher.Lookup(sources, "ticketmaster"); err == nil {
		t.Fatal("disabled adapter must not be found")
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	failed   []string
	deferred []string
}

func (n *recordingNotifier) NotifyRunFailed(_ context.Context, adapter string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, adapter)
	return nil
}

func (n *recordingNotifier) NotifyRunDeferred(_ context.Context, adapter string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deferred = append(n.deferred, adapter)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func TestFailedAndDeferredRunsNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	d := dispatcher.New(newMemorySink(), time.Minute, nil,
		dispatcher.WithClock(fixedClock),
		dispatcher.WithNotifier(notifier),
	)
	ctx := context.Background()

	ok := &scriptAdapter{name: "goout", results: []result{{ev: sample("a")}}}
	deferred := &scriptAdapter{name: "ticketmaster", results: []result{
		{err: &portals.DeferError{Until: base.Add(time.Hour), Err: errors.New("quota")}},
	}}
	for _, a := range []portals.Adapter{ok, deferred, panicAdapter{}} {
		if err := d.Register(ctx, a, daily(), base); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	d.Poll(ctx)
	d.Wait()

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.failed) != 1 || notifier.failed[0] != "panicky" {
		t.Fatalf("unexpected failure alerts %v", notifier.failed)
	}
	if len(notifier.deferred) != 1 || notifier.deferred[0] != "ticketmaster" {
		t.Fatalf("unexpected deferral alerts %v", notifier.deferred)
	}
}
