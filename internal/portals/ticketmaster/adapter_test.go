package ticketmaster

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"mec/internal/event"
	"mec/internal/portals"
	"mec/internal/schedule"
	"mec/internal/services"
)

type fakeAPI struct {
	mu       sync.Mutex
	pages    []int
	queries  []map[string]string
	respond  func(w http.ResponseWriter, page int)
	accepted []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			t.Errorf("bad page param %q", r.URL.Query().Get("page"))
		}
		q := map[string]string{}
		for key := range r.URL.Query() {
			q[key] = r.URL.Query().Get(key)
		}
		f.mu.Lock()
		f.pages = append(f.pages, page)
		f.queries = append(f.queries, q)
		f.accepted = append(f.accepted, r.Header.Get("Accept"))
		f.mu.Unlock()
		w.Header().Set("Rate-Limit", "5000")
		w.Header().Set("Rate-Limit-Available", "4990")
		w.Header().Set("Rate-Limit-Over", "0")
		f.respond(w, page)
	})
}

func serveFixture(t *testing.T, w http.ResponseWriter, status int, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func newTestAdapter(t *testing.T, api *fakeAPI, pageSize int) *Adapter {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)
	client, err := New(Config{
		BaseURL:        server.URL,
		APIKey:         "secret",
		CountryCode:    "CZ",
		Classification: "music",
		Locale:         "cs-CZ",
		Sort:           "date,name,asc",
		PageSize:       pageSize,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return NewAdapter(client, nil)
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestCandidatesWalksPagesAndResetsCursor(t *testing.T) {
	api := &fakeAPI{}
	api.respond = func(w http.ResponseWriter, page int) {
		switch page {
		case 0:
			serveFixture(t, w, http.StatusOK, "events_page0.json")
		case 1:
			serveFixture(t, w, http.StatusOK, "events_page1.json")
		default:
			serveFixture(t, w, http.StatusOK, "events_end.json")
		}
	}
	adapter := newTestAdapter(t, api, 2)

	var skipped []error
	events, err := portals.Collect(context.Background(), adapter, func(err error) { skipped = append(skipped, err) })
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if len(skipped) != 1 || !portals.IsExtraction(skipped[0]) || !errors.Is(skipped[0], errCancelled) {
		t.Fatalf("expected cancelled event to be skipped, got %v", skipped)
	}
	if got := adapter.Progress(); got != "0" {
		t.Fatalf("cursor must reset after exhaustion, got %s", got)
	}
	if len(api.pages) != 3 || api.pages[0] != 0 || api.pages[2] != 2 {
		t.Fatalf("unexpected page sequence %v", api.pages)
	}

	q := api.queries[0]
	want := map[string]string{
		"apikey":             "secret",
		"page":               "0",
		"size":               "2",
		"countryCode":        "CZ",
		"classificationName": "music",
		"sort":               "date,name,asc",
		"locale":             "cs-CZ",
	}
	for key, value := range want {
		if q[key] != value {
			t.Fatalf("query %s = %q, want %q", key, q[key], value)
		}
	}
	if api.accepted[0] != "application/json" {
		t.Fatalf("unexpected Accept header %q", api.accepted[0])
	}
}

func TestQuotaDefersUntilResetAndKeepsCursor(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	reset := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)

	api := &fakeAPI{}
	api.respond = func(w http.ResponseWriter, page int) {
		if page == 0 {
			serveFixture(t, w, http.StatusOK, "events_page0.json")
			return
		}
		w.Header().Set("Rate-Limit-Reset", strconv.FormatInt(reset.UnixMilli(), 10))
		serveFixture(t, w, http.StatusTooManyRequests, "fault_quota.json")
	}
	adapter := newTestAdapter(t, api, 2)

	_, err := portals.Collect(context.Background(), adapter, nil)
	deferral, ok := portals.AsDefer(err)
	if !ok {
		t.Fatalf("expected deferral, got %v", err)
	}
	if !deferral.Until.Equal(reset) {
		t.Fatalf("until = %v, want %v", deferral.Until, reset)
	}
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited marker, got %v", err)
	}
	if got := adapter.Progress(); got != "1" {
		t.Fatalf("cursor must be kept after quota stop, got %s", got)
	}

	state := schedule.NewState(portals.Ticketmaster, schedule.Daily(2, time.UTC), now)
	if err := state.Begin(now); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	state.Finish(now, deferral.Until, nil)
	if !state.NextRun.Equal(reset) {
		t.Fatalf("next run = %v, want %v", state.NextRun, reset)
	}
}

func TestStoppedPageIsFetchedAgain(t *testing.T) {
	api := &fakeAPI{}
	api.respond = func(w http.ResponseWriter, page int) {
		serveFixture(t, w, http.StatusOK, "events_page0.json")
	}
	adapter := newTestAdapter(t, api, 2)

	for range adapter.Candidates(context.Background()) {
		break
	}
	if got := adapter.Progress(); got != "0" {
		t.Fatalf("cursor must stay on a partly drained page, got %s", got)
	}
	for range adapter.Candidates(context.Background()) {
		break
	}
	if len(api.pages) != 2 || api.pages[1] != 0 {
		t.Fatalf("expected page 0 to be fetched again, got %v", api.pages)
	}
}

func TestUnauthorizedIsConfigurationError(t *testing.T) {
	api := &fakeAPI{}
	api.respond = func(w http.ResponseWriter, _ int) {
		serveFixture(t, w, http.StatusUnauthorized, "fault_key.json")
	}
	adapter := newTestAdapter(t, api, 20)
	_, err := portals.Collect(context.Background(), adapter, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, ok := portals.AsDefer(err); ok {
		t.Fatal("a rejected key must not defer")
	}
}

func TestServerErrorWithoutFaultBody(t *testing.T) {
	api := &fakeAPI{}
	api.respond = func(w http.ResponseWriter, _ int) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}
	adapter := newTestAdapter(t, api, 20)
	_, err := portals.Collect(context.Background(), adapter, nil)
	var fault *FaultError
	if !errors.As(err, &fault) || fault.Status != http.StatusBadGateway || fault.Message != "upstream down" {
		t.Fatalf("unexpected error %v", err)
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external marker, got %v", err)
	}
}

func TestDeepPagingLimitRestartsScan(t *testing.T) {
	api := &fakeAPI{}
	api.respond = func(w http.ResponseWriter, _ int) {
		t.Error("no request expected past the paging limit")
	}
	adapter := newTestAdapter(t, api, 20)
	if err := adapter.Restore("50"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	events, err := portals.Collect(context.Background(), adapter, nil)
	if err != nil || len(events) != 0 {
		t.Fatalf("unexpected result %v %v", events, err)
	}
	if adapter.Progress() != "0" {
		t.Fatalf("expected cursor reset, got %s", adapter.Progress())
	}
	if err := adapter.Restore("-1"); err == nil {
		t.Fatal("expected invalid cursor error")
	}
}

func TestToEventMapsFields(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "events_page0.json"))
	if err != nil {
		t.Fatal(err)
	}
	var payload eventsResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}
	ev, err := toEvent(payload.Embedded.Events[0], nil)
	if err != nil {
		t.Fatalf("toEvent: %v", err)
	}

	if ev.Name != "Tame Impala" || ev.URL != "https://www.ticketmaster.cz/event/tame-impala-tickets/50001" {
		t.Fatalf("unexpected identity %q %q", ev.Name, ev.URL)
	}
	if !ev.StartDate.Equal(time.Date(2026, 11, 20, 19, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", ev.StartDate)
	}
	if ev.DoorTime == nil || !ev.DoorTime.Equal(time.Date(2026, 11, 20, 17, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected doors %v", ev.DoorTime)
	}
	if len(ev.Artists) != 1 {
		t.Fatalf("self listing must be filtered, got %d artists", len(ev.Artists))
	}
	artist := ev.Artists[0]
	if len(artist.Genres) != 2 || artist.Genres[0] != "Rock" || artist.Genres[1] != "Alternative Rock" {
		t.Fatalf("unexpected genres %v", artist.Genres)
	}
	if len(artist.SameAs) != 2 || artist.SameAs[0] != "https://www.tameimpala.com/" {
		t.Fatalf("unexpected sameAs %v", artist.SameAs)
	}
	venue := ev.Venues[0]
	if venue.Latitude == nil || *venue.Latitude != 50.1047 || *venue.Longitude != 14.492 {
		t.Fatalf("unexpected coordinates %+v", venue)
	}
	if venue.Address == nil || venue.Address.Locality != "Praha" || venue.Address.Country != "CZ" || venue.Address.Street != "Českomoravská 2345/17" {
		t.Fatalf("unexpected address %+v", venue.Address)
	}
	if ev.Ticket == nil || ev.Ticket.Availability != event.InStock || ev.Ticket.URL != ev.URL {
		t.Fatalf("unexpected ticket %+v", ev.Ticket)
	}

	v := event.Validator{Now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }}
	if failures := v.Validate(ev); len(failures) != 0 {
		t.Fatalf("mapped event should validate, got %v", failures)
	}
}

func TestToEventLocalDateAndFallbackGenres(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "events_page1.json"))
	if err != nil {
		t.Fatal(err)
	}
	var payload eventsResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}
	ev, err := toEvent(payload.Embedded.Events[0], portals.Prague)
	if err != nil {
		t.Fatalf("toEvent: %v", err)
	}
	if !ev.StartDate.Equal(time.Date(2026, 12, 5, 18, 30, 0, 0, time.UTC)) {
		t.Fatalf("local start must use Prague, got %v", ev.StartDate.UTC())
	}
	if got := ev.Artists[0].Genres; len(got) != 1 || got[0] != "Rock" {
		t.Fatalf("expected event genres fallback, got %v", got)
	}
	if ev.Ticket.Availability != event.SoldOut {
		t.Fatalf("offsale must map to SoldOut, got %s", ev.Ticket.Availability)
	}
	if ev.Venues[0].Latitude != nil {
		t.Fatal("missing location must leave coordinates unset")
	}
}

func TestParseReset(t *testing.T) {
	want := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)
	if got := parseReset(strconv.FormatInt(want.UnixMilli(), 10)); !got.Equal(want) {
		t.Fatalf("millis: got %v", got)
	}
	if got := parseReset("2026-03-11T02:00:00Z"); !got.Equal(want) {
		t.Fatalf("rfc3339: got %v", got)
	}
	if !parseReset("soon").IsZero() || !parseReset("").IsZero() {
		t.Fatal("unparseable reset must be zero")
	}
}
