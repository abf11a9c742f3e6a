package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"mec/internal/event"
)

func ticketmasterServer(t *testing.T) *httptest.Server {
	t.Helper()
	page, err := os.ReadFile("../../internal/portals/ticketmaster/testdata/events_page1.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	end, err := os.ReadFile("../../internal/portals/ticketmaster/testdata/events_end.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "0":
			_, _ = w.Write(page)
		default:
			_, _ = w.Write(end)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapePrintsEvents(t *testing.T) {
	srv := ticketmasterServer(t)
	env := setupCLITestEnv(t, srv.URL+"/")

	out, errOut, err := runCLI(t, []string{"scrape", "ticketmaster"}, env.configPath)
	if err != nil {
		t.Fatalf("scrape: %v\n%s", err, errOut)
	}
	var events []*event.MusicEvent
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode scrape output: %v\n%s", err, out)
	}
	if len(events) != 1 || events[0].Name != "Vypsaná fixa" || events[0].ID == "" {
		t.Fatalf("unexpected events %+v", events)
	}
	requireContains(t, errOut, "ticketmaster: 1 events, 0 skipped")

	stats, err := env.store.Stats(context.Background())
	if err != nil || stats.Total() != 0 {
		t.Fatalf("scrape without --enqueue must not touch the outbox: %+v %v", stats, err)
	}
}

func TestScrapeEnqueue(t *testing.T) {
	srv := ticketmasterServer(t)
	env := setupCLITestEnv(t, srv.URL+"/")

	if _, errOut, err := runCLI(t, []string{"scrape", "ticketmaster", "--enqueue"}, env.configPath); err != nil {
		t.Fatalf("scrape --enqueue: %v\n%s", err, errOut)
	}
	records, err := env.store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Name != "ticketmaster" {
		t.Fatalf("unexpected outbox rows %+v", records)
	}
}

func TestScrapeUnknownAdapter(t *testing.T) {
	env := setupCLITestEnv(t, "")
	_, _, err := runCLI(t, []string{"scrape", "goout"}, env.configPath)
	if err == nil {
		t.Fatal("disabled adapters cannot be scraped")
	}
	requireContains(t, err.Error(), "goout")
}

func TestDoctor(t *testing.T) {
	srv := ticketmasterServer(t)
	env := setupCLITestEnv(t, srv.URL+"/")

	out, _, err := runCLI(t, []string{"doctor", "--role", "scraper"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK]")

	out, _, err = runCLI(t, []string{"doctor", "--role", "handler"}, env.configPath)
	if err == nil {
		t.Fatal("handler checks must fail without a broker")
	}
	requireContains(t, out, "[ERROR]")

	if _, _, err := runCLI(t, []string{"doctor", "--role", "publisher"}, env.configPath); err == nil {
		t.Fatal("expected unknown role error")
	}
}
