package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"mec/internal/config"
	"mec/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func ticketmasterServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/discovery/v2/events.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.URL.Query().Get("apikey") {
		case "good-key":
			w.WriteHeader(http.StatusOK)
		case "spent-key":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckTicketmaster(t *testing.T) {
	srv := ticketmasterServer(t)
	cfg := config.Default().Ticketmaster
	cfg.BaseURL = srv.URL + "/discovery/v2/"

	cases := []struct {
		key    string
		passed bool
	}{
		{"good-key", true},
		{"spent-key", true},
		{"bad-key", false},
		{"", false},
	}
	for _, tc := range cases {
		cfg.APIKey = tc.key
		if got := CheckTicketmaster(context.Background(), cfg); got.Passed != tc.passed {
			t.Errorf("key %q: expected passed=%v, got %+v", tc.key, tc.passed, got)
		}
	}
}

func TestCheckBrokerUnreachable(t *testing.T) {
	cfg := config.Default().Queue
	cfg.NATSURL = "nats://127.0.0.1:1"
	if result := CheckBroker(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for unreachable broker")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, RoleAll)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Ticketmaster.Enabled = false
	cfg.GoOut.Enabled = false
	cfg.Ticketportal.Enabled = false

	results := RunAll(context.Background(), &cfg, RoleScraper)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_HandlerNeedsBroker(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Queue.NATSURL = ""

	failed := Failed(RunAll(context.Background(), &cfg, RoleHandler))
	if len(failed) != 1 || failed[0].Name != "NATS JetStream" {
		t.Fatalf("expected broker failure, got %+v", failed)
	}
}

func TestRunAll_IncludesTicketmasterWhenEnabled(t *testing.T) {
	srv := ticketmasterServer(t)
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.GoOut.Enabled = false
	cfg.Ticketportal.Enabled = false
	cfg.Ticketmaster.BaseURL = srv.URL + "/discovery/v2/"
	cfg.Ticketmaster.APIKey = "good-key"

	found := false
	for _, r := range RunAll(context.Background(), &cfg, RoleScraper) {
		if r.Name == "Ticketmaster API" {
			found = true
			if !r.Passed {
				t.Errorf("Ticketmaster check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected Ticketmaster check in results")
	}
}

func TestRunAll_BrowserCheckOnlyForScrapingRoles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAdapters("goout"), testsupport.WithStubbedBinaries())
	cfg.Browser.ExecPath = ""

	browser := func(results []Result) *Result {
		for i := range results {
			if results[i].Name == "Chromium" {
				return &results[i]
			}
		}
		return nil
	}
	got := browser(RunAll(context.Background(), cfg, RoleScraper))
	if got == nil || !got.Passed {
		t.Fatalf("expected passing browser check, got %+v", got)
	}
	if got := browser(RunAll(context.Background(), cfg, RoleHandler)); got != nil {
		t.Fatalf("handler role must not check the browser, got %+v", got)
	}
}
