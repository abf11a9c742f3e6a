package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mec/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TICKETMASTER_API_KEY", "test-key")
	t.Setenv("MEC_NATS_URL", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "mec")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.QueueDBPath() != filepath.Join(wantState, "queue.db") {
		t.Fatalf("unexpected queue db path: %q", cfg.QueueDBPath())
	}
	if cfg.Ticketmaster.APIKey != "test-key" {
		t.Fatalf("expected ticketmaster key from env, got %q", cfg.Ticketmaster.APIKey)
	}
	if cfg.Ticketmaster.DailyHour != 2 || cfg.GoOut.DailyHour != 2 || cfg.Ticketportal.DailyHour != 3 {
		t.Fatalf("unexpected daily hours: %d %d %d", cfg.Ticketmaster.DailyHour, cfg.GoOut.DailyHour, cfg.Ticketportal.DailyHour)
	}
	if cfg.BrokerEnabled() {
		t.Fatal("expected broker disabled without nats_url")
	}
	if cfg.Handler.DoorPolicy != "equal-or-later" {
		t.Fatalf("unexpected door policy %q", cfg.Handler.DoorPolicy)
	}
	if !strings.HasPrefix(cfg.Handler.GraphFile, tempHome) {
		t.Fatalf("expected graph file under home, got %q", cfg.Handler.GraphFile)
	}
}

func TestLoadMissingTicketmasterKey(t *testing.T) {
	t.Setenv("TICKETMASTER_API_KEY", "")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !strings.Contains(err.Error(), "ticketmaster.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	t.Setenv("TICKETMASTER_API_KEY", "")
	t.Setenv("MEC_NATS_URL", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[paths]
state_dir = "~/state"

[logging]
format = "JSON"
level = "Debug"

[ticketmaster]
api_key = "file-key"
page_size = 50

[goout]
enabled = false
daily_hour = 99

[queue]
nats_url = "nats://127.0.0.1:4222"
subject_prefix = ".events."

[handler]
door_policy = "Strict"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir %q", cfg.Paths.StateDir)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Ticketmaster.APIKey != "file-key" || cfg.Ticketmaster.PageSize != 50 {
		t.Fatalf("ticketmaster overrides not applied: %+v", cfg.Ticketmaster)
	}
	if !cfg.BrokerEnabled() || cfg.Queue.SubjectPrefix != "events" {
		t.Fatalf("queue overrides not applied: %+v", cfg.Queue)
	}
	if cfg.Handler.DoorPolicy != "strict" {
		t.Fatalf("unexpected door policy %q", cfg.Handler.DoorPolicy)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Setenv("TICKETMASTER_API_KEY", "k")
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nstaging_dir = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"hour", func(c *config.Config) { c.Ticketportal.DailyHour = 24 }, "ticketportal.daily_hour"},
		{"door policy", func(c *config.Config) { c.Handler.DoorPolicy = "lenient" }, "door_policy"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"poll", func(c *config.Config) { c.Dispatcher.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"sinks", func(c *config.Config) { c.Handler.GraphFile = ""; c.Handler.OutputSubject = "" }, "graph_file"},
		{"base url", func(c *config.Config) { c.GoOut.BaseURL = "goout.net" }, "goout.base_url"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "alerts" }, "notifications.ntfy_topic"},
		{"output loop", func(c *config.Config) { c.Handler.OutputSubject = c.Queue.SubjectPrefix + ".graph" }, "subject_prefix"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		cfg.Ticketmaster.APIKey = "k"
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Dispatcher.Timezone != "Europe/Prague" {
		t.Fatalf("unexpected sample timezone %q", cfg.Dispatcher.Timezone)
	}

	t.Setenv("TICKETMASTER_API_KEY", "k")
	t.Setenv("HOME", dir)
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config fails validation: %v", err)
	}
}
