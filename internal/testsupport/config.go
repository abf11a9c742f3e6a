package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mec/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Network-facing settings point nowhere so tests never reach a real service.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Handler.GraphFile = filepath.Join(base, "graph", "events.nt")
	cfgVal.Ticketmaster.APIKey = "test"
	cfgVal.Queue.NATSURL = ""
	cfgVal.Metrics.Bind = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithTicketmasterURL points the REST adapter at a test server.
func WithTicketmasterURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ticketmaster.BaseURL = url
	}
}

// WithAdapters enables only the named adapters.
func WithAdapters(names ...string) ConfigOption {
	return func(b *configBuilder) {
		enabled := make(map[string]bool, len(names))
		for _, name := range names {
			enabled[name] = true
		}
		b.cfg.Ticketmaster.Enabled = enabled["ticketmaster"]
		b.cfg.GoOut.Enabled = enabled["goout"]
		b.cfg.Ticketportal.Enabled = enabled["ticketportal"]
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, a stub chromium is written.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"chromium"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
