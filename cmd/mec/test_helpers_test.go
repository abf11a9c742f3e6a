package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mec/internal/config"
	"mec/internal/queue"
	"mec/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	configPath string
	baseDir    string
}

// setupCLITestEnv writes a config file for a temp state directory. Only the
// ticketmaster adapter is enabled, pointed at tmURL when given.
func setupCLITestEnv(t *testing.T, tmURL string) *cliTestEnv {
	t.Helper()

	opts := []testsupport.ConfigOption{testsupport.WithAdapters("ticketmaster")}
	if tmURL != "" {
		opts = append(opts, testsupport.WithTicketmasterURL(tmURL))
	}
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "mec.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[ticketmaster]
enabled = %t
api_key = %q
base_url = %q
request_interval_ms = 0

[goout]
enabled = false

[ticketportal]
enabled = false

[handler]
graph_file = %q
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Ticketmaster.Enabled,
		cfg.Ticketmaster.APIKey,
		cfg.Ticketmaster.BaseURL,
		cfg.Handler.GraphFile,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
