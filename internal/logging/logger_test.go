package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mec/internal/config"
	"mec/internal/logging"
	"mec/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (func(), string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{
		Format:      format,
		Level:       level,
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	emit := func() {
		component := logging.NewComponentLogger(logger, "dispatcher")
		component.Info("adapter run finished", logging.String("adapter", "goout"), logging.Int("published", 3))
		component.Debug("poll tick")
	}
	return emit, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesRoleLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg, "scraper")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "mec-scraper.log"))
	if !strings.Contains(content, `"msg":"hello"`) {
		t.Fatalf("expected message in role log, got %q", content)
	}
}

func TestConsoleFormatPlacesComponentBeforeMessage(t *testing.T) {
	emit, path := newFileLogger(t, "console", "info")
	emit()
	content := readLog(t, path)

	if !strings.Contains(content, "INFO dispatcher: adapter run finished") {
		t.Fatalf("unexpected console layout: %q", content)
	}
	if !strings.Contains(content, "adapter=goout published=3") {
		t.Fatalf("expected key/value pairs, got %q", content)
	}
	if strings.Contains(content, "poll tick") {
		t.Fatalf("debug line should be filtered at info level: %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", content)
	}
}

func TestConsoleIncludesCallerForDebug(t *testing.T) {
	emit, path := newFileLogger(t, "console", "debug")
	emit()
	content := readLog(t, path)
	if !strings.Contains(content, "poll tick") || !strings.Contains(content, ".go:") {
		t.Fatalf("expected debug line with caller, got %q", content)
	}
}

func TestJSONFormatRenamesKeys(t *testing.T) {
	emit, path := newFileLogger(t, "json", "info")
	emit()
	line := strings.TrimSpace(readLog(t, path))

	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("decode json line %q: %v", line, err)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", record["level"])
	}
	if record["component"] != "dispatcher" || record["adapter"] != "goout" {
		t.Fatalf("unexpected fields %v", record)
	}
}

func TestAutoFormatFallsBackToJSONForFiles(t *testing.T) {
	emit, path := newFileLogger(t, "auto", "info")
	emit()
	if !strings.HasPrefix(readLog(t, path), "{") {
		t.Fatal("expected json output when writing to a file")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithAdapter(context.Background(), "ticketportal")
	ctx = services.WithRunID(ctx, "run-7")
	logging.WarnWithContext(logging.WithContext(ctx, logger), "extraction failed", "extraction_failed")

	content := readLog(t, logPath)
	for _, fragment := range []string{"adapter=ticketportal", "run_id=run-7", "event_type=extraction_failed", "error_hint=", "impact="} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.ErrorWithContext(nil, "ignored", "none")
}
