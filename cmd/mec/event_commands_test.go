package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mec/internal/event"
	"mec/internal/queue"
	"mec/internal/testsupport"
)

func writeJSONFile(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestValidateCommand(t *testing.T) {
	env := setupCLITestEnv(t, "")

	good := testsupport.NewEvent("fontaines", time.Now().Add(72*time.Hour))
	out, _, err := runCLI(t, []string{"validate", writeJSONFile(t, good)}, env.configPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	requireContains(t, out, "fontaines: valid")

	bad := testsupport.NewEvent("late", time.Now().Add(-time.Hour))
	bad.Ticket.URL = "nowhere"
	out, _, err = runCLI(t, []string{"validate", writeJSONFile(t, queue.Envelope{Event: bad})}, env.configPath)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	requireContains(t, out, "startDate")
	requireContains(t, out, "ticket.url")
}

func TestValidateDoorPolicyFlag(t *testing.T) {
	env := setupCLITestEnv(t, "")
	ev := testsupport.NewEvent("doors", time.Now().Add(24*time.Hour))
	doors := ev.StartDate
	ev.DoorTime = &doors
	path := writeJSONFile(t, ev)

	if _, _, err := runCLI(t, []string{"validate", path}, env.configPath); err != nil {
		t.Fatalf("default policy must accept doors at start: %v", err)
	}
	out, _, err := runCLI(t, []string{"validate", "--door-policy", "strict", path}, env.configPath)
	if err == nil {
		t.Fatal("strict policy must reject doors at start")
	}
	requireContains(t, out, "doorTime")
}

func TestSerializeCommand(t *testing.T) {
	env := setupCLITestEnv(t, "")
	ev := testsupport.NewEvent("kneecap", time.Now().Add(96*time.Hour))
	ev.EnsureIDs()

	out, _, err := runCLI(t, []string{"serialize", writeJSONFile(t, queue.Envelope{Event: ev})}, env.configPath)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !strings.HasSuffix(out, " .\n") {
		t.Fatalf("output is not N-Triples:\n%s", out)
	}
	requireContains(t, out, ev.ID)
	requireContains(t, out, "\"kneecap\"")

	triples, err := event.Serialize(ev)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if got := strings.Count(out, "\n"); got != len(triples) {
		t.Fatalf("expected %d lines, got %d", len(triples), got)
	}

	past := testsupport.NewEvent("past", time.Now().Add(-time.Hour))
	if _, _, err := runCLI(t, []string{"serialize", writeJSONFile(t, past)}, env.configPath); err == nil {
		t.Fatal("expected invalid events to be refused")
	}
	if _, _, err := runCLI(t, []string{"serialize", "--no-validate", writeJSONFile(t, past)}, env.configPath); err != nil {
		t.Fatalf("--no-validate: %v", err)
	}
}
