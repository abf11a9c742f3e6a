package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mec/internal/queue"
	"mec/internal/services"
	"mec/internal/testsupport"
)

func TestOutboxListRetryPurge(t *testing.T) {
	env := setupCLITestEnv(t, "")
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"outbox", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("outbox list: %v", err)
	}
	requireContains(t, out, "Outbox is empty")

	start := time.Now().Add(48 * time.Hour)
	published := testsupport.Enqueue(t, env.store, "goout", testsupport.NewEvent("published", start))
	failed := testsupport.Enqueue(t, env.store, "ticketmaster", testsupport.NewEvent("failed", start))
	if err := env.store.MarkPublished(ctx, published); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	rejected := services.Wrap(services.ErrValidation, "ticketmaster", "publish", "rejected by broker", errors.New("bad payload"))
	if status, err := env.store.MarkFailed(ctx, failed, rejected); err != nil || status != queue.StatusFailed {
		t.Fatalf("MarkFailed: status %s err %v", status, err)
	}

	out, _, err = runCLI(t, []string{"outbox", "list", "--status", "failed", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("outbox list --json: %v", err)
	}
	var rows []outboxRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode list output: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].ID != failed || rows[0].Adapter != "ticketmaster" || rows[0].Error == "" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	out, _, err = runCLI(t, []string{"outbox", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("outbox list: %v", err)
	}
	requireContains(t, out, "published")
	requireContains(t, out, "failed")

	out, _, err = runCLI(t, []string{"outbox", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("outbox retry: %v", err)
	}
	requireContains(t, out, "Returned 1 envelope(s)")
	rec, err := env.store.Get(ctx, failed)
	if err != nil || rec.Status != queue.StatusPending {
		t.Fatalf("retry did not reset the row: %+v %v", rec, err)
	}

	out, _, err = runCLI(t, []string{"outbox", "purge"}, env.configPath)
	if err != nil {
		t.Fatalf("outbox purge: %v", err)
	}
	requireContains(t, out, "Purged 1 envelope(s)")

	if _, _, err := runCLI(t, []string{"outbox", "list", "--status", "lost"}, env.configPath); err == nil {
		t.Fatal("expected unknown status error")
	}
	if _, _, err := runCLI(t, []string{"outbox", "retry", "abc"}, env.configPath); err == nil {
		t.Fatal("expected invalid id error")
	}
}

func TestStatusReportsOutboxAndSchedules(t *testing.T) {
	env := setupCLITestEnv(t, "")
	testsupport.Enqueue(t, env.store, "goout", testsupport.NewEvent("a", time.Now().Add(time.Hour)))

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if report.Outbox.Pending != 1 || len(report.Daemons) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, d := range report.Daemons {
		if d.Running {
			t.Fatalf("no daemon runs in tests: %+v", d)
		}
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No adapter has run yet")
	requireContains(t, out, "not running")
}
