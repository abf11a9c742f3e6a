package services_test

import (
	"context"
	"testing"

	"mec/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAdapter(ctx, "goout")
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithSourceURL(ctx, "https://goout.net/en/some-event/")
	ctx = services.WithEventID(ctx, "0190c6c8-0000-7000-8000-000000000000")

	if v, ok := services.AdapterFromContext(ctx); !ok || v != "goout" {
		t.Fatalf("unexpected adapter: %v %v", v, ok)
	}
	if v, ok := services.RunIDFromContext(ctx); !ok || v != "run-1" {
		t.Fatalf("unexpected run id: %v %v", v, ok)
	}
	if v, ok := services.SourceURLFromContext(ctx); !ok || v != "https://goout.net/en/some-event/" {
		t.Fatalf("unexpected source url: %v %v", v, ok)
	}
	if v, ok := services.EventIDFromContext(ctx); !ok || v == "" {
		t.Fatalf("unexpected event id: %v %v", v, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAdapter(ctx, "")
	ctx = services.WithSourceURL(ctx, "")
	if _, ok := services.AdapterFromContext(ctx); ok {
		t.Fatal("expected no adapter value")
	}
	if _, ok := services.SourceURLFromContext(ctx); ok {
		t.Fatal("expected no source url value")
	}
}
