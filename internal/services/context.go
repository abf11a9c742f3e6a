package services

import "context"

type contextKey string

const (
	adapterKey   contextKey = "adapter"
	runIDKey     contextKey = "run_id"
	sourceURLKey contextKey = "source_url"
	eventIDKey   contextKey = "event_id"
)

// WithAdapter annotates context with the source adapter name.
func WithAdapter(ctx context.Context, adapter string) context.Context {
	if adapter == "" {
		return ctx
	}
	return context.WithValue(ctx, adapterKey, adapter)
}

// AdapterFromContext returns the adapter name if present.
func AdapterFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(adapterKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the identifier of a single adapter run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSourceURL annotates context with the page or endpoint being processed.
func WithSourceURL(ctx context.Context, url string) context.Context {
	if url == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceURLKey, url)
}

// SourceURLFromContext returns the source URL if present.
func SourceURLFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceURLKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithEventID annotates context with a canonical event identifier.
func WithEventID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, eventIDKey, id)
}

// EventIDFromContext returns the event identifier if present.
func EventIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(eventIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
