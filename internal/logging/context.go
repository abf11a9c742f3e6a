package logging

import (
	"context"
	"log/slog"

	"mec/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldAdapter names the source adapter (ticketmaster, goout, ticketportal).
	FieldAdapter = "adapter"
	// FieldRunID identifies one adapter run.
	FieldRunID = "run_id"
	// FieldSourceURL is the page or API URL a record was extracted from.
	FieldSourceURL = "source_url"
	// FieldEventID is the canonical MusicEvent identifier.
	FieldEventID = "event_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if v, ok := services.AdapterFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAdapter, v))
	}
	if v, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, v))
	}
	if v, ok := services.SourceURLFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSourceURL, v))
	}
	if v, ok := services.EventIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEventID, v))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
