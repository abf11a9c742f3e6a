package portals_test

import (
	"context"
	"errors"
	"iter"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mec/internal/event"
	"mec/internal/portals"
)

type scripted struct {
	items []any
}

func (s scripted) Name() string { return "scripted" }

func (s scripted) Candidates(context.Context) iter.Seq2[*event.MusicEvent, error] {
	return func(yield func(*event.MusicEvent, error) bool) {
		for _, item := range s.items {
			var ok bool
			switch v := item.(type) {
			case error:
				ok = yield(nil, v)
			case *event.MusicEvent:
				ok = yield(v, nil)
			}
			if !ok {
				return
			}
		}
	}
}

func TestCollectSkipsExtractionErrors(t *testing.T) {
	a := scripted{items: []any{
		&event.MusicEvent{Name: "one"},
		portals.Extraction("scripted", "https://example.test/2", errors.New("no venue")),
		&event.MusicEvent{Name: "three"},
	}}
	var skipped []error
	events, err := portals.Collect(context.Background(), a, func(err error) { skipped = append(skipped, err) })
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(events) != 2 || events[1].Name != "three" {
		t.Fatalf("unexpected events %+v", events)
	}
	if len(skipped) != 1 || !strings.Contains(skipped[0].Error(), "https://example.test/2") {
		t.Fatalf("unexpected skipped %v", skipped)
	}
}

func TestCollectStopsOnRunError(t *testing.T) {
	boom := errors.New("listing unreachable")
	a := scripted{items: []any{&event.MusicEvent{Name: "one"}, boom, &event.MusicEvent{Name: "never"}}}
	events, err := portals.Collect(context.Background(), a, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected run error, got %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected events before the failure, got %d", len(events))
	}
}

func TestDeferErrorUnwraps(t *testing.T) {
	until := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	err := error(&portals.DeferError{Until: until, Err: errors.New("quota")})
	wrapped := errors.Join(errors.New("run"), err)
	d, ok := portals.AsDefer(wrapped)
	if !ok || !d.Until.Equal(until) {
		t.Fatalf("AsDefer failed: %v", wrapped)
	}
	if !strings.Contains(err.Error(), "2026-03-01T02:00:00Z") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if portals.IsExtraction(err) {
		t.Fatal("defer is not an extraction error")
	}
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-05-01T19:00:00Z", time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)},
		{"2026-05-01T21:00:00+02:00", time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)},
		{"2026-05-01T21:00", time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)},
		{"2026-05-01", time.Date(2026, 4, 30, 22, 0, 0, 0, time.UTC)},
		{"03/05/2026", time.Date(2026, 5, 2, 22, 0, 0, 0, time.UTC)},
		{"1.12.2026 20:00", time.Date(2026, 12, 1, 19, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := portals.ParseTime(tc.in, portals.Prague)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%s: got %v want %v", tc.in, got.UTC(), tc.want)
		}
	}
	if _, err := portals.ParseTime("next friday", nil); err == nil {
		t.Fatal("expected error for free text")
	}
	if _, err := portals.ParseTime("  ", nil); err == nil {
		t.Fatal("expected error for empty value")
	}
}

func TestDOMHelpers(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<div class="event">Main act <span>support</span>  tour</div>
		<a class="rel" href="/en/venue/lucerna/">Lucerna</a>
		<a class="abs" href="https://other.test/x">x</a>
		<ul><li><span class="label">Venue</span><span class="value">Lucerna</span></li></ul>`))
	if err != nil {
		t.Fatal(err)
	}
	doc.Url, _ = url.Parse("https://goout.net/en/events/")

	if got := portals.OwnText(doc.Find(".event")); got != "Main act" {
		t.Fatalf("OwnText = %q", got)
	}
	if got := portals.Text(doc.Find(".event")); got != "Main act support tour" {
		t.Fatalf("Text = %q", got)
	}
	if got := portals.Href(doc, doc.Find("a.rel")); got != "https://goout.net/en/venue/lucerna/" {
		t.Fatalf("Href = %q", got)
	}
	if got := portals.Href(doc, doc.Find("a.abs")); got != "https://other.test/x" {
		t.Fatalf("Href abs = %q", got)
	}
	row := portals.LabeledValue(doc.Selection, "span.label", "Venue", "li")
	if got := portals.Text(row.Find(".value")); got != "Lucerna" {
		t.Fatalf("LabeledValue = %q", got)
	}
	if portals.LabeledValue(doc.Selection, "span.label", "Address", "li").Length() != 0 {
		t.Fatal("expected empty selection for missing label")
	}
}
