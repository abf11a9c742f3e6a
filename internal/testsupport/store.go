package testsupport

import (
	"context"
	"testing"
	"time"

	"mec/internal/config"
	"mec/internal/event"
	"mec/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEvent builds a complete event that passes validation.
func NewEvent(name string, start time.Time) *event.MusicEvent {
	ev := event.NewMusicEvent(name, "https://example.com/events/"+name, start)
	artist := event.NewArtist(name)
	artist.Genres = []string{"rock"}
	ev.AddArtist(artist)
	venue := event.NewVenue("Lucerna")
	venue.Address = event.NewAddress("CZ", "Praha", "Vodičkova 36")
	ev.Venues = []*event.Venue{venue}
	ev.Ticket = event.NewTicket("https://example.com/tickets/"+name, event.InStock)
	return ev
}

// Enqueue stores an envelope for tests.
func Enqueue(t testing.TB, store *queue.Store, adapter string, ev *event.MusicEvent) int64 {
	t.Helper()

	id, err := store.Enqueue(context.Background(), adapter, ev)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return id
}
