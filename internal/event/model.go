package event

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the ticket sale state.
type Availability string

const (
	InStock Availability = "InStock"
	SoldOut Availability = "SoldOut"
)

// MusicEvent is the canonical record every adapter produces.
type MusicEvent struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	Artists   []*Artist  `json:"artists"`
	Venues    []*Venue   `json:"venues"`
	DoorTime  *time.Time `json:"doorTime,omitempty"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Ticket    *Ticket    `json:"ticket"`
}

// Artist performs at an event. Artists are owned by one event and never shared.
type Artist struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	SameAs []string `json:"sameAs"`
}

// Venue is resolvable either by coordinates or by address.
type Venue struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   *Address `json:"address,omitempty"`
}

// Address is a postal address.
type Address struct {
	ID       string `json:"id,omitempty"`
	Country  string `json:"country"`
	Locality string `json:"locality"`
	Street   string `json:"street,omitempty"`
}

// Ticket is the offer attached to an event.
type Ticket struct {
	ID           string       `json:"id,omitempty"`
	URL          string       `json:"url"`
	Availability Availability `json:"availability"`
}

// NewID mints a time-ordered identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func NewMusicEvent(name, url string, start time.Time) *MusicEvent {
	return &MusicEvent{ID: NewID(), Name: name, URL: url, StartDate: start}
}

func NewArtist(name string) *Artist {
	return &Artist{ID: NewID(), Name: name}
}

func NewVenue(name string) *Venue {
	return &Venue{ID: NewID(), Name: name}
}

func NewAddress(country, locality, street string) *Address {
	return &Address{ID: NewID(), Country: country, Locality: locality, Street: street}
}

func NewTicket(url string, availability Availability) *Ticket {
	return &Ticket{ID: NewID(), URL: url, Availability: availability}
}

// SetCoordinates sets both coordinates at once.
func (v *Venue) SetCoordinates(lat, lon float64) {
	v.Latitude = &lat
	v.Longitude = &lon
}

// EnsureIDs fills missing identifiers on the event and every nested entity.
// Existing identifiers are never replaced.
func (e *MusicEvent) EnsureIDs() {
	if e == nil {
		return
	}
	fill(&e.ID)
	for _, a := range e.Artists {
		if a != nil {
			fill(&a.ID)
		}
	}
	for _, v := range e.Venues {
		if v == nil {
			continue
		}
		fill(&v.ID)
		if v.Address != nil {
			fill(&v.Address.ID)
		}
	}
	if e.Ticket != nil {
		fill(&e.Ticket.ID)
	}
}

func fill(id *string) {
	if *id == "" {
		*id = NewID()
	}
}

// AddArtist appends an artist unless one with the same name is present.
func (e *MusicEvent) AddArtist(a *Artist) {
	if a == nil {
		return
	}
	for _, existing := range e.Artists {
		if existing != nil && existing.Name == a.Name {
			return
		}
	}
	e.Artists = append(e.Artists, a)
}
