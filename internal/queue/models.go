package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mec/internal/event"
)

// Status is the outbox lifecycle of one envelope.
type Status string

const (
	// StatusPending is waiting for the relay.
	StatusPending Status = "pending"
	// StatusPublished reached the broker.
	StatusPublished Status = "published"
	// StatusFailed exhausted its publish attempts or was rejected outright.
	StatusFailed Status = "failed"
)

// ParseStatus validates a status name given on the command line.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusPublished, StatusFailed:
		return Status(value), nil
	default:
		return "", fmt.Errorf("unknown outbox status %q", value)
	}
}

// Envelope is the message body placed on the events queue.
type Envelope struct {
	Event *event.MusicEvent `json:"event"`
}

// ErrEmptyEnvelope is returned when a message carries no event.
var ErrEmptyEnvelope = errors.New("envelope has no event")

// Encode renders the envelope as JSON.
func (e Envelope) Encode() ([]byte, error) {
	if e.Event == nil {
		return nil, ErrEmptyEnvelope
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses a message body.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == nil {
		return Envelope{}, ErrEmptyEnvelope
	}
	return env, nil
}

// Message is an envelope tagged with the name of the adapter that produced it.
type Message struct {
	Name    string
	EventID string
	Payload []byte
}

// Record is one outbox row.
type Record struct {
	ID           int64
	Name         string
	EventID      string
	EventName    string
	Payload      []byte
	Status       Status
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PublishedAt  time.Time
}

// Message returns the transport view of the row.
func (r *Record) Message() Message {
	return Message{Name: r.Name, EventID: r.EventID, Payload: r.Payload}
}

// Stats counts outbox rows per status.
type Stats struct {
	Pending   int `json:"pending"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// Total returns the number of rows.
func (s Stats) Total() int { return s.Pending + s.Published + s.Failed }
