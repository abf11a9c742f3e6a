package schedule

import (
	"errors"
	"time"
)

// ErrBusy is returned by Begin when a run is already in flight.
var ErrBusy = errors.New("run already in progress")

// ErrNotDue is returned by Begin before the next eligible run time.
var ErrNotDue = errors.New("run not due yet")

// State tracks one adapter: Idle (Busy false) or Running (Busy true).
// It is not safe for concurrent use; the dispatcher serializes access.
type State struct {
	Name    string
	Cadence Cadence
	Busy    bool
	NextRun time.Time

	LastStart  time.Time
	LastFinish time.Time
	LastError  string
	Runs       int
	Failures   int
}

// NewState creates an idle state whose first run is eligible at first.
func NewState(name string, cadence Cadence, first time.Time) *State {
	return &State{Name: name, Cadence: cadence, NextRun: first}
}

// Eligible reports whether a run may start at now.
func (s *State) Eligible(now time.Time) bool {
	return !s.Busy && !s.NextRun.After(now)
}

// Begin moves the state to Running.
func (s *State) Begin(now time.Time) error {
	if s.Busy {
		return ErrBusy
	}
	if s.NextRun.After(now) {
		return ErrNotDue
	}
	s.Busy = true
	s.LastStart = now
	return nil
}

// Finish moves the state back to Idle and advances NextRun. notBefore, when
// non-zero, is a lower bound such as a rate-limit reset. runErr is recorded
// but never prevents the schedule from advancing.
func (s *State) Finish(now, notBefore time.Time, runErr error) {
	next := s.Cadence.Next(s.NextRun, now)
	if notBefore.After(next) {
		next = notBefore
	}
	s.Busy = false
	s.NextRun = next
	s.LastFinish = now
	s.Runs++
	if runErr != nil {
		s.Failures++
		s.LastError = runErr.Error()
	} else {
		s.LastError = ""
	}
}

// Snapshot is a copy of State suitable for persistence and display.
type Snapshot struct {
	Name       string    `json:"name"`
	Cadence    string    `json:"cadence"`
	Busy       bool      `json:"busy"`
	NextRun    time.Time `json:"next_run"`
	LastStart  time.Time `json:"last_start"`
	LastFinish time.Time `json:"last_finish"`
	LastError  string    `json:"last_error,omitempty"`
	Runs       int       `json:"runs"`
	Failures   int       `json:"failures"`
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Name:       s.Name,
		Cadence:    s.Cadence.String(),
		Busy:       s.Busy,
		NextRun:    s.NextRun,
		LastStart:  s.LastStart,
		LastFinish: s.LastFinish,
		LastError:  s.LastError,
		Runs:       s.Runs,
		Failures:   s.Failures,
	}
}
