package portals

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"mec/internal/event"
)

// Adapter names.
const (
	Ticketmaster = "ticketmaster"
	GoOut        = "goout"
	Ticketportal = "ticketportal"
)

// Adapter extracts canonical events from one external source.
//
// Candidates returns a finite, non-restartable sequence for one run. Each
// element is either an unvalidated event or an error:
//   - *ExtractionError: one record failed; the caller logs it and continues.
//   - *DeferError: the source asked to be left alone; the run ends and the
//     next run must not start before Until.
//   - anything else: the run failed; it is the last element.
//
// Resources acquired for the run (HTTP connections, the browser process) are
// released when the sequence finishes or the caller stops iterating.
type Adapter interface {
	Name() string
	Candidates(ctx context.Context) iter.Seq2[*event.MusicEvent, error]
}

// Resumable is implemented by adapters that keep scan progress between
// runs. Progress is persisted with the schedule state and restored on start.
type Resumable interface {
	Progress() string
	Restore(progress string) error
}

// ExtractionError is a per-record failure.
type ExtractionError struct {
	Adapter string
	URL     string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: extraction failed: %v", e.Adapter, e.Err)
	}
	return fmt.Sprintf("%s: extraction failed [%s]: %v", e.Adapter, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extraction builds an ExtractionError.
func Extraction(adapter, url string, err error) error {
	return &ExtractionError{Adapter: adapter, URL: url, Err: err}
}

// DeferError asks the scheduler to hold the next run until Until.
type DeferError struct {
	Until time.Time
	Err   error
}

func (e *DeferError) Error() string {
	msg := "run deferred until " + e.Until.UTC().Format(time.RFC3339)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeferError) Unwrap() error { return e.Err }

// IsExtraction reports whether err is a per-record failure.
func IsExtraction(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// AsDefer extracts a DeferError from err.
func AsDefer(err error) (*DeferError, bool) {
	var target *DeferError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Collect drains an adapter run. Extraction errors are passed to onSkip and
// the run error, if any, is returned.
func Collect(ctx context.Context, a Adapter, onSkip func(error)) ([]*event.MusicEvent, error) {
	var out []*event.MusicEvent
	for ev, err := range a.Candidates(ctx) {
		if err != nil {
			if IsExtraction(err) {
				if onSkip != nil {
					onSkip(err)
				}
				continue
			}
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}
