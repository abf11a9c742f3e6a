package schedule

import (
	"fmt"
	"time"
)

// Kind tags a Cadence.
type Kind int

const (
	KindDaily Kind = iota + 1
	KindInterval
)

// Cadence is either a daily wall-clock hour or a fixed interval, never both.
type Cadence struct {
	kind  Kind
	hour  int
	every time.Duration
	loc   *time.Location
}

// Daily runs once a day at hour in loc. A nil loc means time.Local.
func Daily(hour int, loc *time.Location) Cadence {
	if loc == nil {
		loc = time.Local
	}
	return Cadence{kind: KindDaily, hour: hour, loc: loc}
}

// Every runs at a fixed interval.
func Every(d time.Duration) Cadence {
	return Cadence{kind: KindInterval, every: d}
}

func (c Cadence) Kind() Kind { return c.kind }

// Hour is the daily hour; only meaningful for KindDaily.
func (c Cadence) Hour() int { return c.hour }

// Interval is the period; only meaningful for KindInterval.
func (c Cadence) Interval() time.Duration { return c.every }

// Validate rejects cadences that could never produce a future run.
func (c Cadence) Validate() error {
	switch c.kind {
	case KindDaily:
		if c.hour < 0 || c.hour > 23 {
			return fmt.Errorf("daily hour %d out of range", c.hour)
		}
	case KindInterval:
		if c.every <= 0 {
			return fmt.Errorf("interval %s must be positive", c.every)
		}
	default:
		return fmt.Errorf("cadence kind is unset")
	}
	return nil
}

func (c Cadence) String() string {
	switch c.kind {
	case KindDaily:
		return fmt.Sprintf("daily@%02d:00", c.hour)
	case KindInterval:
		return "every " + c.every.String()
	default:
		return "unset"
	}
}

// Next computes the next eligible run after a run that was scheduled for
// prev completed at completed.
//
// Daily: the configured hour on the completion day, moved forward a day at a
// time until strictly after completed. On a day where the hour falls in a
// daylight-saving gap, time.Date normalizes it, so the run starts one hour
// later (02:00 becomes 03:00 on the Europe/Prague spring-forward day).
// Interval: prev plus the interval.
func (c Cadence) Next(prev, completed time.Time) time.Time {
	switch c.kind {
	case KindDaily:
		local := completed.In(c.loc)
		for day := 0; ; day++ {
			candidate := time.Date(local.Year(), local.Month(), local.Day()+day, c.hour, 0, 0, 0, c.loc)
			if candidate.After(completed) {
				return candidate
			}
		}
	case KindInterval:
		return prev.Add(c.every)
	default:
		return completed
	}
}
