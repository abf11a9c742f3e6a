package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mec/internal/config"
	"mec/internal/portals"
	"mec/internal/portals/goout"
	"mec/internal/portals/ticketmaster"
	"mec/internal/portals/ticketportal"
	"mec/internal/schedule"
)

// ticketportalDelay keeps the first ticketportal run away from the goout run
// that starts at the same moment, so two browsers are not launched together.
const ticketportalDelay = time.Hour

// Source is an adapter plus the schedule it is registered with.
type Source struct {
	Adapter portals.Adapter
	Cadence schedule.Cadence
	First   time.Time
}

// Sources builds the enabled adapters from configuration. now anchors the
// first runs.
func Sources(cfg *config.Config, now time.Time, logger *slog.Logger) ([]Source, error) {
	loc := cfg.Location()
	var out []Source
	if cfg.Ticketmaster.Enabled {
		a, err := ticketmaster.NewFromConfig(cfg.Ticketmaster, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, Source{Adapter: a, Cadence: schedule.Daily(cfg.Ticketmaster.DailyHour, loc), First: now})
	}
	if cfg.GoOut.Enabled {
		out = append(out, Source{
			Adapter: goout.NewFromConfig(cfg.GoOut, cfg.Browser, logger),
			Cadence: schedule.Daily(cfg.GoOut.DailyHour, loc),
			First:   now,
		})
	}
	if cfg.Ticketportal.Enabled {
		out = append(out, Source{
			Adapter: ticketportal.NewFromConfig(cfg.Ticketportal, cfg.Browser, logger),
			Cadence: schedule.Daily(cfg.Ticketportal.DailyHour, loc),
			First:   now.Add(ticketportalDelay),
		})
	}
	return out, nil
}

// Lookup returns the enabled adapter with the given name.
func Lookup(sources []Source, name string) (portals.Adapter, error) {
	for _, src := range sources {
		if src.Adapter.Name() == name {
			return src.Adapter, nil
		}
	}
	return nil, fmt.Errorf("unknown or disabled adapter %q", name)
}

// RegisterAll registers every source.
func (d *Dispatcher) RegisterAll(ctx context.Context, sources []Source) error {
	for _, src := range sources {
		if err := d.Register(ctx, src.Adapter, src.Cadence, src.First); err != nil {
			return err
		}
	}
	return nil
}
