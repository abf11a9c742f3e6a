package ticketportal

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"mec/internal/config"
	"mec/internal/event"
	"mec/internal/logging"
	"mec/internal/portals"
	"mec/internal/services"
)

// Adapter scrapes the ticketportal.cz music catalog one genre at a time.
type Adapter struct {
	open   func(ctx context.Context) (site, error)
	logger *slog.Logger
}

// NewFromConfig builds an adapter driving a headless browser.
func NewFromConfig(cfg config.Ticketportal, browser config.Browser, logger *slog.Logger) *Adapter {
	opts := portals.BrowserOptionsFromConfig(browser)
	a := newAdapter(nil, logger)
	a.open = func(ctx context.Context) (site, error) {
		return openBrowserSite(ctx, cfg.BaseURL, opts, a.logger)
	}
	return a
}

func newAdapter(open func(ctx context.Context) (site, error), logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{open: open, logger: logging.NewComponentLogger(logger, portals.Ticketportal)}
}

// Name implements portals.Adapter.
func (a *Adapter) Name() string { return portals.Ticketportal }

// venueResult memoizes one venue page visit for the run.
type venueResult struct {
	venue *event.Venue
	err   error
}

// run holds the per-run state shared across categories.
type run struct {
	site   site
	venues map[string]venueResult
	logger *slog.Logger
}

// Candidates implements portals.Adapter. A failing category is logged and
// the next one is scanned.
func (a *Adapter) Candidates(ctx context.Context) iter.Seq2[*event.MusicEvent, error] {
	return func(yield func(*event.MusicEvent, error) bool) {
		logger := logging.WithContext(ctx, a.logger)
		s, err := a.open(ctx)
		if err != nil {
			yield(nil, services.Wrap(services.ErrExternal, portals.Ticketportal, "launch browser", "", err))
			return
		}
		defer s.Close()

		if err := s.Setup(ctx); err != nil {
			yield(nil, services.Wrap(services.ErrExternal, portals.Ticketportal, "setup", "", err))
			return
		}
		doc, err := s.Categories(ctx)
		if err != nil {
			yield(nil, services.Wrap(services.ErrExternal, portals.Ticketportal, "read categories", "", err))
			return
		}
		names := categories(doc)
		if len(names) == 0 {
			yield(nil, services.Wrap(services.ErrExternal, portals.Ticketportal, "read categories", "no genre filters found", nil))
			return
		}

		r := &run{site: s, venues: make(map[string]venueResult), logger: logger}
		for _, name := range names {
			if !r.category(ctx, name, yield) {
				return
			}
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}
		}
	}
}

// category scans one genre. It reports false when the consumer stopped.
func (r *run) category(ctx context.Context, name string, yield func(*event.MusicEvent, error) bool) bool {
	doc, err := r.site.OpenCategory(ctx, name)
	if err != nil {
		logging.WarnWithContext(r.logger, "category skipped", "category_failed",
			logging.String("category", name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "category not scanned this run"),
		)
		return true
	}
	links := panelLinks(doc)
	r.logger.Debug("category expanded", logging.String("category", name), logging.Int("links", len(links)))

	// A multi-date listing is linked once per date; all of its dates are
	// emitted on the first visit.
	expanded := make(map[string]struct{})
	for _, link := range links {
		if _, ok := expanded[link]; ok {
			continue
		}
		page, err := r.site.Page(ctx, link)
		if err != nil {
			if !yield(nil, portals.Extraction(portals.Ticketportal, link, fmt.Errorf("load event page: %w", err))) {
				return false
			}
			continue
		}
		if ticketCount(page) > 1 {
			expanded[link] = struct{}{}
		}

		rows, errs := ticketRows(page)
		for _, err := range errs {
			if !yield(nil, portals.Extraction(portals.Ticketportal, link, err)) {
				return false
			}
		}
		for _, row := range rows {
			ev, err := r.toEvent(ctx, link, row)
			if err != nil {
				err = portals.Extraction(portals.Ticketportal, link, err)
			}
			if !yield(ev, err) {
				return false
			}
		}
	}
	return true
}

func (r *run) toEvent(ctx context.Context, link string, row ticketRow) (*event.MusicEvent, error) {
	venue, err := r.venue(ctx, row)
	if err != nil {
		return nil, err
	}
	ev := event.NewMusicEvent(row.Name, link, row.Start)
	ev.Venues = []*event.Venue{venue}
	availability := event.InStock
	if row.SoldOut {
		availability = event.SoldOut
	}
	ev.Ticket = event.NewTicket(link, availability)
	return ev, nil
}

// venue resolves the venue page once per run and falls back to the name and
// city printed on the ticket row.
func (r *run) venue(ctx context.Context, row ticketRow) (*event.Venue, error) {
	if row.VenueURL != "" {
		res, ok := r.venues[row.VenueURL]
		if !ok {
			res = r.fetchVenue(ctx, row.VenueURL)
			r.venues[row.VenueURL] = res
		}
		if res.err == nil {
			return copyVenue(res.venue), nil
		}
		r.logger.Debug("venue page unusable, using ticket row",
			logging.String(logging.FieldSourceURL, row.VenueURL),
			logging.Error(res.err),
		)
	}
	return fallbackVenue(row)
}

func (r *run) fetchVenue(ctx context.Context, link string) venueResult {
	doc, err := r.site.Page(ctx, link)
	if err != nil {
		return venueResult{err: err}
	}
	venue, err := parseVenuePage(doc)
	return venueResult{venue: venue, err: err}
}
