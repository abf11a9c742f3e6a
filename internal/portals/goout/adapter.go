package goout

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

// Adapter scrapes the goout.net concert listing.
type Adapter struct {
	open   func(ctx context.Context) (site, error)
	logger *slog.Logger
}

// NewFromConfig builds an adapter driving a headless browser.
func NewFromConfig(cfg config.GoOut, browser config.Browser, logger *slog.Logger) *Adapter {
	opts := siteOptions{
		BaseURL:      cfg.BaseURL,
		Country:      cfg.Country,
		CookieDomain: cfg.CookieDomain,
		Browser:      portals.BrowserOptionsFromConfig(browser),
	}
	return newAdapter(func(ctx context.Context) (site, error) {
		return openBrowserSite(ctx, opts)
	}, logger)
}

func newAdapter(open func(ctx context.Context) (site, error), logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Adapter{open: open, logger: logging.NewComponentLogger(logger, portals.GoOut)}
}

// Name implements portals.Adapter.
func (a *Adapter) Name() string { return portals.GoOut }

// Candidates implements portals.Adapter. Each round visits the links the
// previous "Show more" revealed. Scanning ends when a round reveals nothing
// new or pagination fails; a pagination failure is logged, not returned.
func (a *Adapter) Candidates(ctx context.Context) iter.Seq2[*event.MusicEvent, error] {
	return func(yield func(*event.MusicEvent, error) bool) {
		logger := logging.WithContext(ctx, a.logger)
		s, err := a.open(ctx)
		if err != nil {
			yield(nil, services.Wrap(services.ErrExternal, portals.GoOut, "launch browser", "", err))
			return
		}
		defer s.Close()

		if err := s.Setup(ctx); err != nil {
			yield(nil, services.Wrap(services.ErrExternal, portals.GoOut, "setup", "", err))
			return
		}

		seen := make(map[string]struct{})
		for round := 1; ; round++ {
			doc, err := s.Listing(ctx)
			if err != nil {
				if round == 1 {
					yield(nil, services.Wrap(services.ErrExternal, portals.GoOut, "read listing", "", err))
				} else {
					logger.Info("listing unavailable, stopping scan", logging.Int("round", round), logging.Error(err))
				}
				return
			}

			fresh := 0
			for _, link := range listingLinks(doc) {
				if _, ok := seen[link]; ok {
					continue
				}
				seen[link] = struct{}{}
				fresh++
				ev, err := a.extract(ctx, s, link)
				if err != nil {
					err = portals.Extraction(portals.GoOut, link, err)
				}
				if !yield(ev, err) {
					return
				}
			}
			logger.Debug("listing round complete", logging.Int("round", round), logging.Int("new_links", fresh), logging.Int("total_links", len(seen)))
			if fresh == 0 {
				logger.Info("no new listing entries, stopping scan", logging.Int("links", len(seen)))
				return
			}

			if err := s.ShowMore(ctx); err != nil {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return
				}
				logger.Info("pagination stopped", logging.Int("round", round), logging.Int("links", len(seen)), logging.Error(err))
				return
			}
		}
	}
}

func (a *Adapter) extract(ctx context.Context, s site, link string) (*event.MusicEvent, error) {
	doc, err := s.Page(ctx, link)
	if err != nil {
		return nil, fmt.Errorf("load event page: %w", err)
	}
	ev, refs, err := parseEvent(doc, link)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*event.Artist, len(ev.Artists))
	for _, artist := range ev.Artists {
		byName[artist.Name] = artist
	}
	for _, ref := range refs {
		artist := byName[ref.Name]
		if artist == nil || ref.Profile == "" {
			continue
		}
		profile, err := s.Page(ctx, ref.Profile)
		if err != nil {
			a.logger.Debug("artist profile unavailable", logging.String(logging.FieldSourceURL, ref.Profile), logging.Error(err))
			continue
		}
		if link := spotifyLink(profile); link != "" {
			artist.SameAs = append(artist.SameAs, link)
		}
	}
	return ev, nil
}
