package ticketmaster

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"mec/internal/config"
	"mec/internal/event"
	"mec/internal/logging"
	"mec/internal/portals"
	"mec/internal/services"
)

// Adapter walks the Discovery API events listing page by page. The page
// cursor survives between runs so a run stopped by the quota resumes where
// it left off; it returns to the first page once the listing is exhausted.
type Adapter struct {
	client   *Client
	interval time.Duration
	loc      *time.Location
	logger   *slog.Logger

	mu     sync.Mutex
	cursor int
}

// Option customises the adapter.
type Option func(*Adapter)

// WithLocation sets the zone used for timestamps without an offset.
func WithLocation(loc *time.Location) Option {
	return func(a *Adapter) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithRequestInterval sets the pause between page requests.
func WithRequestInterval(d time.Duration) Option {
	return func(a *Adapter) { a.interval = d }
}

// NewAdapter wires the adapter around a client.
func NewAdapter(client *Client, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Adapter{
		client: client,
		loc:    portals.Prague,
		logger: logging.NewComponentLogger(logger, portals.Ticketmaster),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig builds the client and adapter from the [ticketmaster] section.
func NewFromConfig(cfg config.Ticketmaster, logger *slog.Logger) (*Adapter, error) {
	client, err := New(Config{
		BaseURL:        cfg.BaseURL,
		APIKey:         cfg.APIKey,
		CountryCode:    cfg.CountryCode,
		Classification: cfg.Classification,
		Locale:         cfg.Locale,
		Sort:           cfg.Sort,
		PageSize:       cfg.PageSize,
		HTTPClient:     httpClient(cfg.RequestTimeoutSeconds),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, portals.Ticketmaster, "init", "", err)
	}
	return NewAdapter(client, logger,
		WithRequestInterval(time.Duration(cfg.RequestIntervalMillis)*time.Millisecond),
	), nil
}

// Name implements portals.Adapter.
func (a *Adapter) Name() string { return portals.Ticketmaster }

// Progress implements portals.Resumable.
func (a *Adapter) Progress() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strconv.Itoa(a.cursor)
}

// Restore implements portals.Resumable.
func (a *Adapter) Restore(progress string) error {
	progress = strings.TrimSpace(progress)
	if progress == "" {
		return nil
	}
	page, err := strconv.Atoi(progress)
	if err != nil || page < 0 {
		return fmt.Errorf("ticketmaster: invalid page cursor %q", progress)
	}
	a.mu.Lock()
	a.cursor = page
	a.mu.Unlock()
	return nil
}

// Candidates implements portals.Adapter.
func (a *Adapter) Candidates(ctx context.Context) iter.Seq2[*event.MusicEvent, error] {
	return func(yield func(*event.MusicEvent, error) bool) {
		a.mu.Lock()
		defer a.mu.Unlock()
		logger := logging.WithContext(ctx, a.logger)

		for first := true; ; first = false {
			if !first && a.interval > 0 {
				if err := sleep(ctx, a.interval); err != nil {
					yield(nil, err)
					return
				}
			}
			if (a.cursor+1)*a.client.PageSize() > maxDepth {
				logger.Info("deep paging limit reached, restarting scan", logging.Int("page", a.cursor))
				a.cursor = 0
				return
			}

			page, err := a.client.Events(ctx, a.cursor)
			if err != nil {
				yield(nil, a.runError(logger, err))
				return
			}
			logRateLimit(logger, a.cursor, page.RateLimit)

			if page.Exhausted() {
				logger.Info("no more events, restarting scan", logging.Int("page", a.cursor), logging.Int("total_pages", page.TotalPages))
				a.cursor = 0
				return
			}

			// A page the caller stopped draining is fetched again next run.
			for _, src := range page.Events {
				ev, err := toEvent(src, a.loc)
				if err != nil {
					err = portals.Extraction(portals.Ticketmaster, src.URL, fmt.Errorf("event %s: %w", src.ID, err))
				}
				if !yield(ev, err) {
					return
				}
			}
			a.cursor++
		}
	}
}

func (a *Adapter) runError(logger *slog.Logger, err error) error {
	var fault *FaultError
	if !errors.As(err, &fault) {
		return services.Wrap(services.ErrExternal, portals.Ticketmaster, "fetch events", "", err)
	}
	logRateLimit(logger, a.cursor, fault.RateLimit)
	switch {
	case fault.QuotaExceeded():
		return &portals.DeferError{
			Until: fault.RateLimit.Reset,
			Err:   services.Wrap(services.ErrRateLimited, portals.Ticketmaster, "fetch events", fault.Message, nil),
		}
	case fault.Unauthorized():
		return services.Wrap(services.ErrConfiguration, portals.Ticketmaster, "fetch events", "api key rejected", err)
	default:
		return services.Wrap(services.ErrExternal, portals.Ticketmaster, "fetch events", "", err)
	}
}

func logRateLimit(logger *slog.Logger, page int, rl RateLimit) {
	attrs := []logging.Attr{
		logging.Int("page", page),
		logging.String("rate_limit", rl.Limit),
		logging.String("rate_limit_available", rl.Available),
		logging.String("rate_limit_over", rl.Over),
	}
	if !rl.Reset.IsZero() {
		attrs = append(attrs, logging.Time("rate_limit_reset", rl.Reset))
	}
	logger.Debug("ticketmaster quota", logging.Args(attrs...)...)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
