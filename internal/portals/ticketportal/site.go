package ticketportal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mec/internal/logging"
	"mec/internal/portals"
)

// site is the browser surface one run drives.
type site interface {
	// Setup loads the catalog and refuses cookie consent.
	Setup(ctx context.Context) error
	// Categories snapshots the page holding the genre filter.
	Categories(ctx context.Context) (*goquery.Document, error)
	// OpenCategory applies one genre filter, expands every eligible panel and
	// snapshots the result.
	OpenCategory(ctx context.Context, name string) (*goquery.Document, error)
	// Page loads an event or venue page in a secondary tab.
	Page(ctx context.Context, url string) (*goquery.Document, error)
	Close()
}

const (
	consentMore     = "button#didomi-notice-learn-more-button"
	consentDisagree = "button#btn-toggle-disagree"
	panelLoadMore   = "//div[contains(@class, 'panel-blok') and not(contains(@class, 'super-nove-top')) and not(contains(@class, 'donekonecna'))]//button[@id='btn-load']"
	loadMoreDelay   = time.Second
	// maxLoadMore bounds panel expansion on a misbehaving page.
	maxLoadMore = 500
)

func categoryLabel(name string) string {
	return fmt.Sprintf("//nav//div[@id='filterMenu']//div[@id='filter_subkategorie']/label[contains(text(), '%s')]", name)
}

type browserSite struct {
	baseURL string
	browser *portals.Browser
	main    *portals.Tab
	detail  *portals.Tab
	closeFn func()
	logger  *slog.Logger
}

func openBrowserSite(ctx context.Context, baseURL string, opts portals.BrowserOptions, logger *slog.Logger) (site, error) {
	browser, err := portals.LaunchBrowser(ctx, opts)
	if err != nil {
		return nil, err
	}
	detail, closeDetail := browser.NewTab()
	return &browserSite{
		baseURL: baseURL,
		browser: browser,
		main:    browser.Main(),
		detail:  detail,
		closeFn: closeDetail,
		logger:  logger,
	}, nil
}

func (s *browserSite) Setup(ctx context.Context) error {
	if err := s.main.Navigate(ctx, s.baseURL); err != nil {
		return err
	}
	n, err := s.main.Count(ctx, consentMore)
	if err != nil || n == 0 {
		return nil
	}
	if err := s.main.Click(ctx, consentMore); err != nil {
		return fmt.Errorf("open consent settings: %w", err)
	}
	if err := s.main.Click(ctx, consentDisagree); err != nil {
		return fmt.Errorf("refuse consent: %w", err)
	}
	return nil
}

func (s *browserSite) Categories(ctx context.Context) (*goquery.Document, error) {
	return s.main.Document(ctx)
}

func (s *browserSite) OpenCategory(ctx context.Context, name string) (*goquery.Document, error) {
	if err := s.main.Navigate(ctx, s.baseURL); err != nil {
		return nil, err
	}
	if err := s.main.Click(ctx, categoryLabel(name)); err != nil {
		return nil, err
	}
	if err := s.main.Pause(ctx, loadMoreDelay); err != nil {
		return nil, err
	}
	for i := 0; i < maxLoadMore; i++ {
		n, err := s.main.Count(ctx, panelLoadMore)
		if err != nil || n == 0 {
			break
		}
		if err := s.main.Click(ctx, panelLoadMore); err != nil {
			s.logger.Debug("panel expansion stopped", logging.String("category", name), logging.Error(err))
			break
		}
		if err := s.main.Pause(ctx, loadMoreDelay); err != nil {
			return nil, err
		}
	}
	return s.main.Document(ctx)
}

func (s *browserSite) Page(ctx context.Context, url string) (*goquery.Document, error) {
	return s.detail.Open(ctx, url)
}

func (s *browserSite) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
	s.browser.Close()
}
