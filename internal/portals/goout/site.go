package goout

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mec/internal/portals"
)

// site is the browser surface one run drives. The chromedp implementation
// below is the production one; tests replace it with saved pages.
type site interface {
	// Setup opens the listing and applies the country and category filters.
	Setup(ctx context.Context) error
	// Listing snapshots the listing as currently expanded.
	Listing(ctx context.Context) (*goquery.Document, error)
	// ShowMore reveals the next batch of listing entries.
	ShowMore(ctx context.Context) error
	// Page loads a detail or artist page in a secondary tab.
	Page(ctx context.Context, url string) (*goquery.Document, error)
	Close()
}

type siteOptions struct {
	BaseURL      string
	Country      string
	CookieDomain string
	Browser      portals.BrowserOptions
}

const (
	countryCookie    = "countryIso"
	countryCookieVal = "cz"
	declineCookies   = "button#CybotCookiebotDialogBodyButtonDecline"
	filterTrigger    = "button.filter-trigger"
	showMoreButton   = "//div[contains(@class, 'd-block')]/button[contains(text(), 'Show more')]"
	allCategories    = "//button[contains(@class, 'filter-trigger') and contains(text(), 'All categories')]"
	concertsCategory = "//span[contains(@class, 'categoryFilterItem')]/a/span[contains(@class, 'd-block') and contains(text(), 'Concerts')]"
	showMoreDelay    = 2 * time.Second
)

func countryButton(country string) string {
	return fmt.Sprintf("//button[contains(@class, 'filter-trigger') and contains(text(), '%s')]", country)
}

func countryLink(country string) string {
	return fmt.Sprintf("//div[contains(@class, 'country-list')]//a[contains(text(), '%s')]", country)
}

type browserSite struct {
	opts    siteOptions
	browser *portals.Browser
	main    *portals.Tab
	detail  *portals.Tab
	closeFn func()
}

func openBrowserSite(ctx context.Context, opts siteOptions) (site, error) {
	browser, err := portals.LaunchBrowser(ctx, opts.Browser)
	if err != nil {
		return nil, err
	}
	detail, closeDetail := browser.NewTab()
	return &browserSite{
		opts:    opts,
		browser: browser,
		main:    browser.Main(),
		detail:  detail,
		closeFn: closeDetail,
	}, nil
}

func (s *browserSite) Setup(ctx context.Context) error {
	if err := s.main.SetCookie(ctx, countryCookie, countryCookieVal, s.opts.CookieDomain); err != nil {
		return err
	}
	if err := s.main.Navigate(ctx, s.opts.BaseURL); err != nil {
		return err
	}
	if n, err := s.main.Count(ctx, declineCookies); err == nil && n > 0 {
		_ = s.main.Click(ctx, declineCookies)
	}
	if n, err := s.main.Count(ctx, countryButton(s.opts.Country)); err != nil || n == 0 {
		if err := s.main.Click(ctx, filterTrigger); err != nil {
			return fmt.Errorf("open country filter: %w", err)
		}
		if err := s.main.Click(ctx, countryLink(s.opts.Country)); err != nil {
			return fmt.Errorf("select country: %w", err)
		}
	}
	if err := s.main.Click(ctx, allCategories); err != nil {
		return fmt.Errorf("open category filter: %w", err)
	}
	if err := s.main.Click(ctx, concertsCategory); err != nil {
		return fmt.Errorf("select concerts: %w", err)
	}
	return s.main.WaitFor(ctx, linkSelector)
}

func (s *browserSite) Listing(ctx context.Context) (*goquery.Document, error) {
	return s.main.Document(ctx)
}

func (s *browserSite) ShowMore(ctx context.Context) error {
	if err := s.main.ScrollTo(ctx, showMoreButton); err != nil {
		return err
	}
	if err := s.main.Click(ctx, showMoreButton); err != nil {
		return err
	}
	return s.main.Pause(ctx, showMoreDelay)
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
