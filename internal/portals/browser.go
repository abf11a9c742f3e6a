package portals

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"mec/internal/config"
)

// BrowserOptions configures the run-scoped headless browser.
type BrowserOptions struct {
	UserAgent         string
	Width             int
	Height            int
	NoSandbox         bool
	ExecPath          string
	NavigationTimeout time.Duration
}

// BrowserOptionsFromConfig maps the [browser] config section.
func BrowserOptionsFromConfig(cfg config.Browser) BrowserOptions {
	return BrowserOptions{
		UserAgent:         cfg.UserAgent,
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		NoSandbox:         cfg.NoSandbox,
		ExecPath:          cfg.ExecPath,
		NavigationTimeout: time.Duration(cfg.NavigationTimeoutSeconds) * time.Second,
	}
}

// Browser owns one headless Chromium process. It is created at the start of
// an adapter run and must be closed when the run ends.
type Browser struct {
	ctx     context.Context
	cancel  func()
	timeout time.Duration
}

// LaunchBrowser starts Chromium with the configured identity and viewport.
func LaunchBrowser(ctx context.Context, opts BrowserOptions) (*Browser, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	b := &Browser{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		timeout: opts.NavigationTimeout,
	}
	if b.timeout <= 0 {
		b.timeout = time.Minute
	}
	if err := chromedp.Run(browserCtx, chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height))); err != nil {
		b.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return b, nil
}

// Close terminates the browser process. It is safe to call more than once.
func (b *Browser) Close() {
	if b != nil && b.cancel != nil {
		b.cancel()
	}
}

// Main returns a handle on the first tab.
func (b *Browser) Main() *Tab {
	return &Tab{ctx: b.ctx, timeout: b.timeout}
}

// NewTab opens a tab sharing the browser's cookies. The returned func closes it.
func (b *Browser) NewTab() (*Tab, func()) {
	ctx, cancel := chromedp.NewContext(b.ctx)
	return &Tab{ctx: ctx, timeout: b.timeout}, cancel
}

// Tab runs actions against one page.
type Tab struct {
	ctx     context.Context
	timeout time.Duration
}

func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// SetCookie presets a cookie before the first navigation.
func (t *Tab) SetCookie(ctx context.Context, name, value, domain string) error {
	return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(name, value).WithDomain(domain).WithPath("/").Do(ctx)
	}))
}

// Navigate loads url and waits for the body and a short network settle.
func (t *Tab) Navigate(ctx context.Context, target string) error {
	if err := t.run(ctx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	return nil
}

// Click clicks the first element matching an XPath or CSS selector.
func (t *Tab) Click(ctx context.Context, selector string) error {
	if err := t.run(ctx, chromedp.Click(selector, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// WaitFor blocks until an element matching selector is visible.
func (t *Tab) WaitFor(ctx context.Context, selector string) error {
	if err := t.run(ctx, chromedp.WaitVisible(selector, chromedp.BySearch)); err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}

// ScrollTo scrolls the first matching element into view.
func (t *Tab) ScrollTo(ctx context.Context, selector string) error {
	if err := t.run(ctx, chromedp.ScrollIntoView(selector, chromedp.BySearch)); err != nil {
		return fmt.Errorf("scroll to %s: %w", selector, err)
	}
	return nil
}

// Count returns how many nodes match selector without waiting for them.
func (t *Tab) Count(ctx context.Context, selector string) (int, error) {
	var nodes []*cdp.Node
	if err := t.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return 0, fmt.Errorf("query %s: %w", selector, err)
	}
	return len(nodes), nil
}

// Pause waits for d unless ctx ends first.
func (t *Tab) Pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Document snapshots the rendered DOM for goquery extraction. Relative links
// resolve against the page location.
func (t *Tab) Document(ctx context.Context) (*goquery.Document, error) {
	var html, location string
	if err := t.run(ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	); err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if u, err := url.Parse(location); err == nil {
		doc.Url = u
	}
	return doc, nil
}

// Open navigates and snapshots in one step.
func (t *Tab) Open(ctx context.Context, target string) (*goquery.Document, error) {
	if err := t.Navigate(ctx, target); err != nil {
		return nil, err
	}
	return t.Document(ctx)
}
