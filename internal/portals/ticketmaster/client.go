package ticketmaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://app.ticketmaster.com/discovery/v2/"
	defaultHTTPTimeout = 30 * time.Second
	defaultPageSize    = 20

	// maxDepth is the deepest item the Discovery API serves (size*page < 1000).
	maxDepth = 1000
)

// Config describes the Discovery API client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	CountryCode    string
	Classification string
	Locale         string
	Sort           string
	PageSize       int
	HTTPClient     *http.Client
}

// Client wraps the Discovery API events endpoint.
type Client struct {
	apiKey  string
	baseURL *url.URL
	query   url.Values
	size    int
	http    *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("ticketmaster: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("ticketmaster: parse base url: %w", err)
	}
	size := cfg.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	query := url.Values{}
	if cfg.CountryCode != "" {
		query.Set("countryCode", cfg.CountryCode)
	}
	if cfg.Classification != "" {
		query.Set("classificationName", cfg.Classification)
	}
	if cfg.Sort != "" {
		query.Set("sort", cfg.Sort)
	}
	if cfg.Locale != "" {
		query.Set("locale", cfg.Locale)
	}
	query.Set("size", strconv.Itoa(size))

	return &Client{apiKey: apiKey, baseURL: baseURL, query: query, size: size, http: client}, nil
}

// PageSize reports the configured page size.
func (c *Client) PageSize() int { return c.size }

// RateLimit mirrors the quota headers sent with every response.
type RateLimit struct {
	Limit     string
	Available string
	Over      string
	Reset     time.Time
}

func parseRateLimit(h http.Header) RateLimit {
	return RateLimit{
		Limit:     h.Get("Rate-Limit"),
		Available: h.Get("Rate-Limit-Available"),
		Over:      h.Get("Rate-Limit-Over"),
		Reset:     parseReset(h.Get("Rate-Limit-Reset")),
	}
}

// parseReset accepts epoch milliseconds or an RFC 3339 timestamp.
func parseReset(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	if t, err := http.ParseTime(raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// Page is one decoded page of events.
type Page struct {
	Number     int
	TotalPages int
	Events     []apiEvent
	RateLimit  RateLimit
}

// Exhausted reports whether the scan has walked past the last page.
func (p Page) Exhausted() bool {
	return len(p.Events) == 0 || p.Number >= p.TotalPages
}

// FaultError is an error-shaped response body ({"fault": {...}}).
type FaultError struct {
	Status    int
	Message   string
	RateLimit RateLimit
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("ticketmaster: fault (%d): %s", e.Status, e.Message)
}

// QuotaExceeded reports whether the daily quota or the request rate was hit.
func (e *FaultError) QuotaExceeded() bool { return e.Status == http.StatusTooManyRequests }

// Unauthorized reports whether the API key was rejected.
func (e *FaultError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// Events fetches one page of events.
func (c *Client) Events(ctx context.Context, page int) (Page, error) {
	if c == nil {
		return Page{}, errors.New("ticketmaster: client is nil")
	}
	if page < 0 {
		return Page{}, fmt.Errorf("ticketmaster: invalid page %d", page)
	}
	endpoint := c.baseURL.JoinPath("events.json")
	params := url.Values{}
	for key, values := range c.query {
		params[key] = values
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("apikey", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("ticketmaster: build events request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("ticketmaster: events request failed: %w", err)
	}
	defer resp.Body.Close()

	limits := parseRateLimit(resp.Header)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("ticketmaster: read events response: %w", err)
	}

	var payload eventsResponse
	decodeErr := json.Unmarshal(body, &payload)
	if decodeErr == nil && payload.Fault != nil {
		return Page{}, &FaultError{Status: resp.StatusCode, Message: payload.Fault.FaultString, RateLimit: limits}
	}
	if resp.StatusCode >= 400 {
		snippet := body
		if len(snippet) > 4096 {
			snippet = snippet[:4096]
		}
		return Page{}, &FaultError{Status: resp.StatusCode, Message: strings.TrimSpace(string(snippet)), RateLimit: limits}
	}
	if decodeErr != nil {
		return Page{}, fmt.Errorf("ticketmaster: decode events response: %w", decodeErr)
	}

	out := Page{Number: payload.Page.Number, TotalPages: payload.Page.TotalPages, RateLimit: limits}
	if payload.Embedded != nil {
		out.Events = payload.Embedded.Events
	}
	return out, nil
}

func httpClient(timeoutSeconds int) *http.Client {
	if timeoutSeconds <= 0 {
		return nil
	}
	return &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
}
