package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeBrowser()
	c.normalizeTicketmaster()
	c.normalizeScrapers()
	c.normalizeQueue()
	c.Handler.DoorPolicy = strings.ToLower(strings.TrimSpace(c.Handler.DoorPolicy))
	if c.Handler.DoorPolicy == "" {
		c.Handler.DoorPolicy = defaultDoorPolicy
	}
	c.Handler.OutputSubject = strings.TrimSpace(c.Handler.OutputSubject)
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = 10
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Handler.GraphFile, err = expandPath(strings.TrimSpace(c.Handler.GraphFile)); err != nil {
		return fmt.Errorf("handler.graph_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func (c *Config) normalizeBrowser() {
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = defaultUserAgent
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = defaultViewportWidth
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = defaultViewportHeight
	}
	if c.Browser.NavigationTimeoutSeconds <= 0 {
		c.Browser.NavigationTimeoutSeconds = defaultNavigationTimeoutSeconds
	}
	c.Browser.ExecPath = strings.TrimSpace(c.Browser.ExecPath)
}

func (c *Config) normalizeTicketmaster() {
	if c.Ticketmaster.APIKey == "" {
		if value, ok := os.LookupEnv("TICKETMASTER_API_KEY"); ok {
			c.Ticketmaster.APIKey = strings.TrimSpace(value)
		}
	}
	c.Ticketmaster.BaseURL = strings.TrimSpace(c.Ticketmaster.BaseURL)
	if c.Ticketmaster.BaseURL == "" {
		c.Ticketmaster.BaseURL = defaultTicketmasterBaseURL
	}
	if !strings.HasSuffix(c.Ticketmaster.BaseURL, "/") {
		c.Ticketmaster.BaseURL += "/"
	}
	c.Ticketmaster.CountryCode = strings.ToUpper(strings.TrimSpace(c.Ticketmaster.CountryCode))
	if c.Ticketmaster.CountryCode == "" {
		c.Ticketmaster.CountryCode = defaultTicketmasterCountry
	}
	if strings.TrimSpace(c.Ticketmaster.Classification) == "" {
		c.Ticketmaster.Classification = defaultTicketmasterClass
	}
	if strings.TrimSpace(c.Ticketmaster.Locale) == "" {
		c.Ticketmaster.Locale = defaultTicketmasterLocale
	}
	if strings.TrimSpace(c.Ticketmaster.Sort) == "" {
		c.Ticketmaster.Sort = defaultTicketmasterSort
	}
	if c.Ticketmaster.PageSize <= 0 {
		c.Ticketmaster.PageSize = defaultTicketmasterPageSize
	}
	if c.Ticketmaster.RequestIntervalMillis < 0 {
		c.Ticketmaster.RequestIntervalMillis = 0
	}
	if c.Ticketmaster.RequestTimeoutSeconds <= 0 {
		c.Ticketmaster.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeScrapers() {
	c.GoOut.BaseURL = strings.TrimSpace(c.GoOut.BaseURL)
	if c.GoOut.BaseURL == "" {
		c.GoOut.BaseURL = defaultGoOutBaseURL
	}
	if strings.TrimSpace(c.GoOut.Country) == "" {
		c.GoOut.Country = defaultGoOutCountry
	}
	if strings.TrimSpace(c.GoOut.CookieDomain) == "" {
		c.GoOut.CookieDomain = defaultGoOutCookieDomain
	}
	c.Ticketportal.BaseURL = strings.TrimSpace(c.Ticketportal.BaseURL)
	if c.Ticketportal.BaseURL == "" {
		c.Ticketportal.BaseURL = defaultTicketportalBaseURL
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.NATSURL == "" {
		if value, ok := os.LookupEnv("MEC_NATS_URL"); ok {
			c.Queue.NATSURL = value
		}
	}
	c.Queue.NATSURL = strings.TrimSpace(c.Queue.NATSURL)
	if strings.TrimSpace(c.Queue.Stream) == "" {
		c.Queue.Stream = defaultStream
	}
	c.Queue.SubjectPrefix = strings.Trim(strings.TrimSpace(c.Queue.SubjectPrefix), ".")
	if c.Queue.SubjectPrefix == "" {
		c.Queue.SubjectPrefix = defaultSubjectPrefix
	}
	if strings.TrimSpace(c.Queue.Consumer) == "" {
		c.Queue.Consumer = defaultConsumer
	}
	if c.Queue.RelayIntervalSeconds <= 0 {
		c.Queue.RelayIntervalSeconds = defaultRelayIntervalSeconds
	}
	if c.Queue.RelayBatch <= 0 {
		c.Queue.RelayBatch = defaultRelayBatch
	}
}
