package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateDispatcher(); err != nil {
		return err
	}
	if err := c.validateTicketmaster(); err != nil {
		return err
	}
	if err := c.validateScrapers(); err != nil {
		return err
	}
	if err := c.validateHandler(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" {
		if err := validateURL("notifications.ntfy_topic", topic); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (expected auto, console, or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateDispatcher() error {
	if c.Dispatcher.PollIntervalSeconds <= 0 {
		return errors.New("dispatcher.poll_interval_seconds must be positive")
	}
	if _, err := loadLocation(c.Dispatcher.Timezone); err != nil {
		return fmt.Errorf("dispatcher.timezone: %w", err)
	}
	return nil
}

func (c *Config) validateTicketmaster() error {
	if !c.Ticketmaster.Enabled {
		return nil
	}
	if c.Ticketmaster.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mec/config.toml"
		}
		return fmt.Errorf("ticketmaster.api_key is required when the adapter is enabled. Set TICKETMASTER_API_KEY env var or edit %s (create with 'mec config init')", defaultPath)
	}
	if err := validateHour("ticketmaster.daily_hour", c.Ticketmaster.DailyHour); err != nil {
		return err
	}
	if err := validateURL("ticketmaster.base_url", c.Ticketmaster.BaseURL); err != nil {
		return err
	}
	if c.Ticketmaster.PageSize > 200 {
		return errors.New("ticketmaster.page_size must not exceed 200")
	}
	return nil
}

func (c *Config) validateScrapers() error {
	if c.GoOut.Enabled {
		if err := validateHour("goout.daily_hour", c.GoOut.DailyHour); err != nil {
			return err
		}
		if err := validateURL("goout.base_url", c.GoOut.BaseURL); err != nil {
			return err
		}
	}
	if c.Ticketportal.Enabled {
		if err := validateHour("ticketportal.daily_hour", c.Ticketportal.DailyHour); err != nil {
			return err
		}
		if err := validateURL("ticketportal.base_url", c.Ticketportal.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateHandler() error {
	switch c.Handler.DoorPolicy {
	case "equal-or-later", "strict":
	default:
		return fmt.Errorf("handler.door_policy: unsupported value %q (expected equal-or-later or strict)", c.Handler.DoorPolicy)
	}
	if c.Handler.GraphFile == "" && c.Handler.OutputSubject == "" {
		return errors.New("handler: at least one of graph_file or output_subject must be set")
	}
	if c.Handler.OutputSubject != "" && strings.ContainsAny(c.Handler.OutputSubject, " \t") {
		return errors.New("handler.output_subject must not contain whitespace")
	}
	if prefix := c.Queue.SubjectPrefix; prefix != "" && (c.Handler.OutputSubject == prefix || strings.HasPrefix(c.Handler.OutputSubject, prefix+".")) {
		return fmt.Errorf("handler.output_subject %q must not sit under queue.subject_prefix %q", c.Handler.OutputSubject, prefix)
	}
	return nil
}

func validateHour(field string, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%s must be between 0 and 23", field)
	}
	return nil
}

func validateURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", field)
	}
	return nil
}
