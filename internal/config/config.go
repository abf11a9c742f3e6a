package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Dispatcher contains the scheduler poll settings.
type Dispatcher struct {
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	Timezone            string `toml:"timezone"`
}

// Browser contains headless browser settings shared by the scraping adapters.
type Browser struct {
	UserAgent                string `toml:"user_agent"`
	ViewportWidth            int    `toml:"viewport_width"`
	ViewportHeight           int    `toml:"viewport_height"`
	NoSandbox                bool   `toml:"no_sandbox"`
	ExecPath                 string `toml:"exec_path"`
	NavigationTimeoutSeconds int    `toml:"navigation_timeout_seconds"`
}

// Ticketmaster contains configuration for the Discovery API adapter.
type Ticketmaster struct {
	Enabled               bool   `toml:"enabled"`
	BaseURL               string `toml:"base_url"`
	APIKey                string `toml:"api_key"`
	CountryCode           string `toml:"country_code"`
	Classification        string `toml:"classification"`
	Locale                string `toml:"locale"`
	Sort                  string `toml:"sort"`
	PageSize              int    `toml:"page_size"`
	DailyHour             int    `toml:"daily_hour"`
	RequestIntervalMillis int    `toml:"request_interval_ms"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// GoOut contains configuration for the goout.net scraping adapter.
type GoOut struct {
	Enabled      bool   `toml:"enabled"`
	BaseURL      string `toml:"base_url"`
	DailyHour    int    `toml:"daily_hour"`
	Country      string `toml:"country"`
	CookieDomain string `toml:"cookie_domain"`
}

// Ticketportal contains configuration for the ticketportal.cz scraping adapter.
type Ticketportal struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	DailyHour int    `toml:"daily_hour"`
}

// Queue contains the broker and outbox relay settings.
type Queue struct {
	NATSURL              string `toml:"nats_url"`
	Stream               string `toml:"stream"`
	SubjectPrefix        string `toml:"subject_prefix"`
	Consumer             string `toml:"consumer"`
	RelayIntervalSeconds int    `toml:"relay_interval_seconds"`
	RelayBatch           int    `toml:"relay_batch"`
}

// Handler contains configuration for the downstream consumer.
type Handler struct {
	GraphFile     string `toml:"graph_file"`
	OutputSubject string `toml:"output_subject"`
	DoorPolicy    string `toml:"door_policy"`
}

// Metrics contains the Prometheus endpoint configuration.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Notifications contains ntfy alert settings.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Config encapsulates all configuration values for mec.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories
//   - Logging: log format and level
//   - Dispatcher: adapter poll loop timing
//   - Browser: headless browser identity and viewport
//   - Ticketmaster, GoOut, Ticketportal: per-source adapters
//   - Queue: NATS JetStream transport and outbox relay
//   - Handler: consumer validation policy and graph sinks
//   - Metrics: Prometheus endpoint
//   - Notifications: ntfy alerts for failed runs
type Config struct {
	Paths         Paths         `toml:"paths"`
	Logging       Logging       `toml:"logging"`
	Dispatcher    Dispatcher    `toml:"dispatcher"`
	Browser       Browser       `toml:"browser"`
	Ticketmaster  Ticketmaster  `toml:"ticketmaster"`
	GoOut         GoOut         `toml:"goout"`
	Ticketportal  Ticketportal  `toml:"ticketportal"`
	Queue         Queue         `toml:"queue"`
	Handler       Handler       `toml:"handler"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mec/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mec.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Handler.GraphFile); c.Handler.GraphFile != "" && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create graph directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the SQLite outbox database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.StateDir, "queue.db")
}

// LockPath returns the single-instance lock file for a daemon role.
func (c *Config) LockPath(role string) string {
	return filepath.Join(c.Paths.StateDir, "mec-"+role+".lock")
}

// PIDPath returns the pid file for a daemon role.
func (c *Config) PIDPath(role string) string {
	return filepath.Join(c.Paths.StateDir, "mec-"+role+".pid")
}

// PollInterval returns the dispatcher poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Dispatcher.PollIntervalSeconds) * time.Second
}

// Location returns the timezone used for daily cadence hours.
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Dispatcher.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// BrokerEnabled reports whether a NATS server is configured.
func (c *Config) BrokerEnabled() bool {
	return strings.TrimSpace(c.Queue.NATSURL) != ""
}

func loadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local", "local":
		return time.Local, nil
	default:
		return time.LoadLocation(strings.TrimSpace(name))
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
