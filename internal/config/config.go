package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CalendarConfig describes a single calendar subscription.
type CalendarConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Display drivers.
const (
	DriverEPD  = "epd7in5b_v2"
	DriverNone = "none"
)

// DisplayConfig selects how a rendered month reaches the panel.
type DisplayConfig struct {
	// Driver is DriverEPD or DriverNone. With none, a wake cycle stops after
	// writing the preview PNG.
	Driver string `yaml:"driver" json:"driver"`
	// PreviewPath is where the captured PNG is written.
	PreviewPath string `yaml:"preview_path" json:"preview_path"`
	// CaptureURL is the page rendered by headless Chromium. Defaults to the
	// local /calendar endpoint.
	CaptureURL string `yaml:"capture_url" json:"capture_url"`
	// Battery is the fuel gauge to read: "pisugar3" or "none".
	Battery string `yaml:"battery" json:"battery"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the fixed offset from UTC in hours (e.g. 9, -3.5).
	Timezone float64 `yaml:"timezone" json:"timezone"`

	// Calendars are the regular event sources.
	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`

	// HolidayURL is the optional holiday source. Holidays are cached in prefs
	// for the current month.
	HolidayURL string `yaml:"holiday_url" json:"holiday_url"`

	// RootCAFile is an optional PEM bundle used as trust anchor for HTTPS feeds.
	RootCAFile string `yaml:"root_ca_file" json:"root_ca_file"`

	// PrefsPath is the persistent preferences file.
	PrefsPath string `yaml:"prefs_path" json:"prefs_path"`

	// RefreshCron is a cron-style schedule string for wake cycles in
	// long-running mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Display DisplayConfig `yaml:"display" json:"display"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultPrefsPath   = "/var/lib/papercal/prefs.yaml"
	defaultPreviewPath = "/var/lib/papercal/preview.png"
	defaultRefreshCron = "5 0 * * *"
	defaultLogLevel    = "info"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    9,
		Calendars:   []CalendarConfig{},
		PrefsPath:   defaultPrefsPath,
		RefreshCron: defaultRefreshCron,
		LogLevel:    defaultLogLevel,
		Display: DisplayConfig{
			Driver:      DriverNone,
			PreviewPath: defaultPreviewPath,
			Battery:     "none",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone < -12 || c.Timezone > 14 {
		c.Timezone = 0
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	for i := range c.Calendars {
		cal := &c.Calendars[i]
		cal.URL = strings.TrimSpace(cal.URL)
		if cal.ID == "" {
			cal.ID = fmt.Sprintf("cal%d", i+1)
		}
		if cal.Name == "" {
			cal.Name = cal.ID
		}
	}
	c.HolidayURL = strings.TrimSpace(c.HolidayURL)
	if c.PrefsPath == "" {
		c.PrefsPath = defaultPrefsPath
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	switch c.Display.Driver {
	case DriverEPD, DriverNone:
	default:
		c.Display.Driver = DriverNone
	}
	if c.Display.PreviewPath == "" {
		c.Display.PreviewPath = defaultPreviewPath
	}
	if c.Display.Battery == "" {
		c.Display.Battery = "none"
	}
}

// CaptureURL returns the page to screenshot, defaulting to /calendar on the
// local listener.
func (c *Config) CaptureURL() string {
	if c.Display.CaptureURL != "" {
		return c.Display.CaptureURL
	}
	host := c.Listen
	if strings.HasPrefix(host, ":") || strings.HasPrefix(host, "0.0.0.0:") {
		host = "127.0.0.1:" + host[strings.LastIndex(host, ":")+1:]
	}
	return "http://" + host + "/calendar"
}

// RootCA reads the trust anchor PEM, or returns "" when none is configured.
func (c *Config) RootCA() (string, error) {
	if c.RootCAFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.RootCAFile)
	if err != nil {
		return "", fmt.Errorf("config: read root CA: %w", err)
	}
	return string(data), nil
}

// Load loads configuration from the given path.
//
// Behavior:
//   - A path ending in .txt is parsed as a legacy settings file.
//   - If a YAML file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshaled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return LoadSettings(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".papercal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
