package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"weekplan/internal/model"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Provider marks imported events' source (google, outlook, apple,
	// fastmail). Defaults to local.
	Provider string `yaml:"provider" json:"provider"`
}

// GoogleConfig enables pulling events from a Google Calendar.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	TokenFile       string `yaml:"token_file" json:"token_file"`
	CalendarID      string `yaml:"calendar_id" json:"calendar_id"`
	// HorizonDays is how far ahead events are pulled.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`
}

// Enabled reports whether enough is configured to talk to Google.
func (g *GoogleConfig) Enabled() bool {
	return g != nil && g.CredentialsFile != "" && g.TokenFile != ""
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone whose calendar days define "same day" and
	// week boundaries.
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataDir holds persisted planner state and the ICS cache. "~" is
	// expanded.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// UserID keys the persisted state and is the ledger's current user.
	UserID string `yaml:"user_id" json:"user_id"`

	Collaborators []model.Collaborator `yaml:"collaborators" json:"collaborators"`

	// SeedDemo adds demo content on first run.
	SeedDemo bool `yaml:"seed_demo" json:"seed_demo"`

	// SaveCron, when set, batches state saves on a cron schedule instead of
	// saving after every change.
	SaveCron string `yaml:"save_cron" json:"save_cron"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for pulling ICS subscriptions and Google Calendar.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Google *GoogleConfig `yaml:"google,omitempty" json:"google,omitempty"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultDataDir     = "~/.weekplan"
	defaultUserID      = "u1"
	defaultRefreshCron = "*/15 * * * *"
	defaultHorizonDays = 14
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		DataDir:     defaultDataDir,
		UserID:      defaultUserID,
		SeedDemo:    true,
		RefreshCron: defaultRefreshCron,
		LogLevel:    "info",
		ICS:         []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.UserID == "" {
		c.UserID = defaultUserID
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			if c.ICS[i].Name != "" {
				c.ICS[i].ID = c.ICS[i].Name
			} else {
				c.ICS[i].ID = c.ICS[i].URL
			}
		}
	}
	if c.Google != nil && c.Google.HorizonDays <= 0 {
		c.Google.HorizonDays = defaultHorizonDays
	}
}

// Validate reports settings that cannot be defaulted away.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	seen := make(map[string]bool, len(c.ICS))
	for _, src := range c.ICS {
		if seen[src.ID] {
			return fmt.Errorf("config: duplicate ics source id %q", src.ID)
		}
		seen[src.ID] = true
		if src.URL == "" {
			return fmt.Errorf("config: ics source %q has no url", src.ID)
		}
		if _, err := model.ParseSource(src.Provider); err != nil {
			return fmt.Errorf("config: ics source %q: %w", src.ID, err)
		}
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DataPath expands DataDir and joins elem onto it.
func (c *Config) DataPath(elem ...string) (string, error) {
	dir, err := homedir.Expand(c.DataDir)
	if err != nil {
		return "", fmt.Errorf("config: expand data_dir: %w", err)
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML over the defaults
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	// Keys absent from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
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

	tmp, err := os.CreateTemp(dir, ".weekplan-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
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
