// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/mudeplayer/internal/app/filter"
)

// Environment variables overriding file values.
const (
	EnvDBPath    = "MUDEPLAYER_DB_PATH"
	EnvYtdlpPath = "MUDEPLAYER_YTDLP_PATH"
	EnvMPVSocket = "MUDEPLAYER_MPV_SOCKET"
)

// Config represents the application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Metadata MetadataConfig `yaml:"metadata"`
	Player   PlayerConfig   `yaml:"player"`
	Playback PlaybackConfig `yaml:"playback"`
	Notify   NotifyConfig   `yaml:"notifications"`
}

// StoreConfig represents persistent state configuration.
type StoreConfig struct {
	Path string `yaml:"path"` // Empty uses the XDG data directory
}

// MetadataConfig represents playlist resolution configuration.
type MetadataConfig struct {
	TimeoutMs int                     `yaml:"timeout_ms" default:"45000" validate:"gte=1000,lte=600000"`
	YtdlpPath string                  `yaml:"ytdlp_path"`
	Filters   map[string]FilterConfig `yaml:"filters"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  *bool          `yaml:"enabled"` // Unset keeps the filter's default
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PlayerConfig represents the track player configuration.
type PlayerConfig struct {
	Type     string         `yaml:"type" default:"mpv" validate:"oneof=mpv"`
	Settings map[string]any `yaml:"settings"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	ResyncOnPlay                 bool  `yaml:"resync_on_play"`
	NotifyActivePlaylistDeletion *bool `yaml:"notify_active_playlist_deletion" default:"true"`
}

// NotifyConfig represents where user-facing notices are shown.
type NotifyConfig struct {
	Desktop bool `yaml:"desktop"` // Also send notices as desktop notifications
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvYtdlpPath); v != "" {
		c.Metadata.YtdlpPath = v
	}
	if v := os.Getenv(EnvMPVSocket); v != "" {
		if c.Player.Settings == nil {
			c.Player.Settings = make(map[string]any)
		}
		c.Player.Settings["socket"] = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	for name := range c.Metadata.Filters {
		if !filter.Has(name) {
			return errors.Newf("unknown filter: %s", name)
		}
	}
	return nil
}

// MetadataTimeout returns the resolve timeout.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutMs) * time.Millisecond
}

// FilterConfigs converts the filter section for filter.Build.
func (c *Config) FilterConfigs() map[string]filter.Config {
	out := make(map[string]filter.Config, len(c.Metadata.Filters))
	for name, f := range c.Metadata.Filters {
		out[name] = filter.Config{Enabled: f.Enabled, Settings: f.Settings}
	}
	return out
}

// NotifyOnActiveDeletion reports whether deleting the playing playlist is announced.
func (c *Config) NotifyOnActiveDeletion() bool {
	return c.Playback.NotifyActivePlaylistDeletion == nil || *c.Playback.NotifyActivePlaylistDeletion
}
