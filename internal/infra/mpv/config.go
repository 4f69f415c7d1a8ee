package mpv

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Config holds the mpv player settings.
type Config struct {
	Socket           string `mapstructure:"socket"`
	Executable       string `mapstructure:"executable" default:"mpv"`
	DownloadDir      string `mapstructure:"download_dir"`
	Attempts         int    `mapstructure:"attempts" default:"3" validate:"gte=1,lte=10"`
	StartupTimeoutMs int    `mapstructure:"startup_timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
}

// DecodeConfig decodes player settings from the configuration map.
func DecodeConfig(settings map[string]any) (*Config, error) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if config.Socket == "" {
		config.Socket = filepath.Join(os.TempDir(), "mudeplayer-mpv.sock")
	}
	if config.DownloadDir == "" {
		config.DownloadDir = filepath.Join(os.TempDir(), "mudeplayer")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &config, nil
}

// StartupTimeout returns how long to wait for a launched mpv to accept connections.
func (c *Config) StartupTimeout() time.Duration {
	return time.Duration(c.StartupTimeoutMs) * time.Millisecond
}
