package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

const (
	codeTooShort = "duration_too_short"
	codeTooLong  = "duration_too_long"
)

// DurationLimitConfig represents the configuration for DurationLimitFilter.
type DurationLimitConfig struct {
	MinMinutes float64 `yaml:"min_minutes" mapstructure:"min_minutes" validate:"gte=0"`
	MaxMinutes float64 `yaml:"max_minutes" mapstructure:"max_minutes" validate:"gte=0"`
}

// DurationLimitFilter checks if entry duration is within allowed limits.
// Entries with unknown duration are accepted.
type DurationLimitFilter struct {
	config *DurationLimitConfig
}

// NewDurationLimitFilter creates a new duration limit filter.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Drops entries shorter or longer than the configured limits"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{codeTooShort, codeTooLong}
}

func (f *DurationLimitFilter) EnabledByDefault() bool {
	return false
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}

	// 0 means no limit
	if config.MaxMinutes > 0 && config.MinMinutes > config.MaxMinutes {
		return errors.Newf("min_minutes (%g) cannot be greater than max_minutes (%g)", config.MinMinutes, config.MaxMinutes)
	}
	f.config = &config
	zlog.Debug().Msgf("filter: duration_limit: min=%gm max=%gm", config.MinMinutes, config.MaxMinutes)
	return nil
}

// bounds returns the accepted range in seconds; max 0 is unbounded.
func (c *DurationLimitConfig) bounds() (lo, hi float64) {
	return c.MinMinutes * 60, c.MaxMinutes * 60
}

func (f *DurationLimitFilter) Check(ctx context.Context, e track.Entry) Result {
	if f.config == nil || e.Duration <= 0 {
		return Accept()
	}

	lo, hi := f.config.bounds()
	switch {
	case e.Duration < lo:
		return Reject(codeTooShort)
	case hi > 0 && e.Duration > hi:
		return Reject(codeTooLong)
	}
	return Accept()
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return NewDurationLimitFilter()
	})
}
