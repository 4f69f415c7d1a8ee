package filter

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

// AvailabilityConfig represents the configuration for AvailabilityFilter.
type AvailabilityConfig struct {
	Allowed []string `mapstructure:"allowed" default:"[\"public\"]" validate:"min=1,dive,required"`
}

// AvailabilityFilter drops entries whose declared availability is not allowed.
// Entries that declare no availability are accepted.
type AvailabilityFilter struct {
	allowed map[string]struct{}
}

// NewAvailabilityFilter creates the filter allowing only public entries.
func NewAvailabilityFilter() *AvailabilityFilter {
	return &AvailabilityFilter{allowed: map[string]struct{}{"public": {}}}
}

func (f *AvailabilityFilter) Name() string {
	return "availability_filter"
}

func (f *AvailabilityFilter) Description() string {
	return "Drops entries whose declared availability is not public"
}

func (f *AvailabilityFilter) ReturnCodes() []string {
	return []string{"not_public"}
}

func (f *AvailabilityFilter) EnabledByDefault() bool {
	return true
}

func (f *AvailabilityFilter) ValidateConfig(settings map[string]any) error {
	var config AvailabilityConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}

	f.allowed = make(map[string]struct{}, len(config.Allowed))
	for _, a := range config.Allowed {
		f.allowed[strings.ToLower(a)] = struct{}{}
	}
	zlog.Debug().Msgf("availability filter config: %+v", config)
	return nil
}

func (f *AvailabilityFilter) Check(ctx context.Context, e track.Entry) Result {
	availability := strings.ToLower(e.Availability)
	if availability == "" {
		return Accept()
	}
	if _, ok := f.allowed[availability]; !ok {
		return Reject("not_public")
	}
	return Accept()
}

func init() {
	Register("availability_filter", func() Filter {
		return NewAvailabilityFilter()
	})
}
