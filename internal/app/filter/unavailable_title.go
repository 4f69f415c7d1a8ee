package filter

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

// UnavailableTitleConfig represents the configuration for UnavailableTitleFilter.
type UnavailableTitleConfig struct {
	Markers []string `mapstructure:"markers" default:"[\"private video\",\"deleted video\"]" validate:"dive,required"`
}

// UnavailableTitleFilter drops entries whose title marks them private or deleted.
type UnavailableTitleFilter struct {
	markers []string
}

// NewUnavailableTitleFilter creates the filter with the default markers.
func NewUnavailableTitleFilter() *UnavailableTitleFilter {
	return &UnavailableTitleFilter{markers: []string{"private video", "deleted video"}}
}

func (f *UnavailableTitleFilter) Name() string {
	return "unavailable_title_filter"
}

func (f *UnavailableTitleFilter) Description() string {
	return "Drops entries whose title marks them as a private or deleted video"
}

func (f *UnavailableTitleFilter) ReturnCodes() []string {
	return []string{"unavailable_title"}
}

func (f *UnavailableTitleFilter) EnabledByDefault() bool {
	return true
}

func (f *UnavailableTitleFilter) ValidateConfig(settings map[string]any) error {
	var config UnavailableTitleConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}

	f.markers = make([]string, len(config.Markers))
	for i, m := range config.Markers {
		f.markers[i] = strings.ToLower(m)
	}
	zlog.Debug().Msgf("unavailable title filter config: %+v", config)
	return nil
}

// Check matches markers case-insensitively anywhere in the title.
func (f *UnavailableTitleFilter) Check(ctx context.Context, e track.Entry) Result {
	title := strings.ToLower(e.Title)
	for _, m := range f.markers {
		if strings.Contains(title, m) {
			return Reject("unavailable_title")
		}
	}
	return Accept()
}

func init() {
	Register("unavailable_title_filter", func() Filter {
		return NewUnavailableTitleFilter()
	})
}
