package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

// Config selects and configures one filter.
// A nil Enabled keeps the filter's default enablement.
type Config struct {
	Enabled  *bool
	Settings map[string]any
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Build creates a chain from the registered filters.
// Filters missing from configs, or configured without an explicit
// enablement, use their default enablement.
func Build(configs map[string]Config) (*Chain, error) {
	chain := NewChain()
	for _, name := range Names() {
		f := registry[name]()

		enabled := f.EnabledByDefault()
		var settings map[string]any
		if cfg, ok := configs[name]; ok {
			if cfg.Enabled != nil {
				enabled = *cfg.Enabled
			}
			settings = cfg.Settings
		}
		if !enabled {
			continue
		}

		if err := f.ValidateConfig(settings); err != nil {
			return nil, errors.Wrapf(err, "invalid config for filter %s", name)
		}
		chain.Add(f)
		zlog.Debug().Msgf("filter: enabled: name=%s", name)
	}

	for name := range configs {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the entry.
func (c *Chain) Execute(ctx context.Context, e track.Entry) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, e)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
