// Package catalog provides the bounded, persisted list of saved playlist references.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/playlist"
	"github.com/osa030/mudeplayer/internal/infra/store"
)

const (
	// Key is the store key holding the catalog.
	Key = "savedPlaylists"
	// MaxEntries bounds the catalog; the oldest entries are dropped beyond it.
	MaxEntries = 50
)

// Catalog is the saved playlist list, most recently added first.
// Urls are not required to be unique.
type Catalog struct {
	store store.Store
}

// New creates a catalog backed by s.
func New(s store.Store) *Catalog {
	return &Catalog{store: s}
}

// List returns the current catalog, most recently added first.
func (c *Catalog) List(ctx context.Context) ([]playlist.Reference, error) {
	var refs []playlist.Reference
	if _, err := c.store.Get(ctx, Key, &refs); err != nil {
		return nil, errors.Wrap(err, "failed to load catalog")
	}
	if refs == nil {
		refs = []playlist.Reference{}
	}
	return refs, nil
}

// Add prepends ref and truncates the catalog to MaxEntries.
func (c *Catalog) Add(ctx context.Context, ref playlist.Reference) ([]playlist.Reference, error) {
	refs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	next := make([]playlist.Reference, 0, len(refs)+1)
	next = append(next, ref)
	next = append(next, refs...)
	if len(next) > MaxEntries {
		zlog.Debug().Msgf("catalog: evicting oldest entries: count=%d", len(next)-MaxEntries)
		next = next[:MaxEntries]
	}

	if err := c.save(ctx, next); err != nil {
		return nil, err
	}
	zlog.Info().Msgf("catalog: playlist added: url=%s title=%s", ref.URL, ref.Title)
	return next, nil
}

// Update applies u to every entry whose url matches. No match is a no-op.
func (c *Catalog) Update(ctx context.Context, url string, u playlist.ReferenceUpdate) error {
	refs, err := c.List(ctx)
	if err != nil {
		return err
	}

	matched := false
	for i := range refs {
		if refs[i].URL == url {
			refs[i] = u.Apply(refs[i])
			matched = true
		}
	}
	if !matched {
		return nil
	}
	return c.save(ctx, refs)
}

// RemoveMany removes every entry whose url is in urls and returns the removed entries.
// It does not touch the active session; callers tear it down if needed.
func (c *Catalog) RemoveMany(ctx context.Context, urls []string) ([]playlist.Reference, error) {
	if len(urls) == 0 {
		return []playlist.Reference{}, nil
	}

	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}

	refs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	kept := make([]playlist.Reference, 0, len(refs))
	removed := make([]playlist.Reference, 0)
	for _, r := range refs {
		if _, ok := set[r.URL]; ok {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}

	if len(removed) == 0 {
		return removed, nil
	}
	if err := c.save(ctx, kept); err != nil {
		return nil, err
	}
	zlog.Info().Msgf("catalog: playlists removed: count=%d", len(removed))
	return removed, nil
}

func (c *Catalog) save(ctx context.Context, refs []playlist.Reference) error {
	if err := c.store.Set(ctx, Key, refs); err != nil {
		return errors.Wrap(err, "failed to save catalog")
	}
	return nil
}
