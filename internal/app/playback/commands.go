package playback

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/playlist"
)

const (
	msgAddFailed       = "Failed to add playlist. Please verify the URL and try again."
	msgNoSaved         = "No playlists saved yet. Add one first."
	msgNotInCatalog    = "Playlist is not in the saved list."
	msgDeleteNone      = "Selected playlists could not be deleted."
	msgActiveDeleted   = "Stopped playback because the playing playlist was deleted."
	msgDeleteCancelled = "Playlist deletion cancelled."
)

// AddPlaylist resolves url, saves it at the top of the catalog and optionally
// starts playing it right away.
func (o *Orchestrator) AddPlaylist(ctx context.Context, url string, playNow bool) (playlist.Reference, error) {
	result, err := o.resolver.Resolve(ctx, url)
	if err != nil {
		o.notifier.Error(msgAddFailed)
		return playlist.Reference{}, errors.Wrapf(err, "failed to add playlist %s", url)
	}

	ref := playlist.Reference{
		URL:     url,
		Title:   result.Title,
		AddedAt: o.now(),
	}
	if _, err := o.catalog.Add(ctx, ref); err != nil {
		o.notifier.Error(msgStateFailed)
		return playlist.Reference{}, err
	}
	o.signal(ctx, EventCatalogChanged, nil, nil)
	o.notifier.Info(fmt.Sprintf("Playlist \"%s\" added.", ref.Title))

	if !playNow {
		return ref, nil
	}
	return ref, o.startResolved(ctx, ref, result)
}

// Select starts the saved playlist with the given url.
func (o *Orchestrator) Select(ctx context.Context, url string) error {
	refs, err := o.catalog.List(ctx)
	if err != nil {
		o.notifier.Error(msgStateFailed)
		return err
	}
	if len(refs) == 0 {
		o.notifier.Info(msgNoSaved)
		return errors.Wrap(ErrNotFound, "catalog is empty")
	}

	for _, r := range refs {
		if r.URL == url {
			return o.Start(ctx, r)
		}
	}
	o.notifier.Warn(msgNotInCatalog)
	return errors.Wrapf(ErrNotFound, "url=%s", url)
}

// DeletePlaylists removes the given urls from the catalog. If the playing
// playlist is among them, the session ends and the engine returns to search mode.
func (o *Orchestrator) DeletePlaylists(ctx context.Context, urls []string) ([]playlist.Reference, error) {
	if len(urls) == 0 {
		o.notifier.Info(msgDeleteCancelled)
		return nil, nil
	}

	refs, err := o.catalog.List(ctx)
	if err != nil {
		o.notifier.Error(msgStateFailed)
		return nil, err
	}
	if len(refs) == 0 {
		o.notifier.Info(msgNoSaved)
		return nil, nil
	}

	active, err := o.session(ctx)
	if err != nil {
		return nil, err
	}

	removed, err := o.catalog.RemoveMany(ctx, urls)
	if err != nil {
		o.notifier.Error(msgStateFailed)
		return nil, err
	}
	if len(removed) == 0 {
		o.notifier.Warn(msgDeleteNone)
		return removed, nil
	}
	o.signal(ctx, EventCatalogChanged, nil, nil)

	if active != nil && contains(urls, active.Reference.URL) {
		zlog.Info().Msgf("playback: active playlist deleted: url=%s", active.Reference.URL)
		if err := o.Complete(ctx); err != nil {
			return removed, err
		}
		if o.config.NotifyActivePlaylistDeletion {
			o.notifier.Info(msgActiveDeleted)
		}
	}

	if len(removed) == 1 {
		o.notifier.Info(fmt.Sprintf("Deleted playlist \"%s\".", removed[0].DisplayName()))
	} else {
		o.notifier.Info(fmt.Sprintf("Deleted %d playlists.", len(removed)))
	}
	return removed, nil
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
