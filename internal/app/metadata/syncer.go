// Package metadata resolves a playlist URL to its current, playable track list.
package metadata

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/app/filter"
	"github.com/osa030/mudeplayer/internal/domain/playlist"
	"github.com/osa030/mudeplayer/internal/domain/track"
)

// DefaultTimeout bounds a single resolve.
const DefaultTimeout = 45 * time.Second

// ErrFetch marks every resolve failure, including timeouts and cancellation.
var ErrFetch = errors.New("metadata fetch failed")

// Provider fetches the raw remote playlist. It must be safe to call repeatedly.
type Provider interface {
	Resolve(ctx context.Context, url string) (*playlist.Remote, error)
}

// Result is a resolved playlist.
type Result struct {
	Title  string
	Tracks []track.Track
}

// Syncer resolves playlists through a Provider and filters unplayable entries.
type Syncer struct {
	provider Provider
	chain    *filter.Chain
	timeout  time.Duration
}

// NewSyncer creates a syncer. A nil chain accepts every entry; a zero timeout uses DefaultTimeout.
func NewSyncer(p Provider, chain *filter.Chain, timeout time.Duration) *Syncer {
	if chain == nil {
		chain = filter.NewChain()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Syncer{
		provider: p,
		chain:    chain,
		timeout:  timeout,
	}
}

type fetchResult struct {
	remote *playlist.Remote
	err    error
}

// Resolve fetches url and maps the surviving entries to tracks.
// Errors are marked with ErrFetch. Zero tracks is a valid result.
func (s *Syncer) Resolve(ctx context.Context, url string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	zlog.Debug().Msgf("metadata: resolving: url=%s timeout=%v", url, s.timeout)

	// Buffered so an abandoned provider call never blocks.
	done := make(chan fetchResult, 1)
	go func() {
		remote, err := s.provider.Resolve(ctx, url)
		done <- fetchResult{remote: remote, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			zlog.Info().Msgf("metadata: resolve canceled: url=%s elapsed=%v", url, time.Since(start))
			return nil, errors.Mark(errors.Wrapf(ctx.Err(), "fetching playlist %s canceled", url), ErrFetch)
		}
		zlog.Warn().Msgf("metadata: resolve timed out: url=%s elapsed=%v", url, time.Since(start))
		return nil, errors.Mark(errors.Wrapf(ctx.Err(), "fetching playlist metadata timed out after %v", s.timeout), ErrFetch)
	}

	if res.err != nil {
		zlog.Warn().Msgf("metadata: resolve failed: url=%s err=%v", url, res.err)
		return nil, errors.Mark(errors.Wrapf(res.err, "failed to fetch playlist %s", url), ErrFetch)
	}
	if res.remote == nil {
		return nil, errors.Mark(errors.Newf("provider returned no playlist for %s", url), ErrFetch)
	}

	result := s.mapRemote(ctx, res.remote)
	zlog.Info().Msgf("metadata: resolved: url=%s title=%s entries=%d tracks=%d elapsed=%v",
		url, result.Title, len(res.remote.Entries), len(result.Tracks), time.Since(start))
	return result, nil
}

// mapRemote filters entries and converts the survivors to tracks.
func (s *Syncer) mapRemote(ctx context.Context, remote *playlist.Remote) *Result {
	title := remote.Title
	if title == "" {
		title = playlist.UntitledTitle
	}

	tracks := make([]track.Track, 0, len(remote.Entries))
	for _, e := range remote.Entries {
		if r := s.chain.Execute(ctx, e); !r.Accepted {
			zlog.Debug().Msgf("metadata: entry filtered: title=%s code=%s", e.Title, r.Code)
			continue
		}

		id := e.ResolveID()
		if id == "" {
			zlog.Debug().Msgf("metadata: entry dropped without id: title=%s url=%s", e.Title, e.SourceURL())
			continue
		}

		tracks = append(tracks, track.New(id, entryTitle(e, remote.Title), e.SourceURL()))
	}

	return &Result{Title: title, Tracks: tracks}
}

func entryTitle(e track.Entry, playlistTitle string) string {
	switch {
	case e.Title != "":
		return e.Title
	case playlistTitle != "":
		return playlistTitle
	default:
		return track.UnknownTitle
	}
}
