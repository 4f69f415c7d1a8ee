package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mudeplayer/internal/app/filter"
	"github.com/osa030/mudeplayer/internal/domain/playlist"
	"github.com/osa030/mudeplayer/internal/domain/track"
)

type providerFunc func(ctx context.Context, url string) (*playlist.Remote, error)

func (f providerFunc) Resolve(ctx context.Context, url string) (*playlist.Remote, error) {
	return f(ctx, url)
}

func staticProvider(remote *playlist.Remote) Provider {
	return providerFunc(func(context.Context, string) (*playlist.Remote, error) {
		return remote, nil
	})
}

func defaultChain(t *testing.T) *filter.Chain {
	t.Helper()
	chain, err := filter.Build(nil)
	require.NoError(t, err)
	return chain
}

func TestSyncer_Resolve_Mapping(t *testing.T) {
	remote := &playlist.Remote{
		Title: "My Mix",
		Entries: []track.Entry{
			{ID: "a1", Title: "Song A", URL: "https://www.youtube.com/watch?v=a1"},
			{Title: "[Private video]", ID: "p1"},
			{Title: "[Deleted video]", ID: "d1"},
			{ID: "u1", Title: "Unlisted", Availability: "unlisted"},
			{VideoID: "b1", Title: "Song B"},
			{URL: "https://www.youtube.com/watch?v=c1&list=PL", Title: "Song C"},
			{URL: "https://www.youtube.com/watch/d2", Title: ""},
			{URL: "https://example.com/no-id", Title: "No id"},
			{ID: "e1", Title: "Public", Availability: "public"},
		},
	}

	s := NewSyncer(staticProvider(remote), defaultChain(t), time.Second)
	result, err := s.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PL")
	require.NoError(t, err)

	assert.Equal(t, "My Mix", result.Title)

	ids := make([]string, len(result.Tracks))
	for i, tr := range result.Tracks {
		ids[i] = tr.ID
	}
	assert.Equal(t, []string{"a1", "b1", "c1", "d2", "e1"}, ids)

	assert.Equal(t, "https://www.youtube.com/watch?v=b1", result.Tracks[1].PrimaryURL)
	assert.Equal(t, "https://music.youtube.com/watch?v=b1", result.Tracks[1].AlternateURL)
	assert.Equal(t, "My Mix", result.Tracks[3].Title, "missing entry title falls back to the playlist title")

	for _, tr := range result.Tracks {
		assert.NotEmpty(t, tr.ID, "tracks without id must never be produced")
	}
}

func TestSyncer_Resolve_TitleFallbacks(t *testing.T) {
	remote := &playlist.Remote{
		Entries: []track.Entry{{ID: "a1"}},
	}

	s := NewSyncer(staticProvider(remote), nil, time.Second)
	result, err := s.Resolve(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, playlist.UntitledTitle, result.Title)
	require.Len(t, result.Tracks, 1)
	assert.Equal(t, track.UnknownTitle, result.Tracks[0].Title)
}

func TestSyncer_Resolve_ZeroTracksIsValid(t *testing.T) {
	remote := &playlist.Remote{
		Title:   "Gone",
		Entries: []track.Entry{{ID: "x", Title: "[Private video]"}},
	}

	s := NewSyncer(staticProvider(remote), defaultChain(t), time.Second)
	result, err := s.Resolve(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Gone", result.Title)
	assert.Empty(t, result.Tracks)
}

func TestSyncer_Resolve_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		timeout  time.Duration
	}{
		{
			name: "provider error",
			provider: providerFunc(func(context.Context, string) (*playlist.Remote, error) {
				return nil, errors.New("yt-dlp exited with status 1")
			}),
			timeout: time.Second,
		},
		{
			name:     "nil playlist",
			provider: staticProvider(nil),
			timeout:  time.Second,
		},
		{
			name: "timeout honoring context",
			provider: providerFunc(func(ctx context.Context, _ string) (*playlist.Remote, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			timeout: 20 * time.Millisecond,
		},
		{
			name: "timeout ignoring context",
			provider: providerFunc(func(context.Context, string) (*playlist.Remote, error) {
				time.Sleep(500 * time.Millisecond)
				return &playlist.Remote{Title: "late"}, nil
			}),
			timeout: 20 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSyncer(tt.provider, nil, tt.timeout)

			start := time.Now()
			result, err := s.Resolve(context.Background(), "p1")
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, ErrFetch), "error should be marked as a fetch failure: %v", err)
			assert.Less(t, time.Since(start), 400*time.Millisecond)
		})
	}
}

func TestSyncer_Resolve_CallerCancelIsNotATimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s := NewSyncer(providerFunc(func(context.Context, string) (*playlist.Remote, error) {
		<-release
		return nil, nil
	}), nil, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Resolve(ctx, "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, ErrFetch))
	assert.NotContains(t, err.Error(), "timed out")
}

func TestSyncer_Resolve_DeadlineIsReportedAsTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s := NewSyncer(providerFunc(func(context.Context, string) (*playlist.Remote, error) {
		<-release
		return nil, nil
	}), nil, 20*time.Millisecond)

	_, err := s.Resolve(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "timed out")
}

func TestNewSyncer_DefaultTimeout(t *testing.T) {
	s := NewSyncer(staticProvider(&playlist.Remote{}), nil, 0)
	assert.Equal(t, DefaultTimeout, s.timeout)
}
