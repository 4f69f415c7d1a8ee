package state

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mudeplayer/internal/domain/playlist"
	"github.com/osa030/mudeplayer/internal/domain/track"
	"github.com/osa030/mudeplayer/internal/infra/store"
)

func newSession(cursor int, ids ...string) *playlist.Session {
	tracks := make([]track.Track, len(ids))
	for i, id := range ids {
		tracks[i] = track.New(id, "t-"+id, "")
	}
	return &playlist.Session{
		Reference: playlist.Reference{URL: "p1", Title: "P1"},
		Tracks:    tracks,
		Cursor:    cursor,
	}
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "search", ModeSearch.String())
	assert.Equal(t, "playlist", ModePlaylist.String())
	assert.Equal(t, "unknown", Mode(9).String())

	assert.Equal(t, ModePlaylist, ParseMode("playlist"))
	assert.Equal(t, ModeSearch, ParseMode("search"))
	assert.Equal(t, ModeSearch, ParseMode("garbage"))
}

func TestManager_ColdStart(t *testing.T) {
	m := New(store.NewMemoryStore())
	ctx := context.Background()

	mode, err := m.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeSearch, mode)

	s, err := m.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_ActivateDeactivate(t *testing.T) {
	m := New(store.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, m.Activate(ctx, newSession(1, "a", "b", "c")))

	mode, err := m.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModePlaylist, mode)

	s, err := m.Session(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, "b", s.Tracks[1].ID)

	require.NoError(t, m.Deactivate(ctx))

	mode, err = m.Mode(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeSearch, mode)

	s, err = m.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_SetSessionRejectsBadCursor(t *testing.T) {
	m := New(store.NewMemoryStore())
	ctx := context.Background()

	err := m.SetSession(ctx, newSession(3, "a", "b", "c"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCursorOutOfRange))

	s, err := m.Session(ctx)
	require.NoError(t, err)
	assert.Nil(t, s, "rejected session must not be written")
}

func TestManager_Reconcile(t *testing.T) {
	tests := []struct {
		name        string
		mode        Mode
		session     *playlist.Session
		wantChanged bool
		wantMode    Mode
		wantSession bool
		wantCursor  int
	}{
		{
			name:        "consistent search",
			mode:        ModeSearch,
			wantChanged: false,
			wantMode:    ModeSearch,
		},
		{
			name:        "consistent playlist",
			mode:        ModePlaylist,
			session:     newSession(0, "a"),
			wantChanged: false,
			wantMode:    ModePlaylist,
			wantSession: true,
		},
		{
			name:        "playlist mode without session",
			mode:        ModePlaylist,
			wantChanged: true,
			wantMode:    ModeSearch,
		},
		{
			name:        "session left behind in search mode",
			mode:        ModeSearch,
			session:     newSession(0, "a"),
			wantChanged: true,
			wantMode:    ModeSearch,
		},
		{
			name:        "empty session",
			mode:        ModePlaylist,
			session:     newSession(0),
			wantChanged: true,
			wantMode:    ModeSearch,
		},
		{
			name:        "cursor beyond tracks",
			mode:        ModePlaylist,
			session:     newSession(7, "a", "b"),
			wantChanged: true,
			wantMode:    ModePlaylist,
			wantSession: true,
			wantCursor:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := store.NewMemoryStore()
			require.NoError(t, s.Set(ctx, ModeKey, tt.mode.String()))
			if tt.session != nil {
				// Write directly to bypass the cursor check.
				require.NoError(t, s.Set(ctx, SessionKey, tt.session))
			}

			m := New(s)
			changed, err := m.Reconcile(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)

			mode, err := m.Mode(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, mode)

			sess, err := m.Session(ctx)
			require.NoError(t, err)
			if tt.wantSession {
				require.NotNil(t, sess)
				assert.Equal(t, tt.wantCursor, sess.Cursor)
			} else {
				assert.Nil(t, sess)
			}
		})
	}
}
