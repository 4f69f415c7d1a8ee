package state

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/playlist"
	"github.com/osa030/mudeplayer/internal/infra/store"
)

const (
	// SessionKey is the store key holding the active session.
	SessionKey = "activePlaylistState"
	// ModeKey is the store key holding the playback mode.
	ModeKey = "playbackMode"
)

// ErrCursorOutOfRange is returned when a session would violate its cursor bounds.
var ErrCursorOutOfRange = errors.New("cursor out of range")

// Manager reads and writes the single active session slot and the mode flag.
// Every call goes to the store; nothing is cached. Callers serialize access.
type Manager struct {
	store store.Store
}

// New creates a state manager backed by s.
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

// Mode returns the persisted mode, ModeSearch if never set.
func (m *Manager) Mode(ctx context.Context) (Mode, error) {
	var s string
	found, err := m.store.Get(ctx, ModeKey, &s)
	if err != nil {
		return ModeSearch, errors.Wrap(err, "failed to load playback mode")
	}
	if !found {
		return ModeSearch, nil
	}
	return ParseMode(s), nil
}

// SetMode persists the mode.
func (m *Manager) SetMode(ctx context.Context, mode Mode) error {
	if err := m.store.Set(ctx, ModeKey, mode.String()); err != nil {
		return errors.Wrap(err, "failed to save playback mode")
	}
	return nil
}

// Session returns the active session, or nil if there is none.
func (m *Manager) Session(ctx context.Context) (*playlist.Session, error) {
	var s playlist.Session
	found, err := m.store.Get(ctx, SessionKey, &s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active session")
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

// SetSession persists s as the active session after checking its cursor bounds.
func (m *Manager) SetSession(ctx context.Context, s *playlist.Session) error {
	if s == nil {
		return m.ClearSession(ctx)
	}
	if !s.Valid() {
		return errors.Wrapf(ErrCursorOutOfRange, "cursor=%d tracks=%d", s.Cursor, len(s.Tracks))
	}
	if err := m.store.Set(ctx, SessionKey, s); err != nil {
		return errors.Wrap(err, "failed to save active session")
	}
	return nil
}

// ClearSession removes the active session.
func (m *Manager) ClearSession(ctx context.Context) error {
	if err := m.store.Delete(ctx, SessionKey); err != nil {
		return errors.Wrap(err, "failed to clear active session")
	}
	return nil
}

// Activate stores s and switches to ModePlaylist.
// The session is written first so a crash between writes never leaves
// ModePlaylist without a session.
func (m *Manager) Activate(ctx context.Context, s *playlist.Session) error {
	if s == nil {
		return errors.New("cannot activate a nil session")
	}
	if err := m.SetSession(ctx, s); err != nil {
		return err
	}
	return m.SetMode(ctx, ModePlaylist)
}

// Deactivate switches to ModeSearch and removes the session.
func (m *Manager) Deactivate(ctx context.Context) error {
	if err := m.SetMode(ctx, ModeSearch); err != nil {
		return err
	}
	return m.ClearSession(ctx)
}

// Reconcile repairs a persisted mode and session that disagree.
// Returns true if anything was changed.
func (m *Manager) Reconcile(ctx context.Context) (bool, error) {
	mode, err := m.Mode(ctx)
	if err != nil {
		return false, err
	}
	s, err := m.Session(ctx)
	if err != nil {
		return false, err
	}

	switch {
	case mode == ModePlaylist && s == nil:
		zlog.Warn().Msg("state: playlist mode without session, resetting to search")
		return true, m.SetMode(ctx, ModeSearch)
	case s != nil && (mode != ModePlaylist || len(s.Tracks) == 0):
		zlog.Warn().Msgf("state: discarding stale session: url=%s mode=%s tracks=%d", s.Reference.URL, mode, len(s.Tracks))
		return true, m.Deactivate(ctx)
	case s != nil && !s.Valid():
		s.Cursor = playlist.ClampCursor(s.Cursor, len(s.Tracks))
		zlog.Warn().Msgf("state: clamping session cursor: url=%s cursor=%d", s.Reference.URL, s.Cursor)
		return true, m.SetSession(ctx, s)
	}
	return false, nil
}
