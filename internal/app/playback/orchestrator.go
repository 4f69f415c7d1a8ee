// Package playback provides the playlist playback state machine.
package playback

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/app/catalog"
	"github.com/osa030/mudeplayer/internal/app/metadata"
	"github.com/osa030/mudeplayer/internal/app/notification"
	"github.com/osa030/mudeplayer/internal/app/session/state"
	"github.com/osa030/mudeplayer/internal/domain/playlist"
	"github.com/osa030/mudeplayer/internal/domain/track"
)

// Errors
var (
	ErrMetadataFetch    = metadata.ErrFetch
	ErrPlaybackFailed   = errors.New("playback failed")
	ErrEmptyPlaylist    = errors.New("playlist is empty")
	ErrInvalidState     = errors.New("no active playlist")
	ErrTrackUnavailable = errors.New("track unavailable")
	ErrNotFound         = errors.New("playlist not found")
)

// User-facing notices.
const (
	msgStartFailed      = "Failed to start playlist playback."
	msgNoActive         = "No active playlist selected."
	msgEmpty            = "Playlist is empty. Returning to search mode."
	msgTrackUnavailable = "Playlist track unavailable."
	msgSkipping         = "Failed to play playlist track. Skipping to next available item."
	msgInactive         = "Playlist mode inactive."
	msgEnd              = "Reached end of playlist."
	msgAtFirst          = "Already at first playlist track."
	msgNoRefresh        = "No active playlist to refresh."
	msgRefreshFailed    = "Failed to refresh playlist. Keeping the current track list."
	msgResyncFailed     = "Could not refresh playlist. Playing the saved track list."
	msgActivate         = "Activate a playlist to use this command."
	msgStateFailed      = "Failed to save playback state."
)

// Resolver resolves a playlist url to its current tracks.
type Resolver interface {
	Resolve(ctx context.Context, url string) (*metadata.Result, error)
}

// TrackPlayer plays one track. A false result means the track could not be played.
type TrackPlayer interface {
	Play(ctx context.Context, primaryURL, title, alternateURL string) bool
}

// Config holds orchestrator configuration.
type Config struct {
	ResyncOnPlay                 bool // Re-resolve the playlist before every play
	NotifyActivePlaylistDeletion bool // Tell the user when deleting stops playback
}

// Deps are the collaborators of the orchestrator.
type Deps struct {
	Catalog  *catalog.Catalog
	State    *state.Manager
	Resolver Resolver
	Player   TrackPlayer
	Notifier notification.Notifier
	Events   *notification.Manager[Event] // Optional; created if nil
}

// Orchestrator drives the playlist session: mode transitions, cursor movement,
// auto-skip on failure and exhaustion.
// It performs no locking; callers run one operation at a time.
type Orchestrator struct {
	catalog  *catalog.Catalog
	state    *state.Manager
	resolver Resolver
	player   TrackPlayer
	notifier notification.Notifier
	events   *notification.Manager[Event]
	config   Config
	now      func() time.Time
}

// New creates an orchestrator.
func New(deps Deps, config Config) *Orchestrator {
	events := deps.Events
	if events == nil {
		events = notification.NewManager[Event]()
	}
	return &Orchestrator{
		catalog:  deps.Catalog,
		state:    deps.State,
		resolver: deps.Resolver,
		player:   deps.Player,
		notifier: deps.Notifier,
		events:   events,
		config:   config,
		now:      time.Now,
	}
}

// Events returns the refresh signal bus.
func (o *Orchestrator) Events() *notification.Manager[Event] {
	return o.events
}

// Init repairs persisted state left inconsistent by an interrupted run.
func (o *Orchestrator) Init(ctx context.Context) error {
	repaired, err := o.state.Reconcile(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reconcile playback state")
	}
	if repaired {
		o.signal(ctx, EventSessionCompleted, nil, nil)
	}
	return nil
}

// Start resolves ref and starts playing its first track.
// A failed resolve changes nothing. Zero tracks returns to search mode.
func (o *Orchestrator) Start(ctx context.Context, ref playlist.Reference) error {
	zlog.Info().Msgf("playback: starting playlist: url=%s", ref.URL)

	result, err := o.resolver.Resolve(ctx, ref.URL)
	if err != nil {
		o.notifier.Error(msgStartFailed)
		return errors.Wrapf(err, "failed to start playlist %s", ref.URL)
	}
	return o.startResolved(ctx, ref, result)
}

func (o *Orchestrator) startResolved(ctx context.Context, ref playlist.Reference, result *metadata.Result) error {
	ref.Title = result.Title
	if err := o.syncTitle(ctx, ref.URL, result.Title); err != nil {
		return err
	}

	if len(result.Tracks) == 0 {
		zlog.Info().Msgf("playback: playlist has no playable tracks: url=%s", ref.URL)
		if err := o.Complete(ctx); err != nil {
			return err
		}
		o.notifier.Info(msgEmpty)
		return errors.Wrapf(ErrEmptyPlaylist, "url=%s", ref.URL)
	}

	s := &playlist.Session{
		Reference: ref,
		Tracks:    result.Tracks,
		Cursor:    0,
	}
	if err := o.state.Activate(ctx, s); err != nil {
		o.notifier.Error(msgStateFailed)
		return err
	}
	zlog.Info().Msgf("playback: session started: url=%s title=%s tracks=%d", ref.URL, ref.Title, len(s.Tracks))
	o.signal(ctx, EventSessionStarted, s, nil)

	return o.PlayCurrent(ctx)
}

// PlayCurrent plays the track at the cursor. When the player fails, the cursor
// moves forward until a track plays or the playlist is exhausted; a track is
// never retried in place. The number of attempts never exceeds the number of
// tracks remaining from the cursor.
func (o *Orchestrator) PlayCurrent(ctx context.Context) error {
	s, err := o.session(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		o.notifier.Warn(msgNoActive)
		return ErrInvalidState
	}

	if o.config.ResyncOnPlay {
		if err := o.resyncKeepingCursor(ctx, s); err != nil {
			return err
		}
	}

	if len(s.Tracks) == 0 {
		if err := o.Complete(ctx); err != nil {
			return err
		}
		o.notifier.Info(msgEmpty)
		return ErrEmptyPlaylist
	}

	skipNotified := false
	failed := 0
	for attempts := s.Remaining(); attempts > 0; attempts-- {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "playback cancelled")
		}

		t, ok := s.CurrentTrack()
		if !ok || !t.IsPlayable() {
			o.notifier.Warn(msgTrackUnavailable)
			return errors.Wrapf(ErrTrackUnavailable, "cursor=%d tracks=%d", s.Cursor, len(s.Tracks))
		}

		o.signal(ctx, EventTrackLoading, s, &t)
		zlog.Info().Msgf("playback: playing track: id=%s title=%s cursor=%d/%d", t.ID, t.Title, s.Cursor+1, len(s.Tracks))
		if o.player.Play(ctx, t.PrimaryURL, t.Title, t.AlternateURL) {
			o.signal(ctx, EventTrackStarted, s, &t)
			return nil
		}

		failed++
		zlog.Warn().Msgf("playback: track failed: id=%s title=%s", t.ID, t.Title)
		o.signal(ctx, EventTrackFailed, s, &t)
		if !skipNotified {
			o.notifier.Warn(msgSkipping)
			skipNotified = true
		}

		if !s.HasNext() {
			break
		}
		s.Cursor++
		if err := o.saveSession(ctx, s); err != nil {
			return err
		}
		o.signal(ctx, EventCursorMoved, s, nil)
	}

	if err := o.exhaust(ctx); err != nil {
		return err
	}
	return errors.Wrapf(ErrPlaybackFailed, "%d tracks failed", failed)
}

// Next advances the cursor and plays. At the last track the playlist is
// exhausted and the engine returns to search mode.
func (o *Orchestrator) Next(ctx context.Context) error {
	s, err := o.session(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		o.notifier.Info(msgInactive)
		return ErrInvalidState
	}

	if !s.HasNext() {
		return o.exhaust(ctx)
	}

	s.Cursor++
	if err := o.saveSession(ctx, s); err != nil {
		return err
	}
	o.signal(ctx, EventCursorMoved, s, nil)
	return o.PlayCurrent(ctx)
}

// Previous moves the cursor back and plays. At the first track it only warns.
func (o *Orchestrator) Previous(ctx context.Context) error {
	s, err := o.session(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		o.notifier.Info(msgInactive)
		return ErrInvalidState
	}

	if !s.HasPrevious() {
		o.notifier.Warn(msgAtFirst)
		return nil
	}

	s.Cursor--
	if err := o.saveSession(ctx, s); err != nil {
		return err
	}
	o.signal(ctx, EventCursorMoved, s, nil)
	return o.PlayCurrent(ctx)
}

// Refresh re-resolves the active playlist. The cursor follows the previously
// current track by id; if it is gone the old cursor is clamped to the new length.
// A failed resolve leaves the session untouched.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	s, err := o.session(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		o.notifier.Info(msgNoRefresh)
		return ErrInvalidState
	}

	result, err := o.resolver.Resolve(ctx, s.Reference.URL)
	if err != nil {
		o.notifier.Error(msgRefreshFailed)
		return errors.Wrapf(err, "failed to refresh playlist %s", s.Reference.URL)
	}

	var currentID string
	if cur, ok := s.CurrentTrack(); ok {
		currentID = cur.ID
	}
	return o.applyResolved(ctx, s, result, Reposition(s.Cursor, currentID, result.Tracks))
}

// resyncKeepingCursor re-resolves s in place before playing, keeping the
// numeric cursor. A failed resolve keeps the saved track list.
func (o *Orchestrator) resyncKeepingCursor(ctx context.Context, s *playlist.Session) error {
	result, err := o.resolver.Resolve(ctx, s.Reference.URL)
	if err != nil {
		zlog.Warn().Msgf("playback: resync before play failed: url=%s err=%v", s.Reference.URL, err)
		o.notifier.Warn(msgResyncFailed)
		return nil
	}

	cursor := playlist.ClampCursor(s.Cursor, len(result.Tracks))
	return o.applyResolved(ctx, s, result, cursor)
}

// applyResolved replaces the session track list. An empty list ends the session.
func (o *Orchestrator) applyResolved(ctx context.Context, s *playlist.Session, result *metadata.Result, cursor int) error {
	if err := o.syncTitle(ctx, s.Reference.URL, result.Title); err != nil {
		return err
	}

	if len(result.Tracks) == 0 {
		zlog.Info().Msgf("playback: playlist became empty: url=%s", s.Reference.URL)
		if err := o.Complete(ctx); err != nil {
			return err
		}
		o.notifier.Info(msgEmpty)
		return errors.Wrapf(ErrEmptyPlaylist, "url=%s", s.Reference.URL)
	}

	prev := s.Cursor
	s.Reference.Title = result.Title
	s.Tracks = result.Tracks
	s.Cursor = cursor
	if err := o.saveSession(ctx, s); err != nil {
		return err
	}
	zlog.Info().Msgf("playback: session refreshed: url=%s tracks=%d cursor=%d->%d", s.Reference.URL, len(s.Tracks), prev, s.Cursor)
	o.signal(ctx, EventSessionRefreshed, s, nil)
	return nil
}

// Reposition returns the cursor for a new track list: the index of currentID
// if present, else the old cursor clamped to the new length, else 0.
func Reposition(cursor int, currentID string, tracks []track.Track) int {
	// Stay put when the same id is still there (duplicates).
	if currentID != "" && cursor >= 0 && cursor < len(tracks) && tracks[cursor].ID == currentID {
		return cursor
	}
	if idx := track.IndexOf(tracks, currentID); idx >= 0 {
		return idx
	}
	return playlist.ClampCursor(cursor, len(tracks))
}

// Complete discards the session and returns to search mode.
func (o *Orchestrator) Complete(ctx context.Context) error {
	if err := o.state.Deactivate(ctx); err != nil {
		o.notifier.Error(msgStateFailed)
		return err
	}
	zlog.Info().Msg("playback: session completed, search mode")
	o.signal(ctx, EventSessionCompleted, nil, nil)
	return nil
}

// EnsurePlaylistMode reports whether a playlist session is active,
// telling the user to activate one if not.
func (o *Orchestrator) EnsurePlaylistMode(ctx context.Context) bool {
	mode, err := o.state.Mode(ctx)
	if err != nil {
		zlog.Error().Msgf("playback: failed to read mode: %v", err)
		o.notifier.Info(msgActivate)
		return false
	}
	s, err := o.state.Session(ctx)
	if err != nil {
		zlog.Error().Msgf("playback: failed to read session: %v", err)
	}
	if mode != state.ModePlaylist || s == nil {
		o.notifier.Info(msgActivate)
		return false
	}
	return true
}

// Mode returns the current mode.
func (o *Orchestrator) Mode(ctx context.Context) (state.Mode, error) {
	return o.state.Mode(ctx)
}

// Session returns the active session, or nil.
func (o *Orchestrator) Session(ctx context.Context) (*playlist.Session, error) {
	return o.state.Session(ctx)
}

// CurrentTrack returns the track at the cursor of the active session.
func (o *Orchestrator) CurrentTrack(ctx context.Context) (track.Track, bool, error) {
	s, err := o.state.Session(ctx)
	if err != nil {
		return track.Track{}, false, err
	}
	t, ok := s.CurrentTrack()
	return t, ok, nil
}

// HasNext reports whether the active session has a track after the cursor.
func (o *Orchestrator) HasNext(ctx context.Context) (bool, error) {
	s, err := o.state.Session(ctx)
	if err != nil {
		return false, err
	}
	return s.HasNext(), nil
}

// HasPrevious reports whether the active session has a track before the cursor.
func (o *Orchestrator) HasPrevious(ctx context.Context) (bool, error) {
	s, err := o.state.Session(ctx)
	if err != nil {
		return false, err
	}
	return s.HasPrevious(), nil
}

// exhaust ends the session after the last track.
func (o *Orchestrator) exhaust(ctx context.Context) error {
	zlog.Info().Msg("playback: reached end of playlist")
	if err := o.Complete(ctx); err != nil {
		return err
	}
	o.notifier.Info(msgEnd)
	return nil
}

func (o *Orchestrator) session(ctx context.Context) (*playlist.Session, error) {
	s, err := o.state.Session(ctx)
	if err != nil {
		o.notifier.Error(msgStateFailed)
		return nil, err
	}
	return s, nil
}

func (o *Orchestrator) saveSession(ctx context.Context, s *playlist.Session) error {
	if err := o.state.SetSession(ctx, s); err != nil {
		o.notifier.Error(msgStateFailed)
		return err
	}
	return nil
}

// syncTitle stores the resolved title on every catalog entry for url.
func (o *Orchestrator) syncTitle(ctx context.Context, url, title string) error {
	if err := o.catalog.Update(ctx, url, playlist.ReferenceUpdate{Title: &title}); err != nil {
		o.notifier.Error(msgStateFailed)
		return err
	}
	o.signal(ctx, EventCatalogChanged, nil, nil)
	return nil
}

// signal broadcasts a refresh event. Fire-and-forget.
func (o *Orchestrator) signal(ctx context.Context, typ EventType, s *playlist.Session, t *track.Track) {
	e := Event{Type: typ, Track: t}
	if s != nil {
		e.Mode = state.ModePlaylist
		e.Cursor = s.Cursor
		e.Total = len(s.Tracks)
	} else if mode, err := o.state.Mode(ctx); err == nil {
		e.Mode = mode
	}
	zlog.Debug().Msgf("playback: event: type=%s mode=%s cursor=%d total=%d", e.Type, e.Mode, e.Cursor, e.Total)
	o.events.Broadcast(e)
}
