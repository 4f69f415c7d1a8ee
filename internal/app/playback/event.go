package playback

import (
	"github.com/osa030/mudeplayer/internal/app/session/state"
	"github.com/osa030/mudeplayer/internal/domain/track"
)

// EventType represents a refresh signal type.
type EventType int

const (
	EventSessionStarted   EventType = iota // Playlist session created
	EventSessionRefreshed                  // Track list re-resolved
	EventSessionCompleted                  // Session discarded, back to search mode
	EventCursorMoved                       // Cursor advanced or retreated
	EventTrackLoading                      // About to hand a track to the player
	EventTrackStarted                      // Player accepted the track
	EventTrackFailed                       // Player rejected the track
	EventCatalogChanged                    // Saved playlists added, renamed or removed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventSessionStarted:
		return "session_started"
	case EventSessionRefreshed:
		return "session_refreshed"
	case EventSessionCompleted:
		return "session_completed"
	case EventCursorMoved:
		return "cursor_moved"
	case EventTrackLoading:
		return "track_loading"
	case EventTrackStarted:
		return "track_started"
	case EventTrackFailed:
		return "track_failed"
	case EventCatalogChanged:
		return "catalog_changed"
	default:
		return "unknown"
	}
}

// Event is broadcast after every state change so observers can re-render.
type Event struct {
	Type   EventType
	Mode   state.Mode
	Track  *track.Track // Track involved (nil for some events)
	Cursor int
	Total  int
}
