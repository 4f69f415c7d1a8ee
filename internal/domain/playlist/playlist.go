// Package playlist provides the playlist reference and active session entities.
package playlist

import (
	"time"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

// UntitledTitle is used when the remote playlist carries no title.
const UntitledTitle = "Untitled Playlist"

// Reference is a saved pointer to a remote playlist.
// URL is the identity key; Title is refreshed from the remote source.
type Reference struct {
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	AddedAt time.Time `json:"addedAt"`
}

// DisplayName returns the title, falling back to the URL.
func (r Reference) DisplayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}

// ReferenceUpdate holds the mutable fields of a Reference.
// Nil fields are left unchanged.
type ReferenceUpdate struct {
	Title *string
}

// Apply returns a copy of r with the update applied.
func (u ReferenceUpdate) Apply(r Reference) Reference {
	if u.Title != nil {
		r.Title = *u.Title
	}
	return r
}

// Remote is a playlist as returned by the metadata provider, before filtering.
type Remote struct {
	Title   string        `json:"title"`
	Entries []track.Entry `json:"entries"`
}

// Session is the resolved track list and cursor of the playlist being played.
type Session struct {
	Reference Reference     `json:"playlist"`
	Tracks    []track.Track `json:"tracks"`
	Cursor    int           `json:"currentIndex"`
}

// CurrentTrack returns the track at the cursor.
func (s *Session) CurrentTrack() (track.Track, bool) {
	if s == nil || s.Cursor < 0 || s.Cursor >= len(s.Tracks) {
		return track.Track{}, false
	}
	return s.Tracks[s.Cursor], true
}

// HasNext reports whether an index cursor+1 exists.
func (s *Session) HasNext() bool {
	return s != nil && s.Cursor+1 < len(s.Tracks)
}

// HasPrevious reports whether an index cursor-1 exists.
func (s *Session) HasPrevious() bool {
	return s != nil && s.Cursor-1 >= 0 && len(s.Tracks) > 0
}

// Valid reports whether the cursor is within bounds.
func (s *Session) Valid() bool {
	if len(s.Tracks) == 0 {
		return s.Cursor == 0
	}
	return s.Cursor >= 0 && s.Cursor < len(s.Tracks)
}

// Remaining returns the number of tracks from the cursor to the end, inclusive.
func (s *Session) Remaining() int {
	if s == nil || len(s.Tracks) == 0 {
		return 0
	}
	return len(s.Tracks) - s.Cursor
}

// ClampCursor bounds cursor to a list of length n.
func ClampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor > n-1 {
		return n - 1
	}
	return cursor
}
