// Package state provides the persisted playback mode and active playlist session.
package state

// Mode represents which playback mode is active.
type Mode int

const (
	ModeSearch   Mode = iota // Ad-hoc search and play (default)
	ModePlaylist             // Stepping through the active playlist session
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSearch:
		return "search"
	case ModePlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// ParseMode parses a persisted mode. Unknown values map to ModeSearch.
func ParseMode(s string) Mode {
	if s == "playlist" {
		return ModePlaylist
	}
	return ModeSearch
}
