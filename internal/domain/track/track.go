// Package track provides the Track domain entity.
package track

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// WatchURLTemplate is the canonical YouTube watch URL prefix.
	WatchURLTemplate = "https://www.youtube.com/watch?v="
	// MusicURLTemplate is the canonical YouTube Music watch URL prefix.
	MusicURLTemplate = "https://music.youtube.com/watch?v="

	// UnknownTitle is used when an entry carries no title.
	UnknownTitle = "Unknown Playlist Item"
)

var watchPathPattern = regexp.MustCompile(`/watch/(.+)$`)

// Track represents one playable item of a playlist.
// Both URLs are derived from ID when it is known.
type Track struct {
	ID           string `json:"videoId"`  // Stable remote identifier
	Title        string `json:"title"`    // Display title
	PrimaryURL   string `json:"webUrl"`   // Canonical watch URL
	AlternateURL string `json:"musicUrl"` // Canonical music URL
}

// New creates a track with canonical URLs derived from id.
// If id is empty, rawURL is used for both URLs.
func New(id, title, rawURL string) Track {
	t := Track{
		ID:           id,
		Title:        title,
		PrimaryURL:   rawURL,
		AlternateURL: rawURL,
	}
	if id != "" {
		t.PrimaryURL = PrimaryURL(id)
		t.AlternateURL = AlternateURL(id)
	}
	return t
}

// PrimaryURL returns the canonical watch URL for id.
func PrimaryURL(id string) string {
	return WatchURLTemplate + id
}

// AlternateURL returns the canonical music URL for id.
func AlternateURL(id string) string {
	return MusicURLTemplate + id
}

// IsPlayable reports whether the track has an identifier and something to play.
func (t *Track) IsPlayable() bool {
	return t.ID != "" && (t.PrimaryURL != "" || t.AlternateURL != "")
}

// ExtractID parses a video id out of a URL.
// The "v" query parameter wins; otherwise a "/watch/<id>" path segment is used.
// Relative URLs are resolved against youtube.com.
func ExtractID(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	base, _ := url.Parse("https://www.youtube.com")
	ref, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)

	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if m := watchPathPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// IndexOf returns the index of the track with the given id, or -1.
func IndexOf(tracks []Track, id string) int {
	if id == "" {
		return -1
	}
	for i := range tracks {
		if tracks[i].ID == id {
			return i
		}
	}
	return -1
}
