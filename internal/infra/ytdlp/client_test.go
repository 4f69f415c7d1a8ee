package ytdlp

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

const flatPlaylistJSON = `{
  "_type": "playlist",
  "id": "PL123",
  "title": "Night Drive",
  "entries": [
    {"_type": "url", "ie_key": "Youtube", "id": "abc123", "url": "https://www.youtube.com/watch?v=abc123", "title": "First", "duration": 215.0, "availability": null},
    null,
    {"_type": "url", "id": "def456", "url": "https://www.youtube.com/watch?v=def456", "title": "[Private video]", "duration": null, "availability": "private"},
    {"_type": "url", "url": "https://www.youtube.com/watch?v=ghi789", "title": "Third"}
  ]
}`

func TestParsePlaylist(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTitle string
		wantIDs   []string
		wantErr   error
	}{
		{
			name:      "flat playlist",
			input:     flatPlaylistJSON,
			wantTitle: "Night Drive",
			wantIDs:   []string{"abc123", "def456", "ghi789"},
		},
		{
			name:      "empty playlist",
			input:     `{"_type": "playlist", "title": "Empty", "entries": []}`,
			wantTitle: "Empty",
			wantIDs:   []string{},
		},
		{
			name:      "single video",
			input:     `{"id": "solo1", "title": "Solo", "webpage_url": "https://www.youtube.com/watch?v=solo1", "duration": 60}`,
			wantTitle: "Solo",
			wantIDs:   []string{"solo1"},
		},
		{
			name:    "empty output",
			input:   "  \n",
			wantErr: ErrEmptyOutput,
		},
		{
			name:    "garbage",
			input:   "ERROR: Unsupported URL",
			wantErr: ErrInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote, err := ParsePlaylist([]byte(tt.input))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, remote.Title)
			ids := make([]string, 0, len(remote.Entries))
			for _, e := range remote.Entries {
				ids = append(ids, e.ResolveID())
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestParsePlaylist_EntryFields(t *testing.T) {
	remote, err := ParsePlaylist([]byte(flatPlaylistJSON))
	require.NoError(t, err)
	require.Len(t, remote.Entries, 3)

	assert.Equal(t, track.Entry{
		ID:       "abc123",
		URL:      "https://www.youtube.com/watch?v=abc123",
		Title:    "First",
		Duration: 215,
	}, remote.Entries[0])
	assert.Equal(t, "private", remote.Entries[1].Availability)
	assert.Zero(t, remote.Entries[1].Duration)
}

func TestNew(t *testing.T) {
	c := New("/opt/bin/yt-dlp")
	assert.Equal(t, "/opt/bin/yt-dlp", c.executable)
	assert.NotNil(t, c.command())
}
