// Package ytdlp provides the yt-dlp backed playlist provider and audio downloader.
package ytdlp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lrstanley/go-ytdlp"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/playlist"
	"github.com/osa030/mudeplayer/internal/domain/track"
)

// AudioFormat is the yt-dlp format selector used for downloads.
const AudioFormat = "bestaudio/best"

// Errors
var (
	ErrEmptyOutput = errors.New("yt-dlp returned no output")
	ErrInvalidJSON = errors.New("yt-dlp returned invalid json")
)

// Client runs yt-dlp.
type Client struct {
	executable string
}

// New creates a client. An empty executable uses yt-dlp from PATH.
func New(executable string) *Client {
	return &Client{executable: executable}
}

func (c *Client) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig()
	if c.executable != "" {
		cmd.SetExecutable(c.executable)
	}
	return cmd
}

// Resolve fetches the flat playlist listing for url.
func (c *Client) Resolve(ctx context.Context, url string) (*playlist.Remote, error) {
	zlog.Debug().Msgf("ytdlp: resolving playlist: url=%s", url)

	res, err := c.command().
		DumpSingleJSON().
		FlatPlaylist().
		SkipDownload().
		IgnoreErrors().
		Run(ctx, url)
	if err != nil {
		// Unavailable items make yt-dlp exit non-zero even with a usable listing.
		if res == nil || strings.TrimSpace(res.Stdout) == "" || ctx.Err() != nil {
			return nil, errors.Wrapf(err, "yt-dlp failed for %s", url)
		}
		zlog.Warn().Msgf("ytdlp: partial listing: url=%s err=%v", url, err)
	}

	remote, err := ParsePlaylist([]byte(res.Stdout))
	if err != nil {
		return nil, errors.Wrapf(err, "url=%s", url)
	}
	zlog.Debug().Msgf("ytdlp: resolved playlist: url=%s title=%s entries=%d", url, remote.Title, len(remote.Entries))
	return remote, nil
}

// Download saves the audio of url as <dir>/<name>.<ext>.
func (c *Client) Download(ctx context.Context, url, dir, name string) error {
	zlog.Debug().Msgf("ytdlp: downloading: url=%s dir=%s", url, dir)

	_, err := c.command().
		NoPlaylist().
		Format(AudioFormat).
		ForceOverwrites().
		Output(filepath.Join(dir, name+".%(ext)s")).
		Run(ctx, url)
	if err != nil {
		return errors.Wrapf(err, "failed to download %s", url)
	}
	return nil
}

// document is the subset of yt-dlp's --dump-single-json output we read.
type document struct {
	Type    string        `json:"_type"`
	Title   string        `json:"title"`
	Entries []track.Entry `json:"entries"`
	track.Entry
}

// ParsePlaylist decodes yt-dlp's single JSON document. A single video
// document yields a one-entry playlist.
func ParsePlaylist(data []byte) (*playlist.Remote, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyOutput
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to decode playlist"), ErrInvalidJSON)
	}

	remote := &playlist.Remote{Title: doc.Title}
	if doc.Type == "playlist" || doc.Entries != nil {
		remote.Entries = make([]track.Entry, 0, len(doc.Entries))
		for _, e := range doc.Entries {
			// Unavailable items come back as null entries.
			if e == (track.Entry{}) {
				continue
			}
			remote.Entries = append(remote.Entries, e)
		}
		return remote, nil
	}

	if doc.Entry.ResolveID() != "" {
		e := doc.Entry
		e.Title = doc.Title
		remote.Entries = []track.Entry{e}
	}
	return remote, nil
}
