// Package mpv plays tracks by downloading their audio and loading it into a
// long-running mpv instance over its JSON IPC socket.
package mpv

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dexterlb/mpvipc"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

// Errors
var (
	ErrNoSource   = errors.New("no url to play")
	ErrNotRunning = errors.New("mpv is not running")
	ErrNotFound   = errors.New("downloaded file not found")

	// ErrCommandFailed marks errors mpv reported for a command.
	ErrCommandFailed = errors.New("mpv command failed")
)

const (
	defaultRetryDelay  = time.Second
	defaultCallTimeout = 5 * time.Second
	dialInterval       = 50 * time.Millisecond
)

// Downloader saves the audio of url as <dir>/<name>.<ext>.
type Downloader interface {
	Download(ctx context.Context, url, dir, name string) error
}

// Player downloads tracks and plays them in mpv.
type Player struct {
	config     *Config
	downloader Downloader
	launch     func() error
	retryDelay time.Duration
}

// New creates a player.
func New(config *Config, downloader Downloader) *Player {
	p := &Player{
		config:     config,
		downloader: downloader,
		retryDelay: defaultRetryDelay,
	}
	p.launch = p.startProcess
	return p
}

// NewFromSettings creates a player from a raw settings map.
func NewFromSettings(settings map[string]any, downloader Downloader) (*Player, error) {
	config, err := DecodeConfig(settings)
	if err != nil {
		return nil, err
	}
	return New(config, downloader), nil
}

// Play downloads the track, trying primaryURL then alternateURL on each
// attempt, and loads it into mpv. It reports whether playback started.
func (p *Player) Play(ctx context.Context, primaryURL, title, alternateURL string) bool {
	path, err := p.fetch(ctx, primaryURL, alternateURL)
	if err != nil {
		zlog.Error().Msgf("mpv: download failed: title=%s err=%v", title, err)
		return false
	}
	if err := p.Load(ctx, path, title); err != nil {
		zlog.Error().Msgf("mpv: load failed: title=%s path=%s err=%v", title, path, err)
		return false
	}
	zlog.Info().Msgf("mpv: playing: title=%s path=%s", title, path)
	return true
}

// Load replaces whatever mpv is playing with path, starting mpv if needed.
func (p *Player) Load(ctx context.Context, path, title string) error {
	conn, err := p.connect(ctx, true)
	if err != nil {
		return err
	}
	defer conn.Close()

	if title != "" {
		err := call(ctx, "set force-media-title", func() error {
			return conn.Set("force-media-title", title)
		})
		if err != nil {
			zlog.Warn().Msgf("mpv: failed to set title: %v", err)
		}
	}
	return call(ctx, "loadfile", func() error {
		_, err := conn.Call("loadfile", path, "replace")
		return err
	})
}

// Stop stops playback. It does nothing when mpv is not running.
func (p *Player) Stop(ctx context.Context) error {
	conn, err := p.connect(ctx, false)
	if errors.Is(err, ErrNotRunning) {
		return nil
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	return call(ctx, "stop", func() error {
		_, err := conn.Call("stop")
		return err
	})
}

// call runs fn, which talks to mpv, and gives up when ctx ends. Without a
// deadline on ctx a call is bounded by defaultCallTimeout.
func call(ctx context.Context, name string, fn func() error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		if err != nil {
			return errors.Mark(errors.Wrapf(err, "mpv %s", name), ErrCommandFailed)
		}
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "mpv %s: no reply", name)
	}
}

func (p *Player) fetch(ctx context.Context, primaryURL, alternateURL string) (string, error) {
	if primaryURL == "" && alternateURL == "" {
		return "", ErrNoSource
	}
	if err := os.MkdirAll(p.config.DownloadDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create download directory")
	}

	name := cacheName(primaryURL, alternateURL)
	var lastErr error
	for attempt := 1; attempt <= p.config.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		for _, u := range []string{primaryURL, alternateURL} {
			if u == "" {
				continue
			}
			if err := p.downloader.Download(ctx, u, p.config.DownloadDir, name); err != nil {
				zlog.Warn().Msgf("mpv: download attempt %d/%d failed: url=%s err=%v", attempt, p.config.Attempts, u, err)
				lastErr = err
				continue
			}
			path, err := locate(p.config.DownloadDir, name)
			if err != nil {
				lastErr = err
				continue
			}
			return path, nil
		}
	}
	return "", errors.Wrapf(lastErr, "download failed after %d attempts", p.config.Attempts)
}

// cacheName returns the file name stem for a track: its id when it has a safe
// one, else a stable uuid derived from the url.
func cacheName(primaryURL, alternateURL string) string {
	for _, u := range []string{primaryURL, alternateURL} {
		if id := track.ExtractID(u); id != "" && !strings.ContainsAny(id, `/\.`) {
			return id
		}
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(primaryURL+alternateURL)).String()
}

// locate finds the completed download for name, ignoring partial files.
func locate(dir, name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, name+".*"))
	if err != nil {
		return "", errors.Wrap(err, "failed to list downloads")
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		return m, nil
	}
	return "", errors.Wrapf(ErrNotFound, "name=%s", name)
}

// connect opens the IPC socket. When start is set and nothing listens, mpv is
// launched and polled until it accepts connections.
func (p *Player) connect(ctx context.Context, start bool) (*mpvipc.Connection, error) {
	conn, err := open(p.config.Socket)
	if err == nil {
		return conn, nil
	}
	if !start {
		return nil, errors.Wrapf(ErrNotRunning, "socket=%s", p.config.Socket)
	}

	zlog.Info().Msgf("mpv: starting player: socket=%s", p.config.Socket)
	if err := p.launch(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(p.config.StartupTimeout())
	for {
		conn, err := open(p.config.Socket)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(err, "mpv did not start within %s", p.config.StartupTimeout())
		}
		select {
		case <-time.After(dialInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func open(socket string) (*mpvipc.Connection, error) {
	conn := mpvipc.NewConnection(socket)
	if err := conn.Open(); err != nil {
		return nil, err
	}
	return conn, nil
}

// startProcess launches a detached, idle mpv that outlives this process.
func (p *Player) startProcess() error {
	cmd := exec.Command(p.config.Executable,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+p.config.Socket,
	)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start %s", p.config.Executable)
	}
	return cmd.Process.Release()
}
