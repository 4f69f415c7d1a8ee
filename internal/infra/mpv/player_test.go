package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/mudeplayer/internal/domain/track"
)

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// fakeMPV answers JSON IPC commands on a unix socket.
type fakeMPV struct {
	listener net.Listener
	mu       sync.Mutex
	commands [][]any
	fail     map[string]string // command name -> error string
	silent   bool              // record commands but never reply
}

func startFakeMPV(t *testing.T, socket string) *fakeMPV {
	t.Helper()
	l, err := net.Listen("unix", socket)
	require.NoError(t, err)

	f := &fakeMPV{listener: l, fail: make(map[string]string)}
	t.Cleanup(func() { _ = l.Close() })
	go f.serve()
	return f
}

func (f *fakeMPV) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMPV) handle(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req ipcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, req.Command)
		errStr := "success"
		if msg, ok := f.fail[fmt.Sprint(req.Command[0])]; ok {
			errStr = msg
		}
		silent := f.silent
		f.mu.Unlock()
		if silent {
			continue
		}

		// Events interleave with replies.
		_, _ = fmt.Fprintf(conn, "{\"event\":\"idle\"}\n")
		_, _ = fmt.Fprintf(conn, "{\"request_id\":%d,\"error\":%q,\"data\":null}\n", req.RequestID, errStr)
	}
}

func (f *fakeMPV) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.commands))
	for _, c := range f.commands {
		names = append(names, fmt.Sprint(c[0]))
	}
	return names
}

func (f *fakeMPV) last() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commands[len(f.commands)-1]
}

// fakeDownloader writes <dir>/<name>.m4a unless the url is marked failing.
type fakeDownloader struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (d *fakeDownloader) Download(_ context.Context, url, dir, name string) error {
	d.mu.Lock()
	d.calls = append(d.calls, url)
	failing := d.fail[url]
	d.mu.Unlock()

	if failing {
		return errors.Newf("download failed: %s", url)
	}
	return os.WriteFile(filepath.Join(dir, name+".m4a"), []byte("audio"), 0o644)
}

func setupPlayer(t *testing.T) (*Player, *fakeDownloader, string) {
	t.Helper()
	// Unix socket paths are length-limited, so keep the directory short.
	dir, err := os.MkdirTemp("", "mpv")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	config, err := DecodeConfig(map[string]any{
		"socket":             filepath.Join(dir, "s.sock"),
		"download_dir":       filepath.Join(dir, "dl"),
		"startup_timeout_ms": 200,
	})
	require.NoError(t, err)

	d := &fakeDownloader{fail: make(map[string]bool)}
	p := New(config, d)
	p.retryDelay = 0
	p.launch = func() error { return errors.New("launch disabled in tests") }
	return p, d, dir
}

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
		check    func(t *testing.T, c *Config)
	}{
		{
			name:     "defaults",
			settings: nil,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "mpv", c.Executable)
				assert.Equal(t, 3, c.Attempts)
				assert.Equal(t, 5*time.Second, c.StartupTimeout())
				assert.Equal(t, filepath.Join(os.TempDir(), "mudeplayer-mpv.sock"), c.Socket)
				assert.Equal(t, filepath.Join(os.TempDir(), "mudeplayer"), c.DownloadDir)
			},
		},
		{
			name:     "weakly typed values",
			settings: map[string]any{"attempts": "5", "executable": "/usr/bin/mpv"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 5, c.Attempts)
				assert.Equal(t, "/usr/bin/mpv", c.Executable)
			},
		},
		{
			name:     "attempts out of range",
			settings: map[string]any{"attempts": 11},
			wantErr:  true,
		},
		{
			name:     "startup timeout too small",
			settings: map[string]any{"startup_timeout_ms": 10},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := DecodeConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestPlayer_PlayLoadsDownloadedFile(t *testing.T) {
	p, d, dir := setupPlayer(t)
	mpv := startFakeMPV(t, p.config.Socket)

	ok := p.Play(context.Background(), track.PrimaryURL("abc123"), "Song", track.AlternateURL("abc123"))
	require.True(t, ok)

	assert.Equal(t, []string{track.PrimaryURL("abc123")}, d.calls)
	assert.Equal(t, []string{"set_property", "loadfile"}, mpv.names())
	mpv.mu.Lock()
	assert.Equal(t, []any{"set_property", "force-media-title", "Song"}, mpv.commands[0])
	mpv.mu.Unlock()
	assert.Equal(t, []any{"loadfile", filepath.Join(dir, "dl", "abc123.m4a"), "replace"}, mpv.last())
}

func TestPlayer_FallsBackToAlternateURL(t *testing.T) {
	p, d, _ := setupPlayer(t)
	startFakeMPV(t, p.config.Socket)
	d.fail[track.PrimaryURL("abc123")] = true

	ok := p.Play(context.Background(), track.PrimaryURL("abc123"), "Song", track.AlternateURL("abc123"))
	require.True(t, ok)
	assert.Equal(t, []string{track.PrimaryURL("abc123"), track.AlternateURL("abc123")}, d.calls)
}

func TestPlayer_RetriesThenGivesUp(t *testing.T) {
	p, d, _ := setupPlayer(t)
	mpv := startFakeMPV(t, p.config.Socket)
	d.fail[track.PrimaryURL("x")] = true
	d.fail[track.AlternateURL("x")] = true

	ok := p.Play(context.Background(), track.PrimaryURL("x"), "Song", track.AlternateURL("x"))
	assert.False(t, ok)
	assert.Len(t, d.calls, 2*p.config.Attempts)
	assert.Empty(t, mpv.names(), "nothing is loaded when the download fails")
}

func TestPlayer_LoadErrorReportsFailure(t *testing.T) {
	p, _, _ := setupPlayer(t)
	mpv := startFakeMPV(t, p.config.Socket)
	mpv.mu.Lock()
	mpv.fail["loadfile"] = "loading failed"
	mpv.mu.Unlock()

	ok := p.Play(context.Background(), track.PrimaryURL("abc123"), "Song", "")
	assert.False(t, ok)

	err := p.Load(context.Background(), "/tmp/song.m4a", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandFailed))
	assert.Contains(t, err.Error(), "loading failed")
}

func TestPlayer_LoadGivesUpWithoutReply(t *testing.T) {
	p, _, _ := setupPlayer(t)
	mpv := startFakeMPV(t, p.config.Socket)
	mpv.mu.Lock()
	mpv.silent = true
	mpv.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Load(ctx, "/tmp/song.m4a", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrCommandFailed))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPlayer_NoURL(t *testing.T) {
	p, _, _ := setupPlayer(t)
	ok := p.Play(context.Background(), "", "Song", "")
	assert.False(t, ok)

	_, err := p.fetch(context.Background(), "", "")
	assert.True(t, errors.Is(err, ErrNoSource))
}

func TestPlayer_LaunchFailure(t *testing.T) {
	p, _, _ := setupPlayer(t)

	err := p.Load(context.Background(), "/tmp/song.m4a", "Song")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch disabled")
}

func TestPlayer_LaunchWaitsForSocket(t *testing.T) {
	p, _, _ := setupPlayer(t)
	p.config.StartupTimeoutMs = 2000

	var mpv *fakeMPV
	p.launch = func() error {
		mpv = startFakeMPV(t, p.config.Socket)
		return nil
	}

	require.NoError(t, p.Load(context.Background(), "/tmp/song.m4a", ""))
	assert.Equal(t, []string{"loadfile"}, mpv.names())
}

func TestPlayer_Stop(t *testing.T) {
	p, _, _ := setupPlayer(t)

	// Not running is not an error.
	require.NoError(t, p.Stop(context.Background()))

	mpv := startFakeMPV(t, p.config.Socket)
	require.NoError(t, p.Stop(context.Background()))
	assert.Equal(t, []string{"stop"}, mpv.names())
}

func TestCacheName(t *testing.T) {
	assert.Equal(t, "abc123", cacheName(track.PrimaryURL("abc123"), ""))
	assert.Equal(t, "abc123", cacheName("", track.AlternateURL("abc123")))

	opaque := cacheName("https://example.com/a.mp3", "")
	assert.Len(t, opaque, 36)
	assert.Equal(t, opaque, cacheName("https://example.com/a.mp3", ""), "stable across calls")
}

func TestLocateSkipsPartialFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id1.webm.part"), nil, 0o644))

	_, err := locate(dir, "id1")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "id1.webm"), nil, 0o644))
	path, err := locate(dir, "id1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "id1.webm"), path)
}
