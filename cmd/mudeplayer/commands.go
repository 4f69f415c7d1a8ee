package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/osa030/mudeplayer/internal/app/filter"
	"github.com/osa030/mudeplayer/internal/app/session/state"
	"github.com/osa030/mudeplayer/internal/domain/playlist"
)

const msgStopped = "Playlist playback stopped."

func (e *engine) list(ctx context.Context) error {
	refs, err := e.catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		e.notify.Info("No playlists saved yet. Add one first.")
		return nil
	}

	s, err := e.orch.Session(ctx)
	if err != nil {
		return err
	}
	activeURL := ""
	if s != nil {
		activeURL = s.Reference.URL
	}
	printCatalog(os.Stdout, refs, activeURL)
	return nil
}

// printCatalog writes one line per saved playlist, marking the playing one.
func printCatalog(w io.Writer, refs []playlist.Reference, activeURL string) {
	for i, r := range refs {
		marker := " "
		if r.URL == activeURL {
			marker = "*"
		}
		added := "unknown"
		if !r.AddedAt.IsZero() {
			added = humanize.Time(r.AddedAt)
		}
		fmt.Fprintf(w, "%s %2d. %s\n       %s (added %s)\n", marker, i+1, r.DisplayName(), r.URL, added)
	}
}

func (e *engine) play(ctx context.Context, target string) error {
	refs, err := e.catalog.List(ctx)
	if err != nil {
		return err
	}
	urls, err := resolveTargets(refs, []string{target})
	if err == nil && len(urls) == 0 {
		err = errors.New("No playlist given.")
	}
	if err != nil {
		e.notify.Warn(err.Error())
		return err
	}
	return e.orch.Select(ctx, urls[0])
}

func (e *engine) stop(ctx context.Context) error {
	if err := e.player.Stop(ctx); err != nil {
		e.notify.Warn("Could not stop the player.")
		return err
	}
	mode, err := e.orch.Mode(ctx)
	if err != nil {
		return err
	}
	if mode == state.ModePlaylist {
		if err := e.orch.Complete(ctx); err != nil {
			return err
		}
	}
	e.notify.Info(msgStopped)
	return nil
}

func (e *engine) delete(ctx context.Context, targets []string, all bool) error {
	refs, err := e.catalog.List(ctx)
	if err != nil {
		return err
	}

	var urls []string
	if all {
		for _, r := range refs {
			urls = append(urls, r.URL)
		}
	} else {
		urls, err = resolveTargets(refs, targets)
		if err != nil {
			e.notify.Warn(err.Error())
			return err
		}
	}

	_, err = e.orch.DeletePlaylists(ctx, urls)
	return err
}

func (e *engine) status(ctx context.Context) error {
	mode, err := e.orch.Mode(ctx)
	if err != nil {
		return err
	}
	s, err := e.orch.Session(ctx)
	if err != nil {
		return err
	}
	printStatus(os.Stdout, mode, s)
	return nil
}

// printStatus writes the mode and, in playlist mode, the session position.
func printStatus(w io.Writer, mode state.Mode, s *playlist.Session) {
	fmt.Fprintf(w, "Mode: %s\n", mode)
	if s == nil {
		return
	}
	fmt.Fprintf(w, "Playlist: %s\n", s.Reference.DisplayName())
	fmt.Fprintf(w, "Position: %d/%d\n", s.Cursor+1, len(s.Tracks))
	if t, ok := s.CurrentTrack(); ok {
		fmt.Fprintf(w, "Track: %s\n", t.Title)
		fmt.Fprintf(w, "URL: %s\n", t.PrimaryURL)
	}
	if next, ok := (&playlist.Session{Tracks: s.Tracks, Cursor: s.Cursor + 1}).CurrentTrack(); ok {
		fmt.Fprintf(w, "Up next: %s\n", next.Title)
	}
}

// resolveTargets maps 1-based list indexes to urls; anything else is taken as a url.
func resolveTargets(refs []playlist.Reference, targets []string) ([]string, error) {
	urls := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			urls = append(urls, t)
			continue
		}
		if n < 1 || n > len(refs) {
			return nil, errors.Newf("No saved playlist at index %d.", n)
		}
		urls = append(urls, refs[n-1].URL)
	}
	return urls, nil
}

func printFilters() {
	fmt.Println("Available Filters:")
	for _, name := range filter.Names() {
		f := filter.GetRegistered()[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		def := "disabled"
		if f.EnabledByDefault() {
			def = "enabled"
		}
		fmt.Printf("  %-30s - %s [codes: %s] (default: %s)\n", f.Name(), f.Description(), codes, def)
	}
}
