// Package main provides the mudeplayer command line entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/mudeplayer/internal/app/catalog"
	"github.com/osa030/mudeplayer/internal/app/filter"
	"github.com/osa030/mudeplayer/internal/app/metadata"
	"github.com/osa030/mudeplayer/internal/app/notification"
	"github.com/osa030/mudeplayer/internal/app/playback"
	"github.com/osa030/mudeplayer/internal/app/session/state"
	"github.com/osa030/mudeplayer/internal/infra/config"
	"github.com/osa030/mudeplayer/internal/infra/logger"
	"github.com/osa030/mudeplayer/internal/infra/mpv"
	"github.com/osa030/mudeplayer/internal/infra/store"
	"github.com/osa030/mudeplayer/internal/infra/ytdlp"
)

var (
	app        = kingpin.New("mudeplayer", "Play YouTube playlists from the terminal")
	configPath = app.Flag("config", "Path to config file (default: $XDG_CONFIG_HOME/mudeplayer/config.yaml)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	addCmd  = app.Command("add", "Save a playlist")
	addURL  = addCmd.Arg("url", "Playlist URL").Required().String()
	addPlay = addCmd.Flag("play", "Start playing right away").Bool()

	listCmd = app.Command("list", "List saved playlists").Alias("ls")

	playCmd    = app.Command("play", "Play a saved playlist from its first track")
	playTarget = playCmd.Arg("playlist", "Playlist URL or list index").Required().String()

	nextCmd    = app.Command("next", "Play the next track")
	prevCmd    = app.Command("prev", "Play the previous track").Alias("previous")
	replayCmd  = app.Command("replay", "Play the current track again")
	refreshCmd = app.Command("refresh", "Re-fetch the playing playlist")
	stopCmd    = app.Command("stop", "Stop playback and return to search mode")

	deleteCmd     = app.Command("delete", "Delete saved playlists").Alias("rm")
	deleteTargets = deleteCmd.Arg("playlists", "Playlist URLs or list indexes").Strings()
	deleteAll     = deleteCmd.Flag("all", "Delete every saved playlist").Bool()

	statusCmd  = app.Command("status", "Show the playback status")
	filtersCmd = app.Command("filters", "List available entry filters")
)

// trackPlayer is a playback.TrackPlayer that can also be stopped.
type trackPlayer interface {
	playback.TrackPlayer
	Stop(ctx context.Context) error
}

// engine bundles the wired components for one invocation.
type engine struct {
	orch    *playback.Orchestrator
	catalog *catalog.Catalog
	player  trackPlayer
	notify  notification.Notifier
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == filtersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "warn",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, command)
	stop()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

// run executes one command. Using a separate function ensures deferred
// cleanup runs before the process exits.
func run(ctx context.Context, command string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			zlog.Warn().Msgf("failed to close store: %v", err)
		}
	}()

	e, err := newEngine(ctx, cfg, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	switch command {
	case addCmd.FullCommand():
		_, err = e.orch.AddPlaylist(ctx, *addURL, *addPlay)
	case listCmd.FullCommand():
		err = e.list(ctx)
	case playCmd.FullCommand():
		err = e.play(ctx, *playTarget)
	case nextCmd.FullCommand():
		err = e.orch.Next(ctx)
	case prevCmd.FullCommand():
		err = e.orch.Previous(ctx)
	case replayCmd.FullCommand():
		err = e.orch.PlayCurrent(ctx)
	case refreshCmd.FullCommand():
		err = e.orch.Refresh(ctx)
	case stopCmd.FullCommand():
		err = e.stop(ctx)
	case deleteCmd.FullCommand():
		err = e.delete(ctx, *deleteTargets, *deleteAll)
	case statusCmd.FullCommand():
		err = e.status(ctx)
	}

	if err != nil {
		zlog.Debug().Msgf("command %s failed: %+v", command, err)
	}
	return err
}

// loadConfig loads --config, else the XDG config file, else defaults.
func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		if found, err := xdg.SearchConfigFile("mudeplayer/config.yaml"); err == nil {
			path = found
		}
	}
	if path == "" {
		zlog.Debug().Msg("no config file, using defaults")
		return config.Default()
	}

	zlog.Debug().Msgf("Loading config from %s", path)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config %s", path)
	}
	return cfg, nil
}

func newEngine(ctx context.Context, cfg *config.Config, st store.Store) (*engine, error) {
	chain, err := filter.Build(cfg.FilterConfigs())
	if err != nil {
		return nil, errors.Wrap(err, "invalid filter config")
	}

	yt := ytdlp.New(cfg.Metadata.YtdlpPath)
	player, err := newPlayer(cfg.Player, yt)
	if err != nil {
		return nil, err
	}

	cat := catalog.New(st)
	console := notification.NewConsoleNotifier(os.Stdout)
	var notify notification.Notifier = console
	var desktop *notification.DesktopNotifier
	if cfg.Notify.Desktop {
		desktop, err = notification.NewDesktopNotifier("mudeplayer")
		if err != nil {
			zlog.Warn().Msgf("desktop notifications disabled: %v", err)
		} else {
			notify = notification.Multi{console, desktop}
		}
	}

	orch := playback.New(playback.Deps{
		Catalog:  cat,
		State:    state.New(st),
		Resolver: metadata.NewSyncer(yt, chain, cfg.MetadataTimeout()),
		Player:   player,
		Notifier: notify,
	}, playback.Config{
		ResyncOnPlay:                 cfg.Playback.ResyncOnPlay,
		NotifyActivePlaylistDeletion: cfg.NotifyOnActiveDeletion(),
	})
	orch.Events().Subscribe(func(seq uint64, ev playback.Event) {
		zlog.Debug().Msgf("event: seq=%d type=%s mode=%s cursor=%d total=%d", seq, ev.Type, ev.Mode, ev.Cursor, ev.Total)
		switch ev.Type {
		case playback.EventTrackLoading:
			fmt.Printf("Loading %s...\n", ev.Track.Title)
		case playback.EventTrackStarted:
			fmt.Printf("Now playing: %s (%d/%d)\n", ev.Track.Title, ev.Cursor+1, ev.Total)
			if desktop != nil {
				desktop.NowPlaying(ev.Track.Title, fmt.Sprintf("Track %d of %d", ev.Cursor+1, ev.Total))
			}
		}
	})

	if err := orch.Init(ctx); err != nil {
		return nil, err
	}

	return &engine{
		orch:    orch,
		catalog: cat,
		player:  player,
		notify:  notify,
	}, nil
}

// newPlayer creates the configured track player.
func newPlayer(cfg config.PlayerConfig, downloader mpv.Downloader) (trackPlayer, error) {
	zlog.Debug().Msgf("creating player: type=%s settings=%+v", cfg.Type, cfg.Settings)
	switch cfg.Type {
	case "mpv":
		p, err := mpv.NewFromSettings(cfg.Settings, downloader)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create player (type %s)", cfg.Type)
		}
		return p, nil
	default:
		return nil, errors.Newf("unsupported player type: %s", cfg.Type)
	}
}
