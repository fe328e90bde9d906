// Package app builds the long-lived services shared by the command line and
// terminal interfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/handiism/spotify-downloader/internal/audio"
	"github.com/handiism/spotify-downloader/internal/config"
	"github.com/handiism/spotify-downloader/internal/credentials"
	"github.com/handiism/spotify-downloader/internal/download"
	"github.com/handiism/spotify-downloader/internal/http"
	"github.com/handiism/spotify-downloader/internal/logging"
	"github.com/handiism/spotify-downloader/internal/metrics"
	"github.com/handiism/spotify-downloader/internal/spotify"
	"github.com/handiism/spotify-downloader/internal/ytdlp"
	"github.com/handiism/spotify-downloader/internal/ytmusic"
)

// App holds the collaborators of a download run.
type App struct {
	settings *config.Settings
	logger   *zap.Logger

	Store    *credentials.Store
	Spotify  *spotify.Client
	YTMusic  *ytmusic.Client
	YtDlp    *ytdlp.Tool
	Tagger   *audio.Tagger
	HTTP     *http.Client
	Registry *prometheus.Registry
	Recorder *metrics.Recorder

	cancelMetrics context.CancelFunc
	metricsDone   chan struct{}
}

// New loads credentials, prompting through p when they are missing, and
// creates every client. The YouTube Music session is bootstrapped before
// New returns.
func New(ctx context.Context, settings *config.Settings, logger *zap.Logger, p *credentials.Prompter) (*App, error) {
	logger = logging.OrNop(logger)

	store, err := CredentialStore(settings)
	if err != nil {
		return nil, err
	}
	logger.Debug("credential store", zap.String("dir", store.Dir()))

	spotifyApp := &credentials.SpotifyApp{ClientID: settings.Spotify.ClientID, ClientSecret: settings.Spotify.ClientSecret}
	if !spotifyApp.Valid() {
		if spotifyApp, err = credentials.AppCredentials(store, p); err != nil {
			return nil, fmt.Errorf("spotify credentials: %w", err)
		}
	}

	sapisid, err := credentials.BrowserSession(store, p)
	if err != nil {
		return nil, fmt.Errorf("youtube music credentials: %w", err)
	}

	hc := http.NewClient(
		http.WithTimeout(settings.HTTP.Timeout),
		http.WithRateLimit(settings.HTTP.RequestsPerSecond),
	)

	a := &App{
		settings: settings,
		logger:   logger,
		Store:    store,
		HTTP:     hc,
		Spotify: spotify.NewClient(hc, spotifyApp.ClientID, spotifyApp.ClientSecret,
			spotify.WithTokenStore(store),
			spotify.WithLogger(logger.Named("spotify"))),
		YTMusic: ytmusic.NewClient(hc, sapisid,
			ytmusic.WithFilter(SearchFilter(settings.Search.Filter)),
			ytmusic.WithLogger(logger.Named("ytmusic"))),
		YtDlp: ytdlp.New(
			ytdlp.WithBinary(settings.YtDlp.Binary),
			ytdlp.WithMP3(settings.YtDlp.MP3),
			ytdlp.WithLogger(logger.Named("ytdlp"))),
		Tagger:   audio.NewTagger(settings.ToTagConfig()),
		Registry: prometheus.NewRegistry(),
	}
	a.Recorder = metrics.NewRecorder(a.Registry)

	if err := a.YTMusic.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("youtube music session: %w", err)
	}
	logger.Debug("youtube music session ready", zap.String("visitor_id", a.YTMusic.VisitorID()))

	if settings.Metrics.Addr != "" {
		a.serveMetrics(settings.Metrics.Addr)
	}
	return a, nil
}

// CredentialStore opens the configured credential store.
func CredentialStore(settings *config.Settings) (*credentials.Store, error) {
	dir := settings.CredentialsDir
	if dir == "" {
		var err error
		if dir, err = credentials.DefaultDir(); err != nil {
			return nil, err
		}
	}
	return credentials.NewStore(dir), nil
}

// Services returns the orchestrator collaborators using chooser for search
// results. A nil chooser picks the first valid result.
func (a *App) Services(chooser download.Chooser) download.Services {
	return download.Services{
		Catalog: a.Spotify,
		Artists: a.Spotify,
		Search:  a.YTMusic,
		Fetch:   a.YtDlp,
		Tagger:  a.Tagger,
		Images:  a.HTTP,
		Chooser: chooser,
	}
}

// NewManager creates a Manager over the app services.
func (a *App) NewManager(chooser download.Chooser, onProgress func(download.ProgressEvent)) *download.Manager {
	return download.NewManager(a.settings, a.Services(chooser), onProgress,
		download.WithLogger(a.logger.Named("download")),
		download.WithMetrics(a.Recorder))
}

func (a *App) serveMetrics(addr string) {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelMetrics = cancel
	a.metricsDone = make(chan struct{})

	srv := metrics.NewServer(addr, a.Registry, a.logger.Named("metrics"))
	go func() {
		defer close(a.metricsDone)
		if err := srv.Run(ctx); err != nil {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// Close stops the metrics server and flushes the logger.
func (a *App) Close() {
	if a.cancelMetrics != nil {
		a.cancelMetrics()
		<-a.metricsDone
	}
	_ = a.logger.Sync()
}

// SearchFilter maps a configured filter name to the search parameter.
func SearchFilter(name string) ytmusic.Filter {
	switch strings.ToLower(name) {
	case "songs":
		return ytmusic.FilterSongs
	case "videos":
		return ytmusic.FilterVideos
	default:
		return ytmusic.FilterNone
	}
}

// ExitCode maps the result of a run to the process exit status: 0 when the
// run completed, even with failed tracks, 130 when interrupted and 1
// otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled), errors.Is(err, ytdlp.ErrCancelled), errors.Is(err, download.ErrSelectionAborted):
		return 130
	default:
		return 1
	}
}
