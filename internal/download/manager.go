package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/handiism/spotify-downloader/internal/audio"
	"github.com/handiism/spotify-downloader/internal/config"
	ioutils "github.com/handiism/spotify-downloader/internal/io"
	"github.com/handiism/spotify-downloader/internal/logging"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/pipeline"
	"github.com/handiism/spotify-downloader/internal/ytmusic"
)

// ErrNothingToFetch is returned when no track could be resolved.
var ErrNothingToFetch = errors.New("no track could be matched, nothing to download")

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess

	// LevelProgress events carry only counters.
	LevelProgress
)

// ProgressEvent represents a run progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// Stage, Done and Total describe the running stage for LevelProgress
	// events; Done counts successes only.
	Stage State
	Done  int
	Total int
}

// CatalogClient resolves a source URL to its ordered tracks.
type CatalogClient interface {
	Resolve(ctx context.Context, url string) (*model.Collection, error)
}

// ArtistEnricher fills in full artist details such as genres.
type ArtistEnricher interface {
	EnrichArtists(ctx context.Context, tracks []model.Track) ([]model.Track, error)
}

// SearchClient returns ranked candidates for a text query.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]ytmusic.Candidate, error)
}

// FetchTool downloads url using the output template and returns the final
// file path.
type FetchTool interface {
	Fetch(ctx context.Context, url, template string, extra []string) (string, error)
}

// Tagger writes metadata to a downloaded file.
type Tagger interface {
	SaveTags(path string, track model.Track, artwork []byte) error
}

// ImageDownloader fetches cover art.
type ImageDownloader interface {
	DownloadBytes(ctx context.Context, url string) ([]byte, error)
}

// Services are the collaborators of a Manager. Catalog, Search and Fetch
// are required.
type Services struct {
	Catalog CatalogClient
	Artists ArtistEnricher
	Search  SearchClient
	Fetch   FetchTool
	Tagger  Tagger
	Images  ImageDownloader

	// Chooser defaults to FirstValid.
	Chooser Chooser
}

// StageConfig sizes one pipeline stage.
type StageConfig struct {
	PoolSize    int
	RetryBudget int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrNop(l) }
}

// WithMetrics sets the stage telemetry recorder.
func WithMetrics(r pipeline.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// Manager resolves a collection and downloads its tracks in two pipeline
// stages.
//
// Example:
//
//	m := download.NewManager(settings, services, onProgress, download.WithLogger(logger))
//	if err := m.Initialize(ctx, "https://open.spotify.com/album/..."); err != nil {
//	    return err
//	}
//	report, err := m.StartDownloads(ctx)
type Manager struct {
	settings *config.Settings
	services Services
	logger   *zap.Logger
	metrics  pipeline.Recorder

	collection *model.Collection

	state    atomic.Int32
	done     atomic.Int64
	total    atomic.Int64
	teardown []func()

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// NewManager creates a new Manager.
func NewManager(settings *config.Settings, services Services, onProgress func(ProgressEvent), opts ...Option) *Manager {
	if services.Chooser == nil {
		services.Chooser = FirstValid
	}
	m := &Manager{
		settings:   settings,
		services:   services,
		logger:     zap.NewNop(),
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize resolves the source URL into the collection to download.
func (m *Manager) Initialize(ctx context.Context, sourceURL string) error {
	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching %s", sourceURL), Level: LevelVerbose})

	collection, err := m.services.Catalog.Resolve(ctx, sourceURL)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error resolving %s: %v", sourceURL, err), Level: LevelError})
		return err
	}

	m.mu.Lock()
	m.collection = collection
	m.mu.Unlock()

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Found %s: %s (%d tracks)", collection.Kind, collection.DisplayName(), len(collection.Tracks)),
		Level:   LevelInfo,
	})
	return nil
}

// SetChooser replaces the candidate chooser. It must not be called while a
// run is in progress.
func (m *Manager) SetChooser(c Chooser) {
	if c == nil {
		c = FirstValid
	}
	m.services.Chooser = c
}

// Collection returns the initialized collection, or nil.
func (m *Manager) Collection() *model.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collection
}

// State returns the current phase.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Progress returns the successes and item count of the running stage.
func (m *Manager) Progress() (done, total int) {
	return int(m.done.Load()), int(m.total.Load())
}

// OnTeardown registers f to run when Run returns, whatever the outcome.
// Hooks run in reverse registration order.
func (m *Manager) OnTeardown(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardown = append(m.teardown, f)
}

// StartDownloads runs both stages over the initialized collection with the
// stage sizes from the settings.
func (m *Manager) StartDownloads(ctx context.Context) (*Report, error) {
	collection := m.Collection()
	if collection == nil {
		return nil, errors.New("download: Initialize has not been called")
	}
	return m.Run(ctx, collection.Tracks,
		StageConfig{PoolSize: m.settings.Resolution.PoolSize, RetryBudget: m.settings.Resolution.RetryBudget},
		StageConfig{PoolSize: m.settings.Fetch.PoolSize, RetryBudget: m.settings.Fetch.RetryBudget},
	)
}

// Run resolves items to videos, then fetches every resolved item, and
// merges both stages into one Report.
//
// The Report is returned even on error. Run fails with ErrNothingToFetch
// when no item was resolved, and with the abort cause when a fatal outcome
// or ctx stopped either stage.
func (m *Manager) Run(ctx context.Context, items []model.Track, resolveCfg, fetchCfg StageConfig) (report *Report, err error) {
	defer m.runTeardown()

	collection := m.Collection()
	if collection == nil {
		collection = &model.Collection{Tracks: items}
	}
	collectionName := collection.DisplayName()

	report = &Report{
		RunID:      uuid.NewString(),
		Collection: collectionName,
		Total:      len(items),
	}
	logger := m.logger.With(zap.String("run_id", report.RunID))
	defer func() {
		m.setState(StateFinalized)
		logger.Info("run finished",
			zap.Int("downloaded", len(report.Downloads)),
			zap.Int("warnings", len(report.Warnings)),
			zap.Int("failures", len(report.Failures)),
			zap.Bool("aborted", report.Aborted),
			zap.Error(err))
	}()

	// Stage 1: resolution.
	m.setState(StateResolving)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Searching %d tracks", len(items)), Level: LevelInfo, Stage: StateResolving})
	resolved := pipeline.Run(ctx, m.stageConfig(StageResolve, StateResolving, resolveCfg, len(items), logger), items, &resolver{
		search:     m.services.Search,
		chooser:    m.services.Chooser,
		retries:    m.settings.Search.Retries,
		retryDelay: m.settings.Search.RetryDelay,
		logger:     logger.With(zap.String("stage", StageResolve)),
	})

	report.Warnings = append(report.Warnings, resolved.Warnings...)
	for _, f := range resolved.Failures {
		report.Failures = append(report.Failures, Failure{
			Index: f.Index, Stage: StageResolve, Track: f.Payload, Attempts: f.Attempts, Err: f.Err,
		})
	}

	if resolved.Aborted {
		return m.abort(report, resolved.Err, logger)
	}
	if len(resolved.Results) == 0 {
		m.finish(report, logger)
		return report, ErrNothingToFetch
	}
	for _, w := range resolved.Warnings {
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Track #%d: using a lower ranked search result", w+1),
			Level:   LevelWarning,
			Stage:   StateResolving,
		})
	}

	jobs := m.enrich(ctx, resolved.Results, logger)

	// Stage 2: fetch.
	m.setState(StateFetching)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %d tracks", len(jobs)), Level: LevelInfo, Stage: StateFetching})
	fetched := pipeline.Run(ctx, m.stageConfig(StageFetch, StateFetching, fetchCfg, len(jobs), logger), jobs, m.newFetcher(collectionName, len(items), logger))

	for _, res := range fetched.Results {
		report.Downloads = append(report.Downloads, res.Value)
	}
	for _, w := range fetched.Warnings {
		report.Warnings = append(report.Warnings, jobs[w].Index)
	}
	for _, f := range fetched.Failures {
		report.Failures = append(report.Failures, Failure{
			Index: f.Payload.Index, Stage: StageFetch, Track: f.Payload.Match.Track, Attempts: f.Attempts, Err: f.Err,
		})
	}

	if fetched.Aborted {
		return m.abort(report, fetched.Err, logger)
	}
	m.finish(report, logger)
	return report, nil
}

func (m *Manager) stageConfig(name string, state State, sc StageConfig, total int, logger *zap.Logger) pipeline.Config {
	m.done.Store(0)
	m.total.Store(int64(total))
	return pipeline.Config{
		Name:        name,
		PoolSize:    sc.PoolSize,
		RetryBudget: sc.RetryBudget,
		Logger:      logger,
		Metrics:     m.metrics,
		OnProgress: func(done, total int) {
			m.done.Store(int64(done))
			m.progress(ProgressEvent{Level: LevelProgress, Stage: state, Done: done, Total: total})
		},
	}
}

// enrich attaches full artist details to the resolved tracks. Failures are
// logged; the run continues with the simplified artists.
func (m *Manager) enrich(ctx context.Context, results []pipeline.Result[model.Match], logger *zap.Logger) []fetchJob {
	jobs := make([]fetchJob, len(results))
	tracks := make([]model.Track, len(results))
	for i, res := range results {
		jobs[i] = fetchJob{Index: res.Index, Match: res.Value}
		tracks[i] = res.Value.Track
	}
	if m.services.Artists == nil {
		return jobs
	}

	enriched, err := m.services.Artists.EnrichArtists(ctx, tracks)
	if err == nil && len(enriched) != len(jobs) {
		err = fmt.Errorf("got %d tracks, want %d", len(enriched), len(jobs))
	}
	if err != nil {
		logger.Warn("artist details unavailable", zap.Error(err))
		m.progress(ProgressEvent{Message: fmt.Sprintf("Could not load artist genres: %v", err), Level: LevelWarning})
		return jobs
	}
	for i := range jobs {
		jobs[i].Match.Track = enriched[i]
	}
	return jobs
}

func (m *Manager) newFetcher(collection string, total int, logger *zap.Logger) *fetcher {
	f := &fetcher{
		tool:       m.services.Fetch,
		output:     m.settings.ToOutputConfig(),
		extraArgs:  m.settings.YtDlp.Args,
		total:      total,
		collection: collection,
		logger:     logger.With(zap.String("stage", StageFetch)),
		progress:   m.progress,
	}
	if m.services.Tagger != nil && (m.settings.Tags.Modify || m.settings.Tags.CoverArt) {
		f.tagger = m.services.Tagger
	}
	if m.services.Images != nil && m.settings.Tags.CoverArt {
		f.covers = newCoverCache(m.services.Images, &ioutils.CoverArt{MaxSize: m.settings.Tags.CoverArtMaxSize})
	}
	return f
}

func (m *Manager) abort(report *Report, cause error, logger *zap.Logger) (*Report, error) {
	m.setState(StateAborting)
	report.Aborted = true
	report.sort()
	if cause == nil {
		cause = context.Canceled
	}
	logger.Warn("run aborted", zap.Error(cause))
	m.progress(ProgressEvent{Message: fmt.Sprintf("Aborted: %v", cause), Level: LevelError})
	m.writeArtifacts(report, logger)
	return report, cause
}

func (m *Manager) finish(report *Report, logger *zap.Logger) {
	report.sort()
	report.verify()
	m.writeArtifacts(report, logger)

	switch {
	case len(report.Failures) == 0:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %d/%d tracks", len(report.Downloads), report.Total), Level: LevelSuccess})
	default:
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Downloaded %d/%d tracks, %d failed", len(report.Downloads), report.Total, len(report.Failures)),
			Level:   LevelWarning,
		})
	}
}

// writeArtifacts writes the failure report and the playlist. Errors are
// reported as warnings only.
func (m *Manager) writeArtifacts(report *Report, logger *zap.Logger) {
	dir := m.settings.ToOutputConfig().Directory(report.Collection)

	if len(report.Failures) > 0 {
		path, err := writeFailureReport(dir, report)
		if err != nil {
			logger.Warn("writing failure report", zap.Error(err))
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing failure report: %v", err), Level: LevelWarning})
		} else {
			report.FailureReport = path
			m.progress(ProgressEvent{Message: fmt.Sprintf("Failed tracks written to %s", path), Level: LevelInfo})
		}
	}

	if m.settings.Playlist.Create && report.Total > 1 && len(report.Downloads) > 0 {
		format := m.settings.ToPlaylistFormat()
		creator := audio.NewPlaylistCreator(format, m.settings.Playlist.M3UExtended)
		path, err := writePlaylist(dir, creator, format, report)
		if err != nil {
			logger.Warn("writing playlist", zap.Error(err))
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning})
		} else {
			report.PlaylistPath = path
			m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", path), Level: LevelSuccess})
		}
	}
}

func (m *Manager) runTeardown() {
	m.mu.Lock()
	hooks := m.teardown
	m.teardown = nil
	m.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
