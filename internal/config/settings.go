package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/handiism/spotify-downloader/internal/audio"
	"github.com/handiism/spotify-downloader/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. SPOTIFY_DL_FETCH_POOL_SIZE.
const EnvPrefix = "SPOTIFY_DL"

// Settings holds all configuration options.
type Settings struct {
	Resolution  StageSettings    `mapstructure:"resolution"`
	Fetch       StageSettings    `mapstructure:"fetch"`
	Interactive bool             `mapstructure:"interactive"`
	Output      OutputSettings   `mapstructure:"output"`
	Search      SearchSettings   `mapstructure:"search"`
	YtDlp       YtDlpSettings    `mapstructure:"ytdlp"`
	Tags        TagSettings      `mapstructure:"tags"`
	Playlist    PlaylistSettings `mapstructure:"playlist"`
	HTTP        HTTPSettings     `mapstructure:"http"`
	Spotify     SpotifySettings  `mapstructure:"spotify"`
	Logging     LoggingSettings  `mapstructure:"logging"`
	Metrics     MetricsSettings  `mapstructure:"metrics"`

	// CredentialsDir overrides the credential store location.
	CredentialsDir string `mapstructure:"credentials_dir"`
}

// StageSettings sizes one pipeline stage.
type StageSettings struct {
	PoolSize    int `mapstructure:"pool_size"`
	RetryBudget int `mapstructure:"retry_budget"`
}

// OutputSettings controls where files are written.
type OutputSettings struct {
	Dir      string `mapstructure:"dir"`
	Template string `mapstructure:"template"`
}

// SearchSettings controls the YouTube Music lookup.
type SearchSettings struct {
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	Filter     string        `mapstructure:"filter"` // none, songs, videos
}

// YtDlpSettings controls the yt-dlp invocation.
type YtDlpSettings struct {
	Binary string   `mapstructure:"binary"`
	MP3    bool     `mapstructure:"mp3"`
	Args   []string `mapstructure:"args"`
}

// TagSettings controls ID3 tagging of mp3 output.
type TagSettings struct {
	Modify          bool   `mapstructure:"modify"`
	CoverArt        bool   `mapstructure:"cover_art"`
	CoverArtMaxSize int    `mapstructure:"cover_art_max_size"`
	Comments        string `mapstructure:"comments"` // empty, modify, keep
}

// PlaylistSettings controls playlist creation for multi-track runs.
type PlaylistSettings struct {
	Create      bool   `mapstructure:"create"`
	Format      string `mapstructure:"format"` // m3u, pls, wpl, zpl
	M3UExtended bool   `mapstructure:"m3u_extended"`
}

// HTTPSettings configures the shared HTTP client.
type HTTPSettings struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// SpotifySettings optionally supplies application credentials without the
// credential store.
type SpotifySettings struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// LoggingSettings toggles zap development features.
type LoggingSettings struct {
	Development bool `mapstructure:"development"`
	Verbose     bool `mapstructure:"verbose"`
}

// MetricsSettings configures the optional Prometheus endpoint.
type MetricsSettings struct {
	Addr string `mapstructure:"addr"`
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"resolution-pool-size":    "resolution.pool_size",
	"resolution-retry-budget": "resolution.retry_budget",
	"fetch-pool-size":         "fetch.pool_size",
	"fetch-retry-budget":      "fetch.retry_budget",
	"interactive":             "interactive",
	"output-dir":              "output.dir",
	"output":                  "output.template",
	"search-retries":          "search.retries",
	"search-retry-delay":      "search.retry_delay",
	"search-filter":           "search.filter",
	"ytdlp":                   "ytdlp.binary",
	"mp3":                     "ytdlp.mp3",
	"tags":                    "tags.modify",
	"cover-art":               "tags.cover_art",
	"playlist":                "playlist.create",
	"playlist-format":         "playlist.format",
	"timeout":                 "http.timeout",
	"rate-limit":              "http.requests_per_second",
	"dev":                     "logging.development",
	"verbose":                 "logging.verbose",
	"metrics-addr":            "metrics.addr",
	"credentials-dir":         "credentials_dir",
}

// RegisterFlags defines the flags listed in FlagKeys on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Int("resolution-pool-size", 8, "concurrent YouTube Music searches")
	fs.Int("resolution-retry-budget", 2, "requeues allowed per track when searching")
	fs.Int("fetch-pool-size", 4, "concurrent yt-dlp downloads")
	fs.Int("fetch-retry-budget", 2, "requeues allowed per track when downloading")
	fs.Bool("interactive", true, "choose the search result for single tracks and prompt for missing credentials")
	fs.String("output-dir", "{collection}", "output directory; accepts {collection}")
	fs.StringP("output", "o", "{index} {artist} - {title}", "file name template; accepts {index} {title} {artist} {album} {collection} {year}")
	fs.Int("search-retries", 3, "search attempts per try on transient errors")
	fs.Duration("search-retry-delay", 3*time.Second, "delay between search attempts")
	fs.String("search-filter", "none", "restrict search results: none, songs or videos")
	fs.String("ytdlp", "yt-dlp", "yt-dlp binary")
	fs.Bool("mp3", false, "convert downloads to mp3")
	fs.Bool("tags", true, "write ID3 tags to mp3 files")
	fs.Bool("cover-art", true, "embed cover art in mp3 files")
	fs.Bool("playlist", false, "write a playlist for albums and playlists")
	fs.String("playlist-format", "m3u", "playlist format: m3u, pls, wpl or zpl")
	fs.Duration("timeout", 30*time.Second, "HTTP request timeout")
	fs.Float64("rate-limit", 10, "HTTP requests per second; 0 disables the limit")
	fs.Bool("dev", false, "development logging")
	fs.BoolP("verbose", "v", false, "debug logging")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	fs.String("credentials-dir", "", "credential store directory")
}

// Load builds Settings from defaults, an optional YAML config file,
// SPOTIFY_DL_* environment variables and flags, in increasing precedence.
// Only flags listed in FlagKeys are bound; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	s, err := Load("", nil)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return s
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("resolution.pool_size", 8)
	v.SetDefault("resolution.retry_budget", 2)
	v.SetDefault("fetch.pool_size", 4)
	v.SetDefault("fetch.retry_budget", 2)
	v.SetDefault("interactive", true)
	v.SetDefault("output.dir", "{collection}")
	v.SetDefault("output.template", "{index} {artist} - {title}")
	v.SetDefault("search.retries", 3)
	v.SetDefault("search.retry_delay", 3*time.Second)
	v.SetDefault("search.filter", "none")
	v.SetDefault("ytdlp.binary", "yt-dlp")
	v.SetDefault("ytdlp.mp3", false)
	v.SetDefault("ytdlp.args", []string{})
	v.SetDefault("tags.modify", true)
	v.SetDefault("tags.cover_art", true)
	v.SetDefault("tags.cover_art_max_size", 1000)
	v.SetDefault("tags.comments", "empty")
	v.SetDefault("playlist.create", false)
	v.SetDefault("playlist.format", "m3u")
	v.SetDefault("playlist.m3u_extended", true)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.requests_per_second", 10.0)
	v.SetDefault("spotify.client_id", "")
	v.SetDefault("spotify.client_secret", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.verbose", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("credentials_dir", "")
}

// Validate enforces required values and reasonable limits.
func (s *Settings) Validate() error {
	var errs []error
	if s.Resolution.PoolSize <= 0 {
		errs = append(errs, errors.New("resolution.pool_size must be > 0"))
	}
	if s.Fetch.PoolSize <= 0 {
		errs = append(errs, errors.New("fetch.pool_size must be > 0"))
	}
	if s.Resolution.RetryBudget < 0 {
		errs = append(errs, errors.New("resolution.retry_budget must be >= 0"))
	}
	if s.Fetch.RetryBudget < 0 {
		errs = append(errs, errors.New("fetch.retry_budget must be >= 0"))
	}
	if s.Search.Retries <= 0 {
		errs = append(errs, errors.New("search.retries must be > 0"))
	}
	if s.Search.RetryDelay < 0 {
		errs = append(errs, errors.New("search.retry_delay must be >= 0"))
	}
	switch strings.ToLower(s.Search.Filter) {
	case "", "none", "songs", "videos":
	default:
		errs = append(errs, fmt.Errorf("search.filter %q must be none, songs or videos", s.Search.Filter))
	}
	if s.YtDlp.Binary == "" {
		errs = append(errs, errors.New("ytdlp.binary must be set"))
	}
	if _, err := audio.ParsePlaylistFormat(s.Playlist.Format); err != nil {
		errs = append(errs, fmt.Errorf("playlist.format: %w", err))
	}
	if _, err := audio.ParseTagEditAction(s.Tags.Comments); err != nil {
		errs = append(errs, fmt.Errorf("tags.comments: %w", err))
	}
	if s.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("http.timeout must be > 0"))
	}
	if s.HTTP.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("http.requests_per_second must be >= 0"))
	}
	return errors.Join(errs...)
}

// ToOutputConfig converts settings to an OutputConfig.
func (s *Settings) ToOutputConfig() *model.OutputConfig {
	return &model.OutputConfig{
		Dir:            s.Output.Dir,
		FileNameFormat: s.Output.Template,
	}
}

// ToTagConfig converts settings to a TagConfig.
func (s *Settings) ToTagConfig() *audio.TagConfig {
	cfg := audio.DefaultTagConfig()
	cfg.ModifyTags = s.Tags.Modify
	cfg.Comments, _ = audio.ParseTagEditAction(s.Tags.Comments)
	return cfg
}

// ToPlaylistFormat returns the configured playlist format.
func (s *Settings) ToPlaylistFormat() audio.PlaylistFormat {
	f, _ := audio.ParsePlaylistFormat(s.Playlist.Format)
	return f
}
