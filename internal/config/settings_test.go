package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/spotify-downloader/internal/audio"
)

func TestDefaults(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, 8, s.Resolution.PoolSize)
	assert.Equal(t, 2, s.Resolution.RetryBudget)
	assert.Equal(t, 4, s.Fetch.PoolSize)
	assert.True(t, s.Interactive)
	assert.Equal(t, 3*time.Second, s.Search.RetryDelay)
	assert.Equal(t, "yt-dlp", s.YtDlp.Binary)
	assert.Equal(t, 30*time.Second, s.HTTP.Timeout)
	assert.Equal(t, audio.FormatM3U, s.ToPlaylistFormat())
	assert.Equal(t, audio.TagEmpty, s.ToTagConfig().Comments)
	assert.Equal(t, "{index} {artist} - {title}", s.ToOutputConfig().FileNameFormat)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fetch:
  pool_size: 2
  retry_budget: 5
resolution:
  pool_size: 3
playlist:
  create: true
  format: pls
ytdlp:
  args: ["--cookies", "c.txt"]
`), 0o644))

	t.Setenv("SPOTIFY_DL_FETCH_POOL_SIZE", "6")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("resolution-pool-size", 8, "")
	flags.Bool("mp3", false, "")
	flags.Duration("search-retry-delay", 3*time.Second, "")
	require.NoError(t, flags.Parse([]string{"--mp3", "--search-retry-delay=1s"}))

	s, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 6, s.Fetch.PoolSize, "env overrides file")
	assert.Equal(t, 5, s.Fetch.RetryBudget, "file overrides default")
	assert.Equal(t, 3, s.Resolution.PoolSize, "unchanged flag does not override file")
	assert.True(t, s.YtDlp.MP3, "flag overrides default")
	assert.Equal(t, time.Second, s.Search.RetryDelay)
	assert.True(t, s.Playlist.Create)
	assert.Equal(t, audio.FormatPLS, s.ToPlaylistFormat())
	assert.Equal(t, []string{"--cookies", "c.txt"}, s.YtDlp.Args)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"pool size", func(s *Settings) { s.Fetch.PoolSize = 0 }, "fetch.pool_size"},
		{"negative budget", func(s *Settings) { s.Resolution.RetryBudget = -1 }, "resolution.retry_budget"},
		{"search retries", func(s *Settings) { s.Search.Retries = 0 }, "search.retries"},
		{"filter", func(s *Settings) { s.Search.Filter = "albums" }, "search.filter"},
		{"playlist format", func(s *Settings) { s.Playlist.Format = "xspf" }, "playlist.format"},
		{"comments", func(s *Settings) { s.Tags.Comments = "maybe" }, "tags.comments"},
		{"timeout", func(s *Settings) { s.HTTP.Timeout = 0 }, "http.timeout"},
		{"binary", func(s *Settings) { s.YtDlp.Binary = "" }, "ytdlp.binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, DefaultSettings().Validate())
}

func TestRegisterFlagsMatchesFlagKeys(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	var names []string
	flags.VisitAll(func(f *pflag.Flag) { names = append(names, f.Name) })
	assert.Len(t, names, len(FlagKeys))
	for name := range FlagKeys {
		assert.NotNil(t, flags.Lookup(name), name)
	}

	s, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, *DefaultSettings(), *s, "flag defaults agree with config defaults")
}
