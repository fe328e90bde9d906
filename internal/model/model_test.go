package model

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file", "normal-file"},
		{"file:with:colons", "file_with_colons"},
		{"file<with>brackets", "file_with_brackets"},
		{"file/with\\slashes", "file_with_slashes"},
		{"file|with|pipes", "file_with_pipes"},
		{"file?with*wildcards", "file_with_wildcards"},
		{"file\"with\"quotes", "file_with_quotes"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}

func TestIndexLabel(t *testing.T) {
	tests := []struct {
		index, total int
		want         string
	}{
		{0, 1, "1"},
		{0, 9, "1"},
		{4, 12, "05"},
		{99, 100, "100"},
		{6, 100, "007"},
		{0, 0, "1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IndexLabel(tt.index, tt.total), "index %d of %d", tt.index, tt.total)
	}
}

func TestOutputConfigRender(t *testing.T) {
	track := Track{
		Name:        "Come Together",
		Artists:     []Artist{{Name: "The Beatles"}},
		Album:       "Abbey Road",
		ReleaseDate: "1969-09-26",
	}

	tests := []struct {
		name string
		cfg  OutputConfig
		want string
	}{
		{
			name: "index and artist",
			cfg:  OutputConfig{Dir: "/music/{collection}", FileNameFormat: "{index} {artist} - {title}"},
			want: "/music/Abbey Road - The Beatles/05 The Beatles - Come Together.%(ext)s",
		},
		{
			name: "explicit extension",
			cfg:  OutputConfig{FileNameFormat: "{year} {album} {title}.%(ext)s"},
			want: "1969 Abbey Road Come Together.%(ext)s",
		},
		{
			name: "default format",
			cfg:  OutputConfig{},
			want: "The Beatles - Come Together.%(ext)s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Render(4, 12, track, "Abbey Road - The Beatles"))
		})
	}
}

func TestOutputConfigRenderEscapesValues(t *testing.T) {
	track := Track{Name: "100% Pure/Love", Artists: []Artist{{Name: "A"}, {Name: "B"}}}
	cfg := OutputConfig{FileNameFormat: "{artist} - {title}"}

	assert.Equal(t, "A, B - 100%% Pure_Love.%(ext)s", cfg.Render(0, 1, track, ""))
}

func TestOutputConfigDirectory(t *testing.T) {
	assert.Equal(t, filepath.Join("music", "Mix_ 100% - me"), (&OutputConfig{Dir: "music/{collection}"}).Directory("Mix: 100% - me"))
	assert.Equal(t, ".", (&OutputConfig{}).Directory("x"))
}

func TestTrackHelpers(t *testing.T) {
	track := Track{
		ID:   "abc",
		Name: "Song",
		Artists: []Artist{
			{Name: "One", Genres: []string{"pop", "rock"}},
			{Name: ""},
			{Name: "Two", Genres: []string{"rock", "jazz"}},
		},
		ReleaseDate: "2001-02-03",
		DurationMs:  90500,
	}

	assert.Equal(t, "https://open.spotify.com/track/abc", track.URL())
	assert.Equal(t, []string{"One", "Two"}, track.ArtistNames())
	assert.Equal(t, "One; Two", track.ArtistString("; "))
	assert.Equal(t, []string{"pop", "rock", "jazz"}, track.Genres())
	assert.Equal(t, "Song One Two", track.SearchQuery())
	assert.Equal(t, "2001", track.Year())
	assert.Equal(t, 90500*time.Millisecond, track.Duration())

	assert.Empty(t, Track{ReleaseDate: "20"}.Year())
}

func TestCollectionDisplayName(t *testing.T) {
	assert.Equal(t, "Mix - me", (&Collection{Name: "Mix - me"}).DisplayName())
	assert.Equal(t, "Solo", (&Collection{Tracks: []Track{{Name: "Solo"}}}).DisplayName())
	assert.Equal(t, "unknown", (&Collection{}).DisplayName())
	assert.Equal(t, "playlist", KindPlaylist.String())
}
