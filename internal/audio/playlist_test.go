package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/spotify-downloader/internal/model"
)

func TestPlaylistCreator_M3U(t *testing.T) {
	content := NewPlaylistCreator(FormatM3U, false).CreatePlaylist("Test", createTestDownloads())

	assert.Equal(t, "01 Test Artist - track1.mp3\n02 Test Artist - track2.mp3\n", content)
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	content := NewPlaylistCreator(FormatM3U, true).CreatePlaylist("Test", createTestDownloads())

	assert.Contains(t, content, "#EXTM3U\n")
	assert.Contains(t, content, "#EXTINF:180,Test Artist - track1\n")
	assert.Contains(t, content, "#EXTINF:200,Test Artist, Guest - track2\n")
}

func TestPlaylistCreator_PLS(t *testing.T) {
	content := NewPlaylistCreator(FormatPLS, false).CreatePlaylist("Test", createTestDownloads())

	assert.Contains(t, content, "[playlist]\n")
	assert.Contains(t, content, "File1=01 Test Artist - track1.mp3\n")
	assert.Contains(t, content, "Title2=track2\n")
	assert.Contains(t, content, "Length2=200\n")
	assert.Contains(t, content, "NumberOfEntries=2\n")
}

func TestPlaylistCreator_WPL(t *testing.T) {
	content := NewPlaylistCreator(FormatWPL, false).CreatePlaylist("Test Album", createTestDownloads())

	assert.Contains(t, content, "<?wpl")
	assert.Contains(t, content, "<title>Test Album</title>")
	assert.Contains(t, content, `<media src="02 Test Artist - track2.mp3"/>`)
}

func TestPlaylistCreator_ZPL(t *testing.T) {
	content := NewPlaylistCreator(FormatZPL, false).CreatePlaylist("Test Album", createTestDownloads())

	assert.Contains(t, content, "<?zpl")
	assert.Contains(t, content, `<meta name="ItemCount" content="2"/>`)
	assert.Contains(t, content, `albumTitle="Test Album"`)
	assert.Contains(t, content, `duration="180000"`)
}

func TestPlaylistCreator_XMLEscape(t *testing.T) {
	downloads := []model.Download{{
		Track: model.Track{Name: `Track & "Quote"`, Artists: []model.Artist{{Name: "Artist & Co"}}},
		Path:  "/music/track.mp3",
	}}

	content := NewPlaylistCreator(FormatWPL, false).CreatePlaylist("Album <Special>", downloads)

	assert.Contains(t, content, "Album &lt;Special&gt;")
	assert.NotContains(t, content, "<Special>")
}

func TestParsePlaylistFormat(t *testing.T) {
	tests := []struct {
		in   string
		want PlaylistFormat
		ext  string
	}{
		{"m3u", FormatM3U, ".m3u"},
		{"PLS", FormatPLS, ".pls"},
		{"wpl", FormatWPL, ".wpl"},
		{" zpl ", FormatZPL, ".zpl"},
		{"", FormatM3U, ".m3u"},
	}
	for _, tt := range tests {
		got, err := ParsePlaylistFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.ext, got.Extension())
	}

	_, err := ParsePlaylistFormat("xspf")
	assert.Error(t, err)
}

func createTestDownloads() []model.Download {
	artist := model.Artist{ID: "a1", Name: "Test Artist"}
	return []model.Download{
		{
			Index: 0,
			Track: model.Track{Name: "track1", Album: "Test Album", Artists: []model.Artist{artist}, DurationMs: 180000},
			Path:  "/music/01 Test Artist - track1.mp3",
		},
		{
			Index: 1,
			Track: model.Track{Name: "track2", Album: "Test Album", Artists: []model.Artist{artist, {Name: "Guest"}}, DurationMs: 200000},
			Path:  "/music/02 Test Artist - track2.mp3",
		},
	}
}
