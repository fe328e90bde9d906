package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/handiism/spotify-downloader/internal/download"
	"github.com/handiism/spotify-downloader/internal/pipeline"
	"github.com/handiism/spotify-downloader/internal/ytdlp"
	"github.com/handiism/spotify-downloader/internal/ytmusic"
)

func TestSearchFilter(t *testing.T) {
	tests := []struct {
		name string
		want ytmusic.Filter
	}{
		{"songs", ytmusic.FilterSongs},
		{"Videos", ytmusic.FilterVideos},
		{"none", ytmusic.FilterNone},
		{"", ytmusic.FilterNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchFilter(tt.name))
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"interrupted", context.Canceled, 130},
		{"yt-dlp interrupted", &pipeline.FatalError{Stage: "fetch", Err: ytdlp.ErrCancelled}, 130},
		{"selection aborted", fmt.Errorf("run: %w", download.ErrSelectionAborted), 130},
		{"unauthenticated", &pipeline.FatalError{Stage: "resolve", Err: ytmusic.ErrUnauthenticated}, 1},
		{"nothing to fetch", download.ErrNothingToFetch, 1},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestServicesUsesChooser(t *testing.T) {
	a := &App{}
	services := a.Services(download.FirstValid)
	assert.NotNil(t, services.Chooser)

	services = a.Services(nil)
	assert.Nil(t, services.Chooser)
}
