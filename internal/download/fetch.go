package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	ioutils "github.com/handiism/spotify-downloader/internal/io"
	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/pipeline"
	"github.com/handiism/spotify-downloader/internal/ytdlp"
)

// fetchJob is a resolved track with its position in the collection.
type fetchJob struct {
	Index int
	Match model.Match
}

// fetcher downloads resolved tracks and tags the results.
type fetcher struct {
	tool       FetchTool
	output     *model.OutputConfig
	extraArgs  []string
	total      int
	collection string

	tagger   Tagger
	covers   *coverCache
	logger   *zap.Logger
	progress func(ProgressEvent)
}

func (f *fetcher) Process(ctx context.Context, item pipeline.WorkItem[fetchJob]) pipeline.Outcome[model.Download] {
	job := item.Payload
	track := job.Match.Track
	template := f.output.Render(job.Index, f.total, track, f.collection)

	path, err := f.tool.Fetch(ctx, job.Match.URL, template, f.extraArgs)
	if err != nil {
		if errors.Is(err, ytdlp.ErrCancelled) {
			return pipeline.Fatal[model.Download](err)
		}
		return pipeline.Retryable[model.Download](err)
	}

	download := model.Download{
		Index:    job.Index,
		Track:    track,
		URL:      job.Match.URL,
		Path:     path,
		Fallback: job.Match.Choice != 0,
	}
	f.tag(ctx, download)
	return pipeline.Success(download)
}

// tag writes ID3 tags to mp3 output. Failures are reported but never undo
// the download.
func (f *fetcher) tag(ctx context.Context, d model.Download) {
	if f.tagger == nil || !strings.EqualFold(filepath.Ext(d.Path), ".mp3") {
		return
	}

	var artwork []byte
	if f.covers != nil && d.Track.CoverURL != "" {
		var err error
		artwork, err = f.covers.get(ctx, d.Track.CoverURL)
		if err != nil {
			f.logger.Warn("cover art unavailable", zap.String("track", d.Track.Name), zap.Error(err))
		}
	}

	if err := f.tagger.SaveTags(d.Path, d.Track, artwork); err != nil {
		f.logger.Warn("tagging failed", zap.String("path", d.Path), zap.Error(err))
		f.progress(ProgressEvent{
			Message: fmt.Sprintf("Error tagging %s: %v", filepath.Base(d.Path), err),
			Level:   LevelWarning,
			Stage:   StateFetching,
		})
	}
}

// coverCache downloads each cover image once per run.
type coverCache struct {
	images ImageDownloader
	prep   *ioutils.CoverArt

	group singleflight.Group
	mu    sync.Mutex
	data  map[string][]byte
}

func newCoverCache(images ImageDownloader, prep *ioutils.CoverArt) *coverCache {
	return &coverCache{images: images, prep: prep, data: make(map[string][]byte)}
}

func (c *coverCache) get(ctx context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	cached, ok := c.data[url]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		raw, err := c.images.DownloadBytes(ctx, url)
		if err != nil {
			return nil, err
		}
		prepared, err := c.prep.Prepare(raw)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.data[url] = prepared
		c.mu.Unlock()
		return prepared, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
