package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/handiism/spotify-downloader/internal/model"
	"github.com/handiism/spotify-downloader/internal/pipeline"
	"github.com/handiism/spotify-downloader/internal/ytmusic"
)

var (
	// ErrNoCandidate is returned by a Chooser when no search result is
	// usable.
	ErrNoCandidate = errors.New("no usable search result")

	// ErrSelectionAborted is returned by a Chooser when the user quit the
	// selection. It aborts the run.
	ErrSelectionAborted = errors.New("selection aborted")
)

// Chooser picks one of the ranked candidates for track and returns its
// position.
type Chooser interface {
	Choose(ctx context.Context, track model.Track, candidates []ytmusic.Candidate) (int, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, track model.Track, candidates []ytmusic.Candidate) (int, error)

// Choose calls f.
func (f ChooserFunc) Choose(ctx context.Context, track model.Track, candidates []ytmusic.Candidate) (int, error) {
	return f(ctx, track, candidates)
}

// FirstValid chooses the best ranked valid candidate.
var FirstValid = ChooserFunc(func(_ context.Context, _ model.Track, candidates []ytmusic.Candidate) (int, error) {
	for i, c := range candidates {
		if c.Valid() {
			return i, nil
		}
	}
	return 0, ErrNoCandidate
})

// resolver maps tracks to videos. It retries transient search errors
// itself; anything left over is handed to the pipeline as retryable.
type resolver struct {
	search     SearchClient
	chooser    Chooser
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
}

func (r *resolver) Process(ctx context.Context, item pipeline.WorkItem[model.Track]) pipeline.Outcome[model.Match] {
	track := item.Payload
	query := track.SearchQuery()

	candidates, err := r.searchWithRetry(ctx, query)
	if err != nil {
		if errors.Is(err, ytmusic.ErrUnauthenticated) {
			return pipeline.Fatal[model.Match](err)
		}
		return pipeline.Retryable[model.Match](err)
	}

	choice, err := r.chooser.Choose(ctx, track, candidates)
	switch {
	case errors.Is(err, ErrSelectionAborted):
		return pipeline.Fatal[model.Match](err)
	case err != nil:
		return pipeline.Retryable[model.Match](fmt.Errorf("%q: %w", query, err))
	case choice < 0 || choice >= len(candidates) || !candidates[choice].Valid():
		return pipeline.Retryable[model.Match](fmt.Errorf("%q: %w", query, ErrNoCandidate))
	}

	c := candidates[choice]
	match := model.Match{Track: track, URL: c.Link(), Title: c.String(), Choice: choice}
	if choice != 0 {
		r.logger.Debug("using lower ranked result",
			zap.Int("index", item.Index),
			zap.String("query", query),
			zap.Int("choice", choice),
			zap.String("result", c.String()))
		return pipeline.Fallback(match)
	}
	return pipeline.Success(match)
}

func (r *resolver) searchWithRetry(ctx context.Context, query string) ([]ytmusic.Candidate, error) {
	var lastErr error
	for attempt := 0; attempt < max(r.retries, 1); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			case <-time.After(r.retryDelay):
			}
		}
		candidates, err := r.search.Search(ctx, query)
		if err == nil {
			return candidates, nil
		}
		if !errors.Is(err, ytmusic.ErrTransient) && !errors.Is(err, ytmusic.ErrEmpty) {
			return nil, err
		}
		lastErr = err
		r.logger.Debug("search failed", zap.String("query", query), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}
