package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/handiism/spotify-downloader/internal/logging"
)

var (
	// ErrCancelled reports that the download was interrupted by the user.
	ErrCancelled = errors.New("ytdlp: cancelled")
	// ErrFailed reports any other unsuccessful run.
	ErrFailed = errors.New("ytdlp: download failed")
)

const (
	interruptMarker = "Interrupted by user"

	// waitDelay bounds how long output is drained after the process is
	// killed.
	waitDelay = 2 * time.Second
)

// Tool runs yt-dlp.
type Tool struct {
	binary string
	mp3    bool
	logger *zap.Logger
}

// Option configures a Tool.
type Option func(*Tool)

// WithBinary sets the executable. The default is "yt-dlp" from PATH.
func WithBinary(path string) Option {
	return func(t *Tool) {
		if path != "" {
			t.binary = path
		}
	}
}

// WithMP3 makes yt-dlp extract the audio track and convert it to mp3.
func WithMP3(enabled bool) Option {
	return func(t *Tool) { t.mp3 = enabled }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tool) { t.logger = logging.OrNop(l) }
}

// New creates a Tool.
func New(opts ...Option) *Tool {
	t := &Tool{binary: "yt-dlp", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Args returns the command line for fetching url into template.
func (t *Tool) Args(url, template string, extra []string) []string {
	args := []string{url, "-f", "ba"}
	if t.mp3 {
		args = append(args, "--extract-audio", "--audio-format", "mp3")
	}
	args = append(args, "-o", template, "--print", "after_move:filepath", "--no-simulate")
	return append(args, extra...)
}

// Fetch downloads url and returns the path of the final file.
//
// A run interrupted by the user or by ctx returns ErrCancelled. Every other
// failure wraps ErrFailed.
func (t *Tool) Fetch(ctx context.Context, url, template string, extra []string) (string, error) {
	args := t.Args(url, template, extra)
	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	t.logger.Debug("running yt-dlp", zap.String("binary", t.binary), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrCancelled, context.Cause(ctx))
		}
		diag := strings.TrimSpace(stderr.String())
		if strings.Contains(diag, interruptMarker) {
			return "", fmt.Errorf("%w: %s", ErrCancelled, interruptMarker)
		}
		return "", fmt.Errorf("%w: %v: %s", ErrFailed, err, lastLine(diag))
	}

	// A process that exited cleanly wrote its file, even if ctx ended meanwhile.
	path := lastLine(stdout.String())
	if path == "" {
		return "", fmt.Errorf("%w: no output path printed", ErrFailed)
	}
	return path, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
