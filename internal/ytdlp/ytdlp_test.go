package ytdlp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestArgs(t *testing.T) {
	got := New().Args("https://music.youtube.com/watch?v=x", "out/%(title)s.%(ext)s", []string{"--cookies", "c.txt"})
	assert.Equal(t, []string{
		"https://music.youtube.com/watch?v=x", "-f", "ba",
		"-o", "out/%(title)s.%(ext)s", "--print", "after_move:filepath", "--no-simulate",
		"--cookies", "c.txt",
	}, got)

	mp3 := New(WithMP3(true)).Args("u", "t", nil)
	assert.Equal(t, []string{
		"u", "-f", "ba", "--extract-audio", "--audio-format", "mp3",
		"-o", "t", "--print", "after_move:filepath", "--no-simulate",
	}, mp3)
}

func TestFetchPrintsPath(t *testing.T) {
	bin := fakeBinary(t, `echo "[download] progress"
echo "/music/01 - Song.mp3"`)

	path, err := New(WithBinary(bin)).Fetch(context.Background(), "u", "t", nil)
	require.NoError(t, err)
	assert.Equal(t, "/music/01 - Song.mp3", path)
}

func TestFetchFailure(t *testing.T) {
	bin := fakeBinary(t, `echo "ERROR: video unavailable" >&2
exit 1`)

	_, err := New(WithBinary(bin)).Fetch(context.Background(), "u", "t", nil)
	assert.ErrorIs(t, err, ErrFailed)
	assert.NotErrorIs(t, err, ErrCancelled)
	assert.Contains(t, err.Error(), "video unavailable")
}

func TestFetchInterrupted(t *testing.T) {
	bin := fakeBinary(t, `echo "ERROR: Interrupted by user" >&2
exit 1`)

	_, err := New(WithBinary(bin)).Fetch(context.Background(), "u", "t", nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFetchNoPath(t *testing.T) {
	bin := fakeBinary(t, "exit 0")

	_, err := New(WithBinary(bin)).Fetch(context.Background(), "u", "t", nil)
	assert.ErrorIs(t, err, ErrFailed)
}

func TestFetchContextCancelled(t *testing.T) {
	bin := fakeBinary(t, "exec sleep 5")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(WithBinary(bin)).Fetch(ctx, "u", "t", nil)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestFetchMissingBinary(t *testing.T) {
	_, err := New(WithBinary(filepath.Join(t.TempDir(), "missing"))).Fetch(context.Background(), "u", "t", nil)
	assert.ErrorIs(t, err, ErrFailed)
}

// endedContext reports itself as cancelled but never closes Done, so the
// process runs to completion.
type endedContext struct{ context.Context }

func (endedContext) Err() error { return context.Canceled }

func TestFetchCompletedKeepsPathAfterCancel(t *testing.T) {
	bin := fakeBinary(t, `echo "/music/02 - Song.mp3"`)

	path, err := New(WithBinary(bin)).Fetch(endedContext{context.Background()}, "u", "t", nil)
	require.NoError(t, err)
	assert.Equal(t, "/music/02 - Song.mp3", path)
}
