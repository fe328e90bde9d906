package download

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/handiism/spotify-downloader/internal/audio"
	ioutils "github.com/handiism/spotify-downloader/internal/io"
	"github.com/handiism/spotify-downloader/internal/model"
)

// Stage names used in failures, logs and metrics.
const (
	StageResolve = "resolve"
	StageFetch   = "fetch"
)

// Failure is a track that exhausted its retry budget in one stage.
type Failure struct {
	Index    int
	Stage    string
	Track    model.Track
	Attempts int
	Err      error
}

// Report is the merged outcome of both stages.
//
// On a run that was not aborted, the indices of Downloads and Failures
// together cover [0, Total) exactly once.
type Report struct {
	RunID      string
	Collection string
	Total      int

	// Downloads holds fetched tracks sorted by index.
	Downloads []model.Download

	// Warnings holds the sorted indices of tracks matched to a lower
	// ranked search result.
	Warnings []int

	// Failures holds permanently failed tracks of both stages, sorted by
	// index.
	Failures []Failure

	Aborted bool

	// FailureReport and PlaylistPath are the files written for the run, if
	// any.
	FailureReport string
	PlaylistPath  string
}

// Succeeded returns the number of downloaded tracks.
func (r *Report) Succeeded() int {
	return len(r.Downloads)
}

// verify panics when a completed run lost or duplicated an index.
func (r *Report) verify() {
	if r.Aborted {
		return
	}
	seen := make([]bool, r.Total)
	mark := func(i int) {
		if i < 0 || i >= r.Total || seen[i] {
			panic(fmt.Sprintf("download: index %d reported twice or out of range", i))
		}
		seen[i] = true
	}
	for _, d := range r.Downloads {
		mark(d.Index)
	}
	for _, f := range r.Failures {
		mark(f.Index)
	}
	if missing := slices.Index(seen, false); missing >= 0 {
		panic(fmt.Sprintf("download: index %d has no outcome", missing))
	}
}

func (r *Report) sort() {
	slices.SortFunc(r.Downloads, func(a, b model.Download) int { return a.Index - b.Index })
	slices.SortFunc(r.Failures, func(a, b Failure) int { return a.Index - b.Index })
	slices.Sort(r.Warnings)
	r.Warnings = slices.Compact(r.Warnings)
}

type failureEntry struct {
	Stage       string `yaml:"stage"`
	Attempts    int    `yaml:"attempts"`
	Error       string `yaml:"error,omitempty"`
	model.Track `yaml:",inline"`
}

// FailureReportName returns the failure report file name for collection.
func FailureReportName(collection string) string {
	return "failed-" + model.SanitizeFileName(collection) + ".txt"
}

// writeFailureReport dumps every failure as YAML, keyed "track #<n>" with n
// the 1-based position in the collection.
func writeFailureReport(dir string, r *Report) (string, error) {
	var buf bytes.Buffer
	for _, f := range r.Failures {
		entry := failureEntry{Stage: f.Stage, Attempts: f.Attempts, Track: f.Track}
		if f.Err != nil {
			entry.Error = f.Err.Error()
		}
		doc, err := yaml.Marshal(map[string]failureEntry{
			fmt.Sprintf("track #%d", f.Index+1): entry,
		})
		if err != nil {
			return "", fmt.Errorf("encode failure report: %w", err)
		}
		buf.Write(doc)
	}

	path := filepath.Join(dir, FailureReportName(r.Collection))
	if err := ioutils.WriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func writePlaylist(dir string, creator *audio.PlaylistCreator, format audio.PlaylistFormat, r *Report) (string, error) {
	content := creator.CreatePlaylist(r.Collection, r.Downloads)
	path := filepath.Join(dir, model.SanitizeFileName(r.Collection)+format.Extension())
	if err := ioutils.WriteFile(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}
