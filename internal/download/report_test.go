package download

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/handiism/spotify-downloader/internal/model"
)

func TestReportVerify(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		panics bool
	}{
		{
			name: "partition",
			report: Report{
				Total:     3,
				Downloads: []model.Download{{Index: 0}, {Index: 2}},
				Failures:  []Failure{{Index: 1}},
			},
		},
		{
			name: "duplicate",
			report: Report{
				Total:     2,
				Downloads: []model.Download{{Index: 0}, {Index: 1}},
				Failures:  []Failure{{Index: 1}},
			},
			panics: true,
		},
		{
			name:   "missing",
			report: Report{Total: 2, Downloads: []model.Download{{Index: 0}}},
			panics: true,
		},
		{
			name:   "out of range",
			report: Report{Total: 1, Downloads: []model.Download{{Index: 1}}},
			panics: true,
		},
		{
			name:   "aborted",
			report: Report{Total: 5, Aborted: true, Downloads: []model.Download{{Index: 0}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.panics {
				assert.Panics(t, tt.report.verify)
			} else {
				assert.NotPanics(t, tt.report.verify)
			}
		})
	}
}

func TestReportSort(t *testing.T) {
	r := &Report{
		Downloads: []model.Download{{Index: 4}, {Index: 0}, {Index: 2}},
		Failures:  []Failure{{Index: 3, Err: errors.New("x")}, {Index: 1}},
		Warnings:  []int{4, 2, 4},
	}
	r.sort()

	assert.Equal(t, 0, r.Downloads[0].Index)
	assert.Equal(t, 4, r.Downloads[2].Index)
	assert.Equal(t, 1, r.Failures[0].Index)
	assert.Equal(t, []int{2, 4}, r.Warnings)
	assert.Equal(t, 3, r.Succeeded())
}

func TestFailureReportName(t *testing.T) {
	assert.Equal(t, "failed-Abbey Road - The Beatles.txt", FailureReportName("Abbey Road - The Beatles"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "finalized", StateFinalized.String())
	assert.Equal(t, "unknown", State(42).String())
}
