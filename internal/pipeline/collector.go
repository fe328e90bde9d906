package pipeline

import (
	"fmt"
	"slices"
	"sort"
)

// Result is the output produced for one index.
type Result[Out any] struct {
	Index int
	Value Out
}

// Failure records an item that exhausted its retry budget.
type Failure[In any] struct {
	Index    int
	Payload  In
	Attempts int
	Err      error
}

// Report is the final outcome of one stage.
type Report[In, Out any] struct {
	// Results holds every success, sorted by index.
	Results []Result[Out]

	// Warnings holds the sorted indices of successes that used a fallback.
	Warnings []int

	// Failures holds every permanent failure, sorted by index.
	Failures []Failure[In]

	// Progress is the final value of the stage progress counter.
	Progress int

	// Aborted is set when the stage was cancelled or hit a fatal outcome.
	Aborted bool

	// Err is the cause of an abort.
	Err error
}

// Outputs returns the result values in index order.
func (r *Report[In, Out]) Outputs() []Out {
	out := make([]Out, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Value
	}
	return out
}

// ResultCollector accumulates stage outcomes and builds the Report.
//
// A collector is owned by a single goroutine; it is not safe for concurrent
// use.
type ResultCollector[In, Out any] struct {
	total    int
	results  map[int]Out
	warnings map[int]struct{}
	failures map[int]Failure[In]
	defects  []string
}

// NewResultCollector creates a collector for a stage of total items.
func NewResultCollector[In, Out any](total int) *ResultCollector[In, Out] {
	return &ResultCollector[In, Out]{
		total:    total,
		results:  make(map[int]Out, total),
		warnings: make(map[int]struct{}),
		failures: make(map[int]Failure[In]),
	}
}

// Collect drains the three channels until all of them are closed.
func (c *ResultCollector[In, Out]) Collect(results <-chan Result[Out], warnings <-chan int, failures <-chan Failure[In]) {
	for results != nil || warnings != nil || failures != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			c.AddResult(res)
		case idx, ok := <-warnings:
			if !ok {
				warnings = nil
				continue
			}
			c.AddWarning(idx)
		case f, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			c.AddFailure(f)
		}
	}
}

// AddResult records a success.
func (c *ResultCollector[In, Out]) AddResult(res Result[Out]) {
	if c.seen(res.Index) {
		c.defects = append(c.defects, fmt.Sprintf("index %d resolved twice", res.Index))
		return
	}
	c.results[res.Index] = res.Value
}

// AddWarning records a fallback index.
func (c *ResultCollector[In, Out]) AddWarning(index int) {
	c.warnings[index] = struct{}{}
}

// AddFailure records a permanent failure.
func (c *ResultCollector[In, Out]) AddFailure(f Failure[In]) {
	if c.seen(f.Index) {
		c.defects = append(c.defects, fmt.Sprintf("index %d resolved twice", f.Index))
		return
	}
	c.failures[f.Index] = f
}

func (c *ResultCollector[In, Out]) seen(index int) bool {
	if _, ok := c.results[index]; ok {
		return true
	}
	_, ok := c.failures[index]
	return ok
}

// Finalize builds the sorted Report.
//
// When aborted is false, every index in [0, total) must have been recorded
// exactly once as a result or a failure; Finalize panics otherwise. Duplicate
// records panic regardless of aborted.
func (c *ResultCollector[In, Out]) Finalize(aborted bool, err error) *Report[In, Out] {
	if len(c.defects) > 0 {
		panic(fmt.Sprintf("pipeline: result partition violated: %v", c.defects))
	}
	if !aborted {
		for i := 0; i < c.total; i++ {
			if !c.seen(i) {
				panic(fmt.Sprintf("pipeline: result partition violated: index %d never resolved", i))
			}
		}
		if n := len(c.results) + len(c.failures); n != c.total {
			panic(fmt.Sprintf("pipeline: result partition violated: %d outcomes for %d items", n, c.total))
		}
	}

	report := &Report[In, Out]{
		Results:  make([]Result[Out], 0, len(c.results)),
		Warnings: make([]int, 0, len(c.warnings)),
		Failures: make([]Failure[In], 0, len(c.failures)),
		Aborted:  aborted,
		Err:      err,
	}

	for idx, value := range c.results {
		report.Results = append(report.Results, Result[Out]{Index: idx, Value: value})
	}
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Index < report.Results[j].Index
	})

	for idx := range c.warnings {
		report.Warnings = append(report.Warnings, idx)
	}
	slices.Sort(report.Warnings)

	for _, f := range c.failures {
		report.Failures = append(report.Failures, f)
	}
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Index < report.Failures[j].Index
	})

	return report
}
