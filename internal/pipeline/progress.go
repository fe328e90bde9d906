package pipeline

import "sync/atomic"

// CompletionEvent is emitted by a worker after every Process call.
type CompletionEvent struct {
	Index   int
	Success bool
}

// ProgressTracker counts successful completions for a stage.
//
// The count only grows. It is safe to read Count from any goroutine while
// Run is consuming events.
type ProgressTracker struct {
	total    int
	count    atomic.Int64
	onUpdate func(done, total int)
}

// NewProgressTracker creates a tracker expecting total items. onUpdate, if
// not nil, is called from the tracker goroutine after each success.
func NewProgressTracker(total int, onUpdate func(done, total int)) *ProgressTracker {
	return &ProgressTracker{total: total, onUpdate: onUpdate}
}

// Run consumes events until the channel is closed.
func (p *ProgressTracker) Run(events <-chan CompletionEvent) {
	for ev := range events {
		if !ev.Success {
			continue
		}
		done := p.count.Add(1)
		if p.onUpdate != nil {
			p.onUpdate(int(done), p.total)
		}
	}
}

// Count returns the number of successes seen so far.
func (p *ProgressTracker) Count() int {
	return int(p.count.Load())
}

// Total returns the expected number of items.
func (p *ProgressTracker) Total() int {
	return p.total
}
