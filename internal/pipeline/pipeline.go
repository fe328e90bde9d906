package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrRetryBudgetExhausted is recorded for items dequeued after their budget
// was already spent.
var ErrRetryBudgetExhausted = errors.New("retry budget exhausted")

// Recorder receives stage telemetry. All methods must be safe for concurrent
// use.
type Recorder interface {
	Attempt(stage string)
	Retry(stage string)
	Success(stage string)
	Fallback(stage string)
	Failure(stage string)
	InFlight(stage string, n int)
}

// Config controls a single stage run.
type Config struct {
	// Name labels logs and metrics, e.g. "resolve" or "fetch".
	Name string

	// PoolSize is the number of concurrent workers. Values below 1 mean 1.
	PoolSize int

	// RetryBudget is the number of requeues allowed per item. An item is
	// processed at most RetryBudget+1 times. Negative values mean 0.
	RetryBudget int

	// Logger is used for debug output. Nil disables logging.
	Logger *zap.Logger

	// Metrics receives telemetry. Nil disables it.
	Metrics Recorder

	// OnProgress is called after every success with the running count.
	OnProgress func(done, total int)
}

func (c Config) withDefaults() Config {
	if c.PoolSize < 1 {
		c.PoolSize = 1
	}
	if c.RetryBudget < 0 {
		c.RetryBudget = 0
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Metrics == nil {
		c.Metrics = nopRecorder{}
	}
	return c
}

// FatalError is the abort cause when a Processor returns a Fatal outcome.
type FatalError struct {
	Stage string
	Index int
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: item %d: %v", e.Stage, e.Index, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Run processes items through proc and returns the stage Report.
//
// Run returns once every item reached a terminal outcome, or once ctx is
// cancelled or a Fatal outcome is seen; in the latter cases the Report is
// partial and marked aborted.
func Run[In, Out any](ctx context.Context, cfg Config, items []In, proc Processor[In, Out]) *Report[In, Out] {
	cfg = cfg.withDefaults()
	n := len(items)

	s := &stage[In, Out]{
		cfg:      cfg,
		proc:     proc,
		logger:   cfg.Logger.With(zap.String("stage", cfg.Name)),
		primary:  make(chan WorkItem[In], cfg.PoolSize),
		retry:    make(chan WorkItem[In], max(n, 1)),
		results:  make(chan Result[Out], n),
		warnings: make(chan int, n),
		failures: make(chan Failure[In], n),
		events:   make(chan CompletionEvent, cfg.PoolSize),
		done:     make(chan struct{}),
	}
	s.remaining.Store(int64(n))
	if n == 0 {
		close(s.done)
	}
	cfg.Metrics.InFlight(cfg.Name, n)

	tracker := NewProgressTracker(n, cfg.OnProgress)
	trackerDone := make(chan struct{})
	go func() {
		defer close(trackerDone)
		tracker.Run(s.events)
	}()

	collector := NewResultCollector[In, Out](n)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		collector.Collect(s.results, s.warnings, s.failures)
	}()

	s.logger.Debug("stage started", zap.Int("items", n), zap.Int("workers", cfg.PoolSize), zap.Int("retry_budget", cfg.RetryBudget))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.feed(gctx, items)
		return nil
	})
	for id := 0; id < cfg.PoolSize; id++ {
		g.Go(func() error {
			return s.work(gctx, id)
		})
	}
	err := g.Wait()

	// All senders have returned; nothing else can write to these channels.
	close(s.events)
	close(s.results)
	close(s.warnings)
	close(s.failures)
	<-trackerDone
	<-collectorDone

	aborted := err != nil || s.remaining.Load() > 0
	if aborted && err == nil {
		err = context.Cause(ctx)
		if err == nil {
			err = context.Canceled
		}
	}

	report := collector.Finalize(aborted, err)
	report.Progress = tracker.Count()

	s.logger.Debug("stage finished",
		zap.Int("results", len(report.Results)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Int("failures", len(report.Failures)),
		zap.Bool("aborted", aborted),
	)
	return report
}

type stage[In, Out any] struct {
	cfg    Config
	proc   Processor[In, Out]
	logger *zap.Logger

	primary  chan WorkItem[In]
	retry    chan WorkItem[In]
	results  chan Result[Out]
	warnings chan int
	failures chan Failure[In]
	events   chan CompletionEvent

	// remaining counts items without a terminal outcome; done is closed
	// when it reaches zero.
	remaining atomic.Int64
	done      chan struct{}
}

func (s *stage[In, Out]) feed(ctx context.Context, items []In) {
	defer close(s.primary)
	for i, payload := range items {
		select {
		case s.primary <- WorkItem[In]{Index: i, Payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *stage[In, Out]) work(ctx context.Context, id int) error {
	logger := s.logger.With(zap.Int("worker", id))
	var primary <-chan WorkItem[In] = s.primary
	for {
		item, ok := s.next(ctx, &primary)
		if !ok {
			logger.Debug("worker exiting")
			return nil
		}
		if err := s.handle(ctx, logger, item); err != nil {
			return err
		}
	}
}

// next returns the next item, preferring fresh work over retries. primary is
// set to nil once it is closed and drained.
func (s *stage[In, Out]) next(ctx context.Context, primary *<-chan WorkItem[In]) (WorkItem[In], bool) {
	var zero WorkItem[In]
	for {
		if ctx.Err() != nil {
			return zero, false
		}
		if *primary != nil {
			select {
			case item, ok := <-*primary:
				if ok {
					return item, true
				}
				*primary = nil
				continue
			default:
			}
		}
		select {
		case <-ctx.Done():
			return zero, false
		case <-s.done:
			return zero, false
		case item, ok := <-*primary:
			if !ok {
				*primary = nil
				continue
			}
			return item, true
		case item := <-s.retry:
			return item, true
		}
	}
}

func (s *stage[In, Out]) handle(ctx context.Context, logger *zap.Logger, item WorkItem[In]) error {
	name := s.cfg.Name
	if item.Attempt > s.cfg.RetryBudget {
		s.fail(item, item.Attempt, ErrRetryBudgetExhausted)
		return nil
	}

	s.cfg.Metrics.Attempt(name)
	out := s.proc.Process(ctx, item)

	switch out.Kind() {
	case OutcomeSuccess:
		s.events <- CompletionEvent{Index: item.Index, Success: true}
		if out.IsFallback() {
			s.cfg.Metrics.Fallback(name)
			s.warnings <- item.Index
		}
		s.cfg.Metrics.Success(name)
		s.results <- Result[Out]{Index: item.Index, Value: out.Output()}
		s.finish()

	case OutcomeRetryable:
		s.events <- CompletionEvent{Index: item.Index, Success: false}
		if ctx.Err() != nil {
			// Cancelled mid-call; leave the item unresolved.
			return nil
		}
		attempts := item.Attempt + 1
		if attempts > s.cfg.RetryBudget {
			logger.Debug("retry budget exhausted", zap.Int("index", item.Index), zap.Int("attempts", attempts), zap.Error(out.Err()))
			s.fail(item, attempts, out.Err())
			return nil
		}
		logger.Debug("requeueing item", zap.Int("index", item.Index), zap.Int("attempt", attempts), zap.Error(out.Err()))
		s.cfg.Metrics.Retry(name)
		s.retry <- item.Next()

	case OutcomeFatal:
		logger.Debug("fatal outcome", zap.Int("index", item.Index), zap.Error(out.Err()))
		return &FatalError{Stage: name, Index: item.Index, Err: out.Err()}
	}
	return nil
}

func (s *stage[In, Out]) fail(item WorkItem[In], attempts int, err error) {
	s.cfg.Metrics.Failure(s.cfg.Name)
	s.failures <- Failure[In]{Index: item.Index, Payload: item.Payload, Attempts: attempts, Err: err}
	s.finish()
}

func (s *stage[In, Out]) finish() {
	left := s.remaining.Add(-1)
	s.cfg.Metrics.InFlight(s.cfg.Name, int(left))
	if left == 0 {
		close(s.done)
	}
}

type nopRecorder struct{}

func (nopRecorder) Attempt(string)       {}
func (nopRecorder) Retry(string)         {}
func (nopRecorder) Success(string)       {}
func (nopRecorder) Fallback(string)      {}
func (nopRecorder) Failure(string)       {}
func (nopRecorder) InFlight(string, int) {}
