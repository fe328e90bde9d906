package pipeline

import (
	"context"
	"fmt"
)

// WorkItem is one unit of work: an original index, a payload, and the number
// of attempts already made.
//
// WorkItem is a value type. Requeueing creates a new value via Next instead
// of mutating the existing one.
type WorkItem[In any] struct {
	// Index is the 0-based position of the payload in the stage input.
	Index int

	// Payload is the stage-specific data.
	Payload In

	// Attempt counts previous Process calls for this index.
	Attempt int
}

// Next returns a copy of the item for its following attempt.
func (w WorkItem[In]) Next() WorkItem[In] {
	return WorkItem[In]{Index: w.Index, Payload: w.Payload, Attempt: w.Attempt + 1}
}

// OutcomeKind classifies the result of a single Process call.
type OutcomeKind int

const (
	// OutcomeSuccess finishes the item with an output.
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRetryable asks for the item to be requeued.
	OutcomeRetryable

	// OutcomeFatal aborts the whole stage.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the tagged result of a Process call. Build one with Success,
// Fallback, Retryable or Fatal.
type Outcome[Out any] struct {
	kind     OutcomeKind
	output   Out
	fallback bool
	err      error
}

// Success reports a finished item.
func Success[Out any](out Out) Outcome[Out] {
	return Outcome[Out]{kind: OutcomeSuccess, output: out}
}

// Fallback reports a finished item whose output came from a lower-ranked
// choice. The item counts as a success and its index is added to the
// stage warnings.
func Fallback[Out any](out Out) Outcome[Out] {
	return Outcome[Out]{kind: OutcomeSuccess, output: out, fallback: true}
}

// Retryable reports a failure that may succeed on a later attempt.
func Retryable[Out any](err error) Outcome[Out] {
	return Outcome[Out]{kind: OutcomeRetryable, err: err}
}

// Fatal reports a failure that must stop the whole stage.
func Fatal[Out any](err error) Outcome[Out] {
	return Outcome[Out]{kind: OutcomeFatal, err: err}
}

// Kind returns the outcome classification.
func (o Outcome[Out]) Kind() OutcomeKind { return o.kind }

// Output returns the produced value. It is the zero value unless Kind is
// OutcomeSuccess.
func (o Outcome[Out]) Output() Out { return o.output }

// IsFallback reports whether a success used a fallback choice.
func (o Outcome[Out]) IsFallback() bool { return o.fallback }

// Err returns the failure reason, nil on success.
func (o Outcome[Out]) Err() error { return o.err }

// Processor is the stage-specific work performed on each item.
//
// Process must honour ctx: once it is cancelled, in-flight network or
// process calls should return promptly.
type Processor[In, Out any] interface {
	Process(ctx context.Context, item WorkItem[In]) Outcome[Out]
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc[In, Out any] func(ctx context.Context, item WorkItem[In]) Outcome[Out]

// Process calls f.
func (f ProcessorFunc[In, Out]) Process(ctx context.Context, item WorkItem[In]) Outcome[Out] {
	return f(ctx, item)
}
