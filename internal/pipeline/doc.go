// Package pipeline runs one stage of bounded-concurrency work with failure
// requeueing.
//
// A stage takes an ordered list of payloads and pushes every one of them
// through a Processor using a fixed pool of workers:
//
//	report := pipeline.Run(ctx, pipeline.Config{
//	    Name:        "resolve",
//	    PoolSize:    4,
//	    RetryBudget: 2,
//	}, tracks, resolver)
//
// # Work Flow
//
// A feeder goroutine sends WorkItem values (index, payload, attempt 0) into a
// primary channel sized to the pool, then closes it. Workers prefer the
// primary channel and fall back to a retry channel holding requeued items.
// Neither channel is ever polled in a busy loop: a stage tracks the number of
// items that have not reached a terminal outcome and closes a done channel
// when that number reaches zero, which is what releases the workers.
//
// # Outcomes
//
// A Processor reports one of:
//   - Success / Fallback: the item is finished; Fallback also records the
//     index as a warning
//   - Retryable: the item is requeued with attempt+1, or recorded as a
//     permanent failure once the retry budget is spent
//   - Fatal: the whole stage is cancelled and the Report is marked aborted
//
// An item is processed at most RetryBudget+1 times.
//
// # Report
//
// Results are sorted by original index regardless of completion order. On a
// stage that was not aborted every index appears in exactly one of Results
// or Failures; a violation of that rule is a bug and panics.
package pipeline
