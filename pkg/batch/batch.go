// Package batch runs work over a slice in contiguous chunks: every item
// of a chunk in flight at once, chunks strictly in sequence, a fixed
// pause in between. That pause is the only backpressure this layer
// applies to rate-limited upstreams; there is no adaptive backoff here.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults applied when Options fields are left at their zero value.
const (
	DefaultSize  = 3
	DefaultDelay = 1 * time.Second
)

// Options controls chunking. The zero value is fully usable: chunks of
// DefaultSize with DefaultDelay between them. A negative Delay disables
// the pause entirely.
type Options struct {
	Size  int
	Delay time.Duration

	// OnProgress is called after each completed chunk with the number of
	// items finished so far and the total. Calls never overlap.
	OnProgress func(done, total int)
}

func (o *Options) applyDefaults() {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Delay == 0 {
		o.Delay = DefaultDelay
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
}

// Result is the outcome slot for one input item. Err is set when the
// processor failed for that item; the rest of the batch is unaffected.
type Result[R any] struct {
	Value R
	Err   error
}

// Process runs fn over items chunk by chunk and returns one result per
// item, positionally matching the input. Item failures land in their
// result slot and never abort the run. Cancelling ctx stops before the
// next chunk starts; the completed prefix is returned alongside ctx.Err().
func Process[T, R any](ctx context.Context, items []T, fn func(ctx context.Context, item T) (R, error), opts Options) ([]Result[R], error) {
	total := len(items)
	if total == 0 {
		return nil, nil
	}
	opts.applyDefaults()

	results := make([]Result[R], total)
	done := 0

	for start := 0; start < total; start += opts.Size {
		if err := ctx.Err(); err != nil {
			slog.Warn("Batch: cancelled", "done", done, "total", total)
			return results[:done], err
		}

		end := start + opts.Size
		if end > total {
			end = total
		}

		// Fan out the chunk, fan in before touching the next one
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := fn(ctx, items[i])
				results[i] = Result[R]{Value: v, Err: err}
			}(i)
		}
		wg.Wait()

		done = end
		slog.Debug("Batch: chunk complete", "done", done, "total", total)
		if opts.OnProgress != nil {
			opts.OnProgress(done, total)
		}

		// Pause between chunks, never after the last
		if done < total && opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return results[:done], ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	return results, nil
}

// Errs returns the per-item errors that occurred, in slot order.
func Errs[R any](results []Result[R]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
