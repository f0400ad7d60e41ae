// Package progressive implements staged delivery of slow-loading data.
//
// A load runs in up to three stages: an immediate stage returning whatever
// is cheaply available (cached lookups), an enhanced stage doing the
// expensive work (network fetches), and a validated stage that checks or
// refines the result. The consumer receives a snapshot after each stage,
// so a client can render partial data while the rest is still loading.
package progressive

import (
	"context"
	"errors"
)

// Progress marks reported after each stage.
const (
	ProgressImmediate = 33
	ProgressEnhanced  = 66
	ProgressComplete  = 100
)

// Stage names as reported in updates.
const (
	StageImmediate = "immediate"
	StageEnhanced  = "enhanced"
	StageValidated = "validated"
	StageFinal     = "final"
)

// Update is one snapshot of a progressive load. Every run ends with
// exactly one update where Loading is false and Progress is 100; if a
// later stage failed, that update carries the error alongside the best
// data produced so far.
type Update[T any] struct {
	Data     T
	Progress int
	Loading  bool
	Stage    string
	Err      error
}

// Stages holds the stage functions for a load. Immediate is required and
// produces the initial data; Enhanced and Validated are optional and
// receive the best data so far. A nil stage is skipped.
type Stages[T any] struct {
	Immediate func(ctx context.Context) (T, error)
	Enhanced  func(ctx context.Context, prev T) (T, error)
	Validated func(ctx context.Context, prev T) (T, error)
}

// Run executes the stages in order, calling onUpdate after each completed
// stage and returning the best data produced. If the immediate stage fails
// nothing is emitted and its error is returned. Failures in later stages
// do not fail the run: the data already delivered stays valid and the
// closing update reports the failure. Context cancellation between stages
// closes the stream and returns the context error.
func Run[T any](ctx context.Context, stages Stages[T], onUpdate func(Update[T])) (T, error) {
	var zero T
	if stages.Immediate == nil {
		return zero, errors.New("progressive: immediate stage is required")
	}

	data, err := stages.Immediate(ctx)
	if err != nil {
		return zero, err
	}
	onUpdate(Update[T]{Data: data, Progress: ProgressImmediate, Loading: true, Stage: StageImmediate})

	finish := func(stageErr error) {
		onUpdate(Update[T]{Data: data, Progress: ProgressComplete, Stage: StageFinal, Err: stageErr})
	}

	if err := ctx.Err(); err != nil {
		finish(err)
		return data, err
	}

	if stages.Enhanced != nil {
		enhanced, err := stages.Enhanced(ctx, data)
		if err != nil {
			finish(err)
			return data, nil
		}
		data = enhanced
		onUpdate(Update[T]{Data: data, Progress: ProgressEnhanced, Loading: true, Stage: StageEnhanced})
	}

	if err := ctx.Err(); err != nil {
		finish(err)
		return data, err
	}

	if stages.Validated != nil {
		validated, err := stages.Validated(ctx, data)
		if err != nil {
			finish(err)
			return data, nil
		}
		data = validated
		onUpdate(Update[T]{Data: data, Progress: ProgressComplete, Stage: StageValidated})
		return data, nil
	}

	finish(nil)
	return data, nil
}
