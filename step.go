package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Step is the basic unit of work in a pipeline. It receives the run context,
// the current state and the pipeline control surface, and returns the state
// the pipeline should carry into the next step. A step may mutate the state
// in place and return it, or build and return a fresh instance; the pipeline
// adopts whichever instance comes back.
type Step[S any] interface {
	// Name identifies the step in results and logs. It does not have to be
	// unique within a pipeline: registering the same step several times is
	// legal and each invocation produces its own StepResult.
	Name() string

	// Run executes the step. Returning an error marks the invocation as
	// failed; how the pipeline reacts depends on its FailurePolicy.
	Run(ctx context.Context, state *S, ctl *Control) (*S, error)
}

// Control is the narrow surface a step gets over its pipeline. Its only
// capability is requesting a cooperative stop.
type Control struct {
	abort atomic.Bool
}

// RequestStop asks the pipeline to stop once the current step has returned.
// It never interrupts the step in progress, and it does not affect the
// current step's own outcome. Idempotent.
func (c *Control) RequestStop() {
	c.abort.Store(true)
}

func (c *Control) stopRequested() bool {
	return c.abort.Load()
}

func (c *Control) reset() {
	c.abort.Store(false)
}

// StepFunc is an adapter to allow the use of ordinary functions as pipeline
// steps. Build one with NewStep.
type StepFunc[S any] struct {
	name string
	fn   func(context.Context, *S, *Control) (*S, error)
}

// NewStep adapts fn into a named Step.
func NewStep[S any](name string, fn func(context.Context, *S, *Control) (*S, error)) *StepFunc[S] {
	return &StepFunc[S]{name: name, fn: fn}
}

// Name returns the name given to NewStep.
func (s *StepFunc[S]) Name() string { return s.name }

// Run executes the function.
func (s *StepFunc[S]) Run(ctx context.Context, state *S, ctl *Control) (*S, error) {
	return s.fn(ctx, state, ctl)
}

// String returns the step name and the state type.
func (s *StepFunc[S]) String() string {
	var z S
	return fmt.Sprintf("StepFunc[%T](%s)", z, s.name)
}
