package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dario.cat/mergo"
)

// FailurePolicy controls what a pipeline does with a step error.
type FailurePolicy int

const (
	// CaptureFailure records the failing step in the run result
	// (CorrectFinish=false) and ends the run cleanly. The default.
	CaptureFailure FailurePolicy = iota

	// PropagateFailure lets the step error escape Run directly. The run
	// produces no Result.
	PropagateFailure
)

// String returns the policy name for logs.
func (p FailurePolicy) String() string {
	switch p {
	case CaptureFailure:
		return "capture"
	case PropagateFailure:
		return "propagate"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// Option configures a pipeline at construction time.
type Option[S any] func(*Pipeline[S])

// WithPolicy sets the failure policy.
func WithPolicy[S any](policy FailurePolicy) Option[S] {
	return func(p *Pipeline[S]) { p.policy = policy }
}

// WithLogger sets the logger the pipeline emits its events to.
// Defaults to slog.Default().
func WithLogger[S any](l *slog.Logger) Option[S] {
	return func(p *Pipeline[S]) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithValues sets default run values. Values passed to Run are merged over
// these, call-site keys winning.
func WithValues[S any](vals Values) Option[S] {
	return func(p *Pipeline[S]) { p.defaults = vals }
}

// Pipeline executes a registered sequence of steps in order, threading one
// live state value through them and collecting a StepResult per attempted
// step.
//
// A Pipeline is not safe for concurrent Run calls: it carries run-scoped
// fields (live state, abort flag). Those fields are reset at the start of
// each Run, so sequential reuse is fine; run separate instances if you need
// parallel runs.
type Pipeline[S any] struct {
	name     string
	policy   FailurePolicy
	logger   *slog.Logger
	defaults Values

	steps  []Step[S]
	sealed bool

	ctl   Control
	state *S
}

// New creates a named pipeline. Register steps before the first Run.
func New[S any](name string, opts ...Option[S]) *Pipeline[S] {
	p := &Pipeline[S]{
		name:   name,
		policy: CaptureFailure,
		logger: slog.Default(),
		steps:  make([]Step[S], 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the pipeline name.
func (p *Pipeline[S]) Name() string { return p.name }

// Register appends a step to the execution sequence. Registration order is
// execution order, and the same step may be registered more than once. It
// fails with ErrInvalidStep for a nil step or an empty name, and with
// ErrPipelineSealed once the pipeline has run.
func (p *Pipeline[S]) Register(step Step[S]) error {
	if p.sealed {
		return fmt.Errorf("pipeline %q: %w", p.name, ErrPipelineSealed)
	}
	if err := ValidateStep(step); err != nil {
		return fmt.Errorf("pipeline %q: %w", p.name, err)
	}
	p.steps = append(p.steps, step)
	p.logger.Info("step registered", "pipeline_name", p.name, "step_name", step.Name())
	return nil
}

// Abort requests a cooperative stop: the run ends once the step currently
// executing (if any) returns. Steps reach the same switch through the
// Control handed to them. Idempotent.
func (p *Pipeline[S]) Abort() {
	p.ctl.RequestStop()
}

// State returns the live state: the value the last executed step returned.
// Meaningful during and after a run.
func (p *Pipeline[S]) State() *S { return p.state }

// Run executes the registered steps in order against init and returns the
// aggregate result. The final state is available through State.
//
// vals (merged over the pipeline defaults) reach every step of this run via
// ValuesFrom. An empty step sequence is a successful run. Under
// PropagateFailure a step error is returned as is (wrapped with the step
// name) and no Result is produced.
func (p *Pipeline[S]) Run(ctx context.Context, init *S, vals Values) (*Result, error) {
	if err := ValidateState(init); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.name, err)
	}
	merged := cloneValues(p.defaults)
	if len(vals) > 0 {
		if err := mergo.Merge(&merged, vals, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("pipeline %q: merging run values: %w", p.name, err)
		}
	}

	p.sealed = true
	p.ctl.reset()
	p.state = init

	runID := gen.ID()
	ctx = setValues(setRunID(ctx, runID), merged)

	res := &Result{
		RunID:         runID,
		PipelineName:  p.name,
		Steps:         make([]StepResult, 0, len(p.steps)),
		StartAt:       time.Now(),
		CorrectFinish: true,
	}
	p.logger.Info("pipeline start",
		"pipeline_name", p.name, "run_id", runID,
		"start_at", res.StartAt.Format(time.RFC3339Nano))

	if len(p.steps) == 0 {
		p.logger.Warn("empty step sequence", "pipeline_name", p.name, "run_id", runID)
		p.finish(res)
		return res, nil
	}

	for _, step := range p.steps {
		sr, err := p.runStep(ctx, step)
		if err != nil {
			if p.policy == PropagateFailure {
				return nil, fmt.Errorf("step %q: %w", step.Name(), err)
			}
			res.Steps = append(res.Steps, sr)
			res.CorrectFinish = false
			break
		}
		res.Steps = append(res.Steps, sr)

		if p.ctl.stopRequested() {
			p.logger.Info("pipeline aborted by a step",
				"pipeline_name", p.name, "run_id", runID, "step_name", step.Name())
			break
		}
	}

	p.finish(res)
	return res, nil
}

// runStep invokes one step inside the failure-isolating boundary and builds
// its StepResult. A panic inside the step surfaces as an error.
func (p *Pipeline[S]) runStep(ctx context.Context, step Step[S]) (sr StepResult, err error) {
	sr = StepResult{
		ID:       gen.ID(),
		StepName: step.Name(),
	}
	p.logger.Debug("step start",
		"pipeline_name", p.name, "step_name", sr.StepName, "step_id", sr.ID)

	sr.StartAt = time.Now()
	next, err := p.invoke(setStepID(ctx, sr.ID), step)
	sr.FinishAt = time.Now()
	sr.Duration = sr.FinishAt.Sub(sr.StartAt)
	sr.CorrectFinish = err == nil

	if err != nil {
		p.logger.Error("step finish",
			"pipeline_name", p.name, "step_name", sr.StepName, "step_id", sr.ID,
			"duration", sr.Duration, "run_error", err.Error())
		return sr, err
	}
	p.state = next
	p.logger.Info("step finish",
		"pipeline_name", p.name, "step_name", sr.StepName, "step_id", sr.ID,
		"duration", sr.Duration)
	return sr, nil
}

func (p *Pipeline[S]) invoke(ctx context.Context, step Step[S]) (next *S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panic: %v", r)
		}
	}()
	return step.Run(ctx, p.state, &p.ctl)
}

func (p *Pipeline[S]) finish(res *Result) {
	res.FinishAt = time.Now()
	res.Duration = res.FinishAt.Sub(res.StartAt)
	p.logger.Info("pipeline finish",
		"pipeline_name", p.name, "run_id", res.RunID,
		"finish_at", res.FinishAt.Format(time.RFC3339Nano),
		"duration", res.Duration, "correct_finish", res.CorrectFinish)
}

// String renders the pipeline and its registered step names.
func (p *Pipeline[S]) String() string {
	var buf strings.Builder
	var z S
	fmt.Fprintf(&buf, "Pipeline[%T](%s)", z, p.name)
	if len(p.steps) > 0 {
		buf.WriteString(`(`)
		for i, step := range p.steps {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(step.Name())
		}
		buf.WriteString(`)`)
	}
	return buf.String()
}
