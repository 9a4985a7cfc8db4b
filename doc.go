// Package pipeline provides a minimal engine for the pipeline design
// pattern: an ordered sequence of named steps that transform a single shared
// state value, with per-step and per-run timing and a structured result.
// The package is generic and works with any state type.
//
// # Key Features
//
//   - **Sequential execution**: steps run strictly in registration order,
//     exactly once per Run.
//   - **Shared state**: one live state value threads through every step; a
//     step may mutate it in place or return a replacement.
//   - **Timing and results**: every attempted step yields a StepResult,
//     every run a Result, both exportable as plain key→value records.
//   - **Cooperative abort**: a step can request a stop through its Control;
//     the run ends after that step returns, still counted as successful.
//   - **Failure policies**: a step error either becomes a failed StepResult
//     ending the run cleanly (CaptureFailure) or escapes Run directly
//     (PropagateFailure).
//
// # Core Concepts
//
//   - **Step**: the basic unit of work, an interface with `Name` and `Run`.
//   - **Pipeline**: an ordered sequence of steps driving one run at a time.
//   - **Control**: the narrow abort surface handed to each step.
//   - **Result / StepResult**: timing and outcome records for a run and for
//     each attempted step.
package pipeline
