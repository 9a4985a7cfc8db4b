package pipeline

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidState marks a value that cannot serve as the initial state
	// of a run. Raised at the Run boundary, before any step executes.
	ErrInvalidState = errors.New("value does not satisfy the state contract")

	// ErrInvalidStep marks a value that cannot serve as a pipeline step.
	// Raised at registration time.
	ErrInvalidStep = errors.New("value does not satisfy the step contract")

	// ErrPipelineSealed is returned by Register once the pipeline has run:
	// the step sequence is fixed from the first Run onwards.
	ErrPipelineSealed = errors.New("pipeline already ran, registry is sealed")
)

// ValidateStep checks a step for issues the type system cannot catch:
// a nil step value (plain or typed nil) or an empty name.
func ValidateStep[S any](step Step[S]) error {
	if step == nil || isNil(step) {
		return fmt.Errorf("nil step: %w", ErrInvalidStep)
	}
	if step.Name() == "" {
		return fmt.Errorf("step must have a non-empty name: %w", ErrInvalidStep)
	}
	return nil
}

// isNil catches typed nils hiding behind a non-nil interface, which would
// panic as soon as a method is called on them.
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// ValidateState checks an initial state at the run boundary.
func ValidateState[S any](state *S) error {
	if state == nil {
		return fmt.Errorf("nil state: %w", ErrInvalidState)
	}
	return nil
}

// DeepCopier is implemented by state types that know how to deep copy
// themselves. CloneState uses it when available.
type DeepCopier[S any] interface {
	DeepCopy() *S
}

// CloneState returns a copy of the given state. It is a caller-side helper:
// the engine itself never copies the live state, it hands the same instance
// to one step at a time. Steps mutate it in place, so callers that want to
// keep the initial state around should hand the pipeline a clone. Types
// holding reference fields (slices, maps) should implement DeepCopier;
// otherwise the copy is shallow.
func CloneState[S any](state *S) *S {
	if state == nil {
		return nil
	}
	if copier, ok := any(state).(DeepCopier[S]); ok {
		return copier.DeepCopy()
	}
	cp := new(S)
	*cp = *state
	return cp
}
