package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	runIDKey  contextKey = "run_id"
	stepIDKey contextKey = "step_id"
	valuesKey contextKey = "values"
)

// Values is the run-scoped bag of values handed unchanged to every step of a
// run. A pipeline can carry defaults (see WithValues); values passed to Run
// are merged over them. Steps read the merged bag with ValuesFrom.
type Values map[string]any

func setValues(ctx context.Context, vals Values) context.Context {
	return context.WithValue(ctx, valuesKey, vals)
}

// ValuesFrom returns the run values stored in the context by Run. The second
// return is false when the context does not belong to a pipeline run.
func ValuesFrom(ctx context.Context) (Values, bool) {
	vals, ok := ctx.Value(valuesKey).(Values)
	return vals, ok
}

func setRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func setStepID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, stepIDKey, id)
}

// ErrNoID is returned by GetRunID and GetStepID when the context does not
// carry the requested identifier.
var ErrNoID = errors.New("no id in context")

// GetRunID returns the identifier of the current pipeline run.
func GetRunID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(runIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("run: %w", ErrNoID)
	}
	return id, nil
}

// GetStepID returns the identifier of the current step invocation.
func GetStepID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(stepIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("step: %w", ErrNoID)
	}
	return id, nil
}

// IDGenerator produces identifiers for runs and step invocations.
type IDGenerator interface {
	ID() uuid.UUID
}

var gen IDGenerator = RandomID{}

// SetIDGenerator swaps the package-wide identifier generator. Tests use it
// with StaticID to get deterministic results. Not safe to call while a
// pipeline is running.
func SetIDGenerator(g IDGenerator) {
	if g != nil {
		gen = g
	}
}

// RandomID generates random UUIDs. The default generator.
type RandomID struct{}

// ID returns a new random UUID.
func (RandomID) ID() uuid.UUID { return uuid.New() }

// StaticID generates a deterministic sequence of UUIDs
// (…-000000000001, …-000000000002, and so on).
type StaticID struct {
	mu sync.Mutex
	n  uint64
}

// ID returns the next UUID in the sequence.
func (s *StaticID) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012x", s.n))
}

func cloneValues(vals Values) Values {
	if vals == nil {
		return Values{}
	}
	return maps.Clone(vals)
}
