package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRecord is returned when a structured record cannot be parsed back into
// a result.
var ErrRecord = errors.New("malformed record")

// StepResult captures the outcome of a single step invocation: when it
// started, when it finished, and whether it returned without error. The
// pipeline emits exactly one per step it attempted. Treat it as read-only
// once Run has returned it.
type StepResult struct {
	ID            uuid.UUID
	StepName      string
	StartAt       time.Time
	FinishAt      time.Time
	Duration      time.Duration
	CorrectFinish bool
}

// Result is the aggregate outcome of one pipeline run. Steps holds one
// StepResult per step actually attempted, in execution order; an abort or a
// captured failure truncates it short of the registered sequence.
// CorrectFinish is false iff any entry in Steps failed.
type Result struct {
	RunID         uuid.UUID
	PipelineName  string
	Steps         []StepResult
	StartAt       time.Time
	FinishAt      time.Time
	Duration      time.Duration
	CorrectFinish bool
}

// Record converts the step result into a plain key→value mapping with scalar
// values only: identifiers and timestamps as strings (RFC 3339, nanosecond
// precision), the duration in time.Duration.String form.
func (r StepResult) Record() map[string]any {
	return map[string]any{
		"id":             r.ID.String(),
		"step_name":      r.StepName,
		"start_at":       r.StartAt.Format(time.RFC3339Nano),
		"finish_at":      r.FinishAt.Format(time.RFC3339Nano),
		"duration":       r.Duration.String(),
		"correct_finish": r.CorrectFinish,
	}
}

// Record converts the run result into a plain key→value mapping. The per-step
// results appear under "steps" as a slice of their own records.
func (r Result) Record() map[string]any {
	steps := make([]map[string]any, 0, len(r.Steps))
	for _, sr := range r.Steps {
		steps = append(steps, sr.Record())
	}
	return map[string]any{
		"run_id":         r.RunID.String(),
		"pipeline_name":  r.PipelineName,
		"steps":          steps,
		"start_at":       r.StartAt.Format(time.RFC3339Nano),
		"finish_at":      r.FinishAt.Format(time.RFC3339Nano),
		"duration":       r.Duration.String(),
		"correct_finish": r.CorrectFinish,
	}
}

// StepResultFromRecord rebuilds a StepResult from its Record form.
// Timestamps normalize to the same instant they were recorded at.
func StepResultFromRecord(rec map[string]any) (StepResult, error) {
	var (
		sr  StepResult
		err error
	)
	if sr.ID, err = uuidField(rec, "id"); err != nil {
		return StepResult{}, err
	}
	if sr.StepName, err = stringField(rec, "step_name"); err != nil {
		return StepResult{}, err
	}
	if sr.StartAt, err = timeField(rec, "start_at"); err != nil {
		return StepResult{}, err
	}
	if sr.FinishAt, err = timeField(rec, "finish_at"); err != nil {
		return StepResult{}, err
	}
	if sr.Duration, err = durationField(rec, "duration"); err != nil {
		return StepResult{}, err
	}
	if sr.CorrectFinish, err = boolField(rec, "correct_finish"); err != nil {
		return StepResult{}, err
	}
	return sr, nil
}

// ResultFromRecord rebuilds a Result from its Record form.
func ResultFromRecord(rec map[string]any) (Result, error) {
	var (
		r   Result
		err error
	)
	if r.RunID, err = uuidField(rec, "run_id"); err != nil {
		return Result{}, err
	}
	if r.PipelineName, err = stringField(rec, "pipeline_name"); err != nil {
		return Result{}, err
	}
	if r.StartAt, err = timeField(rec, "start_at"); err != nil {
		return Result{}, err
	}
	if r.FinishAt, err = timeField(rec, "finish_at"); err != nil {
		return Result{}, err
	}
	if r.Duration, err = durationField(rec, "duration"); err != nil {
		return Result{}, err
	}
	if r.CorrectFinish, err = boolField(rec, "correct_finish"); err != nil {
		return Result{}, err
	}
	steps, err := stepRecords(rec["steps"])
	if err != nil {
		return Result{}, err
	}
	r.Steps = make([]StepResult, 0, len(steps))
	for i, srec := range steps {
		sr, err := StepResultFromRecord(srec)
		if err != nil {
			return Result{}, fmt.Errorf("steps[%d]: %w", i, err)
		}
		r.Steps = append(r.Steps, sr)
	}
	return r, nil
}

// stepRecords accepts the steps list both as Record emits it and as generic
// serializers hand it back ([]any of maps).
func stepRecords(v any) ([]map[string]any, error) {
	switch list := v.(type) {
	case []map[string]any:
		return list, nil
	case []any:
		recs := make([]map[string]any, 0, len(list))
		for i, e := range list {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("steps[%d]: %w", i, ErrRecord)
			}
			recs = append(recs, m)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("field %q: %w", "steps", ErrRecord)
	}
}

func stringField(rec map[string]any, key string) (string, error) {
	s, ok := rec[key].(string)
	if !ok {
		return "", fmt.Errorf("field %q: %w", key, ErrRecord)
	}
	return s, nil
}

func boolField(rec map[string]any, key string) (bool, error) {
	b, ok := rec[key].(bool)
	if !ok {
		return false, fmt.Errorf("field %q: %w", key, ErrRecord)
	}
	return b, nil
}

func uuidField(rec map[string]any, key string) (uuid.UUID, error) {
	s, err := stringField(rec, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("field %q: %v: %w", key, err, ErrRecord)
	}
	return id, nil
}

func timeField(rec map[string]any, key string) (time.Time, error) {
	s, err := stringField(rec, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %q: %v: %w", key, err, ErrRecord)
	}
	return t, nil
}

func durationField(rec map[string]any, key string) (time.Duration, error) {
	s, err := stringField(rec, key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("field %q: %v: %w", key, err, ErrRecord)
	}
	return d, nil
}
