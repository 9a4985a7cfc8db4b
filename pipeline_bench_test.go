package pipeline_test

import (
	"context"
	"testing"

	pl "github.com/veggiemonk/pipeline"
)

type BenchState struct {
	Value   int
	Counter int
}

// BenchmarkPipelineRun benchmarks a full run of a small pipeline.
func BenchmarkPipelineRun(b *testing.B) {
	quiet := logger()
	steps := []pl.Step[BenchState]{
		pl.NewStep("incr", func(_ context.Context, s *BenchState, _ *pl.Control) (*BenchState, error) {
			s.Counter++
			return s, nil
		}),
		pl.NewStep("double", func(_ context.Context, s *BenchState, _ *pl.Control) (*BenchState, error) {
			s.Value *= 2
			return s, nil
		}),
		pl.NewStep("sum", func(_ context.Context, s *BenchState, _ *pl.Control) (*BenchState, error) {
			s.Counter += s.Value
			return s, nil
		}),
	}

	for i := 0; b.Loop(); i++ {
		p := pl.New("bench", pl.WithLogger[BenchState](quiet))
		for _, s := range steps {
			if err := p.Register(s); err != nil {
				b.Fatal(err)
			}
		}
		if _, err := p.Run(context.Background(), &BenchState{Value: i}, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRecordRoundTrip benchmarks exporting and re-importing a result.
func BenchmarkRecordRoundTrip(b *testing.B) {
	p := pl.New("bench-record", pl.WithLogger[BenchState](logger()))
	for range 5 {
		err := p.Register(pl.NewStep("noop", func(_ context.Context, s *BenchState, _ *pl.Control) (*BenchState, error) {
			return s, nil
		}))
		if err != nil {
			b.Fatal(err)
		}
	}
	res, err := p.Run(context.Background(), &BenchState{}, nil)
	if err != nil {
		b.Fatal(err)
	}

	for b.Loop() {
		rec := res.Record()
		if _, err := pl.ResultFromRecord(rec); err != nil {
			b.Fatal(err)
		}
	}
}
