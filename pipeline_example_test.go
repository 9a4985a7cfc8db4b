package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	pl "github.com/veggiemonk/pipeline"
)

// Example demonstrates how to define steps, register them and run a pipeline.
func Example() {
	type Report struct {
		Lines  int
		Status string
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pl.New("reporting", pl.WithLogger[Report](quiet))

	count := pl.NewStep("count", func(_ context.Context, r *Report, _ *pl.Control) (*Report, error) {
		r.Lines += 10
		return r, nil
	})
	finalize := pl.NewStep("finalize", func(_ context.Context, r *Report, ctl *pl.Control) (*Report, error) {
		r.Status = "done"
		if r.Lines >= 20 {
			// Nothing left to do, stop here.
			ctl.RequestStop()
		}
		return r, nil
	})

	// The same step can be registered several times.
	for _, s := range []pl.Step[Report]{count, count, finalize, count} {
		if err := p.Register(s); err != nil {
			fmt.Println("Error:", err)
			return
		}
	}

	fmt.Println(p)

	res, err := p.Run(context.Background(), &Report{}, nil)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Println("correct finish:", res.CorrectFinish)
	fmt.Println("steps attempted:", len(res.Steps))
	fmt.Printf("final state: %+v\n", *p.State())
	// Output: Pipeline[pipeline_test.Report](reporting)(count, count, finalize, count)
	// correct finish: true
	// steps attempted: 3
	// final state: {Lines:20 Status:done}
}
