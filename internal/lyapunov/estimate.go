package lyapunov

import (
	"context"
	"math"
)

// Series holds the recorded samples of a run column by column.
type Series struct {
	Times         []float64
	Distances     []float64
	LnDistances   []float64
	RunningLambda []float64
}

func (s *Series) Append(samples ...Sample) {
	for _, sm := range samples {
		s.Times = append(s.Times, sm.T)
		s.Distances = append(s.Distances, sm.Distance)
		s.LnDistances = append(s.LnDistances, sm.LnDistance)
		s.RunningLambda = append(s.RunningLambda, sm.RunningLambda)
	}
}

func (s Series) Len() int { return len(s.Times) }

func (s Series) At(i int) Sample {
	return Sample{
		T:             s.Times[i],
		Distance:      s.Distances[i],
		LnDistance:    s.LnDistances[i],
		RunningLambda: s.RunningLambda[i],
	}
}

// Fit regresses ln d on t over the whole series.
func (s Series) Fit() (FitResult, bool) {
	return LinearFit(s.Times, s.LnDistances)
}

type Result struct {
	Lambda       float64
	RenormEvents int
	Series       Series
}

func (r Result) HasLambda() bool { return !math.IsNaN(r.Lambda) }

// yieldEvery is how often long loops check for cancellation.
const yieldEvery = 256

// Estimate runs p to completion on the calling goroutine. p is sanitized
// first. It returns ctx.Err() if the context ends before the run does.
func Estimate(ctx context.Context, p Params) (Result, error) {
	return run(ctx, NewTracker(p.Sanitize()))
}

func run(ctx context.Context, tr *Tracker) (Result, error) {
	var series Series
	for !tr.Done() {
		if tr.step%yieldEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		obs, err := tr.Step()
		if err != nil {
			return Result{}, err
		}
		if obs.Sampled {
			series.Append(obs.Sample)
		}
	}
	return Result{
		Lambda:       tr.Lambda(),
		RenormEvents: tr.State().RenormEvents,
		Series:       series,
	}, nil
}
