package lyapunov

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// degenerateDenom is the smallest |n·Σx² - (Σx)²| accepted by LinearFit.
const degenerateDenom = 1e-12

type FitResult struct {
	Slope     float64    `json:"slope"`
	Intercept float64    `json:"intercept"`
	RSquared  float64    `json:"r_squared"`
	Window    [2]float64 `json:"window"`
}

// LinearFit computes the ordinary least squares line through (xs[i], ys[i]).
// ok is false for fewer than two points, mismatched lengths or a degenerate
// abscissa.
func LinearFit(xs, ys []float64) (FitResult, bool) {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return FitResult{}, false
	}

	fn := float64(n)
	sumX := floats.Sum(xs)
	sumY := floats.Sum(ys)
	sumXX := floats.Dot(xs, xs)
	sumXY := floats.Dot(xs, ys)

	denom := fn*sumXX - sumX*sumX
	if math.Abs(denom) < degenerateDenom {
		return FitResult{}, false
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	meanY := sumY / fn
	var ssRes, ssTot float64
	for i := range xs {
		r := ys[i] - (slope*xs[i] + intercept)
		ssRes += r * r
		d := ys[i] - meanY
		ssTot += d * d
	}

	r2 := 1.0
	if ssTot != 0 {
		r2 = 1 - ssRes/ssTot
	}

	return FitResult{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		Window:    [2]float64{xs[0], xs[n-1]},
	}, true
}
