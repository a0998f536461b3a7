package analysis

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/guptarohit/asciigraph"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

// SweepPoint is the estimate at one logistic parameter.
type SweepPoint struct {
	R            float64
	Lambda       float64
	RenormEvents int
}

// Range returns n evenly spaced values from lo to hi inclusive.
func Range(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	step := (hi - lo) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Sweep estimates the maximal exponent of the logistic map for every r in
// rs, reusing the remaining fields of base. At most workers estimates run at
// once; workers <= 0 means GOMAXPROCS. Results keep the order of rs.
func Sweep(ctx context.Context, base lyapunov.Params, rs []float64, workers int) ([]SweepPoint, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	base.System = lyapunov.SystemLogistic
	// only the exponent is kept, so record a single sample per run
	base.SampleEvery = lyapunov.MaxSteps

	out := make([]SweepPoint, len(rs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, r := range rs {
		g.Go(func() error {
			p := base
			p.R = r
			p = p.Sanitize()
			res, err := lyapunov.Estimate(ctx, p)
			if err != nil {
				return fmt.Errorf("r=%g: %w", r, err)
			}
			out[i] = SweepPoint{R: p.R, Lambda: res.Lambda, RenormEvents: res.RenormEvents}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// SweepToASCII plots lambda against r with a zero line for reference.
func SweepToASCII(pts []SweepPoint, width, height int) string {
	if len(pts) == 0 {
		return ""
	}
	lambdas := make([]float64, len(pts))
	zero := make([]float64, len(pts))
	for i, pt := range pts {
		lambdas[i] = pt.Lambda
	}

	var b strings.Builder
	b.WriteString(asciigraph.PlotMany(
		[][]float64{lambdas, zero},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.DarkGray),
		asciigraph.Caption(fmt.Sprintf("lambda(r), r in [%g, %g]", pts[0].R, pts[len(pts)-1].R)),
	))
	b.WriteByte('\n')
	return b.String()
}
