package analysis

import (
	"errors"
	"math"
	"strings"

	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/integrators"
)

var errNotConfigurable = errors.New("analysis: map is not configurable")

// BifurcationPoint holds the distinct attractor values found at one
// parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

// BifurcationOptions controls a diagram. Values closer than Resolution are
// reported once.
type BifurcationOptions struct {
	Param      string
	Min, Max   float64
	Steps      int
	StateIndex int
	Transient  int
	Record     int
	Resolution float64
}

func DefaultLogisticBifurcation() BifurcationOptions {
	return BifurcationOptions{
		Param:      "r",
		Min:        2.8,
		Max:        4.0,
		Steps:      160,
		Transient:  500,
		Record:     200,
		Resolution: 1e-3,
	}
}

// BifurcationDiagram sweeps a parameter of m and records the values the
// orbit of x0 visits after the transient. m is restored to opts.Min.
func BifurcationDiagram(m dynamo.Map, x0 dynamo.State, opts BifurcationOptions) ([]BifurcationPoint, error) {
	tunable, ok := m.(dynamo.Configurable)
	if !ok {
		return nil, errNotConfigurable
	}
	if len(x0) != m.StateDim() || opts.StateIndex < 0 || opts.StateIndex >= len(x0) {
		return nil, dynamo.ErrDimensionMismatch
	}

	steps := max(opts.Steps, 2)
	res := opts.Resolution
	if !(res > 0) {
		res = 1e-3
	}
	paramStep := (opts.Max - opts.Min) / float64(steps-1)
	it := integrators.NewIterate()

	results := make([]BifurcationPoint, 0, steps)
	for i := 0; i < steps; i++ {
		param := opts.Min + float64(i)*paramStep
		if err := tunable.SetParam(opts.Param, param); err != nil {
			return nil, err
		}

		x := x0.Clone()
		for n := 0; n < opts.Transient; n++ {
			x = it.Step(m, x, 0, 0)
		}

		values := make([]float64, 0, 16)
		seen := make(map[int64]bool)
		for n := 0; n < opts.Record; n++ {
			x = it.Step(m, x, 0, 0)
			if !x.IsValid() {
				break
			}
			v := x[opts.StateIndex]
			key := int64(math.Round(v / res))
			if !seen[key] {
				seen[key] = true
				values = append(values, v)
			}
		}

		results = append(results, BifurcationPoint{Param: param, Values: values})
	}

	if err := tunable.SetParam(opts.Param, opts.Min); err != nil {
		return nil, err
	}
	return results, nil
}

// BifurcationToASCII draws one column per point, scaled to the value range.
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, p := range data {
		for _, v := range p.Values {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if math.IsInf(minVal, 1) {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range data {
		col := min(i*width/len(data), width-1)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '•'
			}
		}
	}

	var b strings.Builder
	for _, row := range canvas {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}
