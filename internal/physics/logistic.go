package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/lyapsim/internal/dynamo"
)

// UnitEpsilon keeps logistic iterates strictly inside (0, 1).
const UnitEpsilon = 1e-12

// ClampUnit maps v into the open unit interval. Values at or below zero and
// non-finite values become UnitEpsilon; values at or above one become
// 1-UnitEpsilon.
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return UnitEpsilon
	case v <= 0:
		return UnitEpsilon
	case v >= 1:
		return 1 - UnitEpsilon
	}
	return v
}

type LogisticMap struct {
	R float64
}

func NewLogisticMap(r float64) *LogisticMap {
	return &LogisticMap{R: r}
}

func (l *LogisticMap) StateDim() int { return 1 }

func (l *LogisticMap) Apply(x dynamo.State) dynamo.State {
	v := x[0]
	return dynamo.State{ClampUnit(l.R * v * (1 - v))}
}

func (l *LogisticMap) GetParams() map[string]float64 {
	return map[string]float64{"r": l.R}
}

func (l *LogisticMap) SetParam(name string, value float64) error {
	switch name {
	case "r":
		l.R = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
