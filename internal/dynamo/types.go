package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean length of s.
func (s State) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// AddScaled returns s + alpha*dir as a new vector.
func (s State) AddScaled(alpha float64, dir State) State {
	result := s.Clone()
	n := len(dir)
	if n > len(result) {
		n = len(result)
	}
	floats.AddScaled(result[:n], alpha, dir[:n])
	return result
}

// System is a continuous-time flow. Derive must be pure.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Map is a discrete-time map. Apply must be pure.
type Map interface {
	Apply(x State) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
