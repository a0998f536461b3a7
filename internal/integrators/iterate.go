package integrators

import "github.com/san-kum/lyapsim/internal/dynamo"

// Iterate advances a discrete map by one application. Time and step size
// have no meaning for a map and are ignored.
type Iterate struct{}

func NewIterate() *Iterate {
	return &Iterate{}
}

func (it *Iterate) Step(m dynamo.Map, x dynamo.State, _ float64, _ float64) dynamo.State {
	return m.Apply(x)
}
