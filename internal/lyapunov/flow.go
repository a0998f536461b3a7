package lyapunov

import (
	"math"

	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/integrators"
	"github.com/san-kum/lyapsim/internal/physics"
)

// Flow advances one trajectory of a concrete system and knows how to measure
// and reseed separations in that system's state space. The set of flows is
// closed: LogisticFlow and PendulumFlow.
type Flow interface {
	Dim() int
	// Advance returns the state one step after x; t is the time at x.
	Advance(x dynamo.State, t float64) dynamo.State
	// Difference returns other - base in the system's metric.
	Difference(base, other dynamo.State) dynamo.State
	// Reseed returns base + delta0 * dir/|dir|.
	Reseed(base, dir dynamo.State, delta0 float64) dynamo.State
	// Unit is the simulated time per step; Period the renormalization cadence
	// in the same unit.
	Unit() float64
	Period() float64
	Initial() dynamo.State

	sealed()
}

func NewFlow(p Params) Flow {
	if p.System == SystemPendulum {
		return NewPendulumFlow(p)
	}
	return NewLogisticFlow(p)
}

type LogisticFlow struct {
	m      *physics.LogisticMap
	it     *integrators.Iterate
	x0     float64
	period float64
}

func NewLogisticFlow(p Params) *LogisticFlow {
	return &LogisticFlow{
		m:      physics.NewLogisticMap(p.R),
		it:     integrators.NewIterate(),
		x0:     p.X0,
		period: float64(p.RenormSteps),
	}
}

func (f *LogisticFlow) sealed() {}

func (f *LogisticFlow) Dim() int        { return 1 }
func (f *LogisticFlow) Unit() float64   { return 1 }
func (f *LogisticFlow) Period() float64 { return f.period }

func (f *LogisticFlow) Initial() dynamo.State {
	return dynamo.State{physics.ClampUnit(f.x0)}
}

func (f *LogisticFlow) Advance(x dynamo.State, t float64) dynamo.State {
	return f.it.Step(f.m, x, t, 1)
}

func (f *LogisticFlow) Difference(base, other dynamo.State) dynamo.State {
	return dynamo.State{other[0] - base[0]}
}

// Reseed keeps the sign of dir. If that would leave (0, 1) the opposite side
// is used so the separation stays delta0.
func (f *LogisticFlow) Reseed(base, dir dynamo.State, delta0 float64) dynamo.State {
	sign := 1.0
	if len(dir) > 0 && dir[0] < 0 {
		sign = -1
	}
	p := base[0] + sign*delta0
	if p <= 0 || p >= 1 {
		p = base[0] - sign*delta0
	}
	return dynamo.State{physics.ClampUnit(p)}
}

type PendulumFlow struct {
	sys    *physics.DrivenPendulum
	rk     *integrators.RK4
	dt     float64
	period float64
	x0     dynamo.State
}

func NewPendulumFlow(p Params) *PendulumFlow {
	return &PendulumFlow{
		sys: &physics.DrivenPendulum{
			Gravity:        p.Gravity,
			Length:         p.Length,
			Damping:        p.Damping,
			DriveAmplitude: p.DriveAmplitude,
			DriveFrequency: p.DriveFrequency,
		},
		rk:     integrators.NewRK4(),
		dt:     p.Dt,
		period: p.RenormInterval,
		x0:     dynamo.State{p.Theta0, p.Omega0},
	}
}

func (f *PendulumFlow) sealed() {}

func (f *PendulumFlow) Dim() int        { return 2 }
func (f *PendulumFlow) Unit() float64   { return f.dt }
func (f *PendulumFlow) Period() float64 { return f.period }

func (f *PendulumFlow) Initial() dynamo.State {
	x := f.x0.Clone()
	x[0] = physics.WrapAngle(x[0])
	return x
}

func (f *PendulumFlow) Advance(x dynamo.State, t float64) dynamo.State {
	next := f.rk.Step(f.sys, x, t, f.dt)
	for _, i := range f.sys.AngleIndices() {
		next[i] = physics.WrapAngle(next[i])
	}
	return next
}

func (f *PendulumFlow) Difference(base, other dynamo.State) dynamo.State {
	d := other.Sub(base)
	for _, i := range f.sys.AngleIndices() {
		d[i] = physics.WrapAngle(d[i])
	}
	return d
}

func (f *PendulumFlow) Reseed(base, dir dynamo.State, delta0 float64) dynamo.State {
	n := dir.Norm()
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		dir = dynamo.State{1, 0}
		n = 1
	}
	p := base.AddScaled(delta0/n, dir)
	for _, i := range f.sys.AngleIndices() {
		p[i] = physics.WrapAngle(p[i])
	}
	return p
}
