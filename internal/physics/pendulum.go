package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/lyapsim/internal/dynamo"
)

// DrivenPendulum is a damped pendulum with a sinusoidal drive:
//
//	theta' = omega
//	omega' = -(g/l) sin(theta) - gamma*omega + F cos(Omega*t)
type DrivenPendulum struct {
	Gravity        float64
	Length         float64
	Damping        float64
	DriveAmplitude float64
	DriveFrequency float64
}

func NewDrivenPendulum() *DrivenPendulum {
	return &DrivenPendulum{
		Gravity:        9.81,
		Length:         1.0,
		Damping:        0.2,
		DriveAmplitude: 1.2,
		DriveFrequency: 0.666,
	}
}

func (p *DrivenPendulum) StateDim() int {
	return 2
}

// AngleIndices lists the state components that are angles.
func (p *DrivenPendulum) AngleIndices() []int {
	return []int{0}
}

func (p *DrivenPendulum) Derive(x dynamo.State, t float64) dynamo.State {
	theta := x[0]
	omega := x[1]

	alpha := -(p.Gravity/p.Length)*math.Sin(theta) - p.Damping*omega + p.DriveAmplitude*math.Cos(p.DriveFrequency*t)

	return dynamo.State{omega, alpha}
}

// Energy per unit mass: 0.5*(l*omega)^2 + g*l*(1-cos theta).
func (p *DrivenPendulum) Energy(x dynamo.State) float64 {
	v := p.Length * x[1]
	ke := 0.5 * v * v
	pe := p.Gravity * p.Length * (1.0 - math.Cos(x[0]))
	return ke + pe
}

func (p *DrivenPendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"gravity":         p.Gravity,
		"length":          p.Length,
		"damping":         p.Damping,
		"drive_amplitude": p.DriveAmplitude,
		"drive_frequency": p.DriveFrequency,
	}
}

func (p *DrivenPendulum) SetParam(name string, value float64) error {
	switch name {
	case "gravity":
		p.Gravity = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "drive_amplitude":
		p.DriveAmplitude = value
	case "drive_frequency":
		p.DriveFrequency = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// WrapAngle maps a into (-pi, pi].
func WrapAngle(a float64) float64 {
	if a > -math.Pi && a <= math.Pi {
		return a
	}
	x := math.Mod(a+math.Pi, 2*math.Pi)
	if x <= 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}
