package lyapunov

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/physics"
)

type System string

const (
	SystemLogistic System = "logistic"
	SystemPendulum System = "pendulum"
)

// MaxSteps caps every step count accepted by Sanitize.
const MaxSteps = 100_000_000

// Sanitation bounds.
const (
	MinR           = 0.0
	MaxR           = 4.1
	MinDelta0      = 1e-16
	MinTotalSteps  = 50
	MinRenormSteps = 1
	MinChunkSize   = 25
	MinSampleEvery = 1
	MinDt          = 1e-5
	MaxDt          = 0.1
	MinLength      = 1e-3
)

func ParseSystem(s string) (System, error) {
	switch System(strings.ToLower(strings.TrimSpace(s))) {
	case SystemLogistic:
		return SystemLogistic, nil
	case SystemPendulum:
		return SystemPendulum, nil
	}
	return "", fmt.Errorf("%w: %q", dynamo.ErrUnknownSystem, s)
}

// Params configures one run. Logistic fields are ignored for the pendulum and
// vice versa. TotalSteps counts post-transient steps only.
type Params struct {
	System System `json:"system"`

	R  float64 `json:"r,omitempty"`
	X0 float64 `json:"x0,omitempty"`

	Gravity        float64 `json:"gravity,omitempty"`
	Length         float64 `json:"length,omitempty"`
	Damping        float64 `json:"damping,omitempty"`
	DriveAmplitude float64 `json:"drive_amplitude,omitempty"`
	DriveFrequency float64 `json:"drive_frequency,omitempty"`
	Theta0         float64 `json:"theta0,omitempty"`
	Omega0         float64 `json:"omega0,omitempty"`
	Dt             float64 `json:"dt,omitempty"`

	Delta0         float64 `json:"delta0"`
	TotalSteps     int     `json:"total_steps"`
	Transient      int     `json:"transient"`
	RenormSteps    int     `json:"renorm_steps"`
	RenormInterval float64 `json:"renorm_interval,omitempty"`
	SampleEvery    int     `json:"sample_every"`
	ChunkSize      int     `json:"chunk_size"`
}

func DefaultLogisticParams() Params {
	return Params{
		System:      SystemLogistic,
		R:           3.8,
		X0:          0.2,
		Delta0:      1e-8,
		TotalSteps:  2000,
		Transient:   500,
		RenormSteps: 10,
		SampleEvery: 1,
		ChunkSize:   120,
	}
}

// DefaultPendulumParams returns the classic chaotic driven pendulum
// (g = l = 1, γ = 0.5, F = 1.5, Ω = 2/3).
func DefaultPendulumParams() Params {
	return Params{
		System:         SystemPendulum,
		Gravity:        1,
		Length:         1,
		Damping:        0.5,
		DriveAmplitude: 1.5,
		DriveFrequency: 2.0 / 3.0,
		Theta0:         0.2,
		Omega0:         0,
		Dt:             0.01,
		Delta0:         1e-8,
		TotalSteps:     20000,
		Transient:      2000,
		RenormSteps:    1,
		RenormInterval: 0.05,
		SampleEvery:    5,
		ChunkSize:      200,
	}
}

// TotalWork is the number of steps a run performs, transient included.
func (p Params) TotalWork() int {
	return p.Transient + p.TotalSteps
}

// Unit is the simulated time covered by one step.
func (p Params) Unit() float64 {
	if p.System == SystemPendulum {
		return p.Dt
	}
	return 1
}

// Sanitize returns a copy with every field of the selected system coerced
// into its valid range. It never fails: NaN becomes the lower bound,
// infinities the nearest bound, an unknown system the logistic map.
func (p Params) Sanitize() Params {
	q := p
	switch q.System {
	case SystemPendulum:
		q.Gravity = clampFloat(q.Gravity, 0, math.MaxFloat64)
		q.Length = clampFloat(q.Length, MinLength, math.MaxFloat64)
		q.Damping = clampFloat(q.Damping, 0, math.MaxFloat64)
		q.DriveAmplitude = clampFloat(q.DriveAmplitude, 0, math.MaxFloat64)
		q.DriveFrequency = clampFloat(q.DriveFrequency, 0, math.MaxFloat64)
		q.Theta0 = physics.WrapAngle(finiteOr(q.Theta0, 0))
		q.Omega0 = finiteOr(q.Omega0, 0)
		q.Dt = clampFloat(q.Dt, MinDt, MaxDt)
		q.RenormInterval = clampFloat(q.RenormInterval, q.Dt, q.Dt*MaxSteps)
	default:
		q.System = SystemLogistic
		q.R = clampFloat(q.R, MinR, MaxR)
		q.X0 = clampFloat(q.X0, physics.UnitEpsilon, 1-physics.UnitEpsilon)
	}

	q.Delta0 = clampFloat(q.Delta0, MinDelta0, math.MaxFloat64)
	q.TotalSteps = clampInt(q.TotalSteps, MinTotalSteps, MaxSteps)
	q.Transient = clampInt(q.Transient, 0, MaxSteps)
	q.RenormSteps = clampInt(q.RenormSteps, MinRenormSteps, MaxSteps)
	q.SampleEvery = clampInt(q.SampleEvery, MinSampleEvery, MaxSteps)
	q.ChunkSize = clampInt(q.ChunkSize, MinChunkSize, MaxSteps)
	return q
}

func clampFloat(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
