package lyapunov

import (
	"errors"
	"math"

	"github.com/san-kum/lyapsim/internal/dynamo"
)

// MinDistance floors separations that underflow or degenerate.
const MinDistance = 1e-18

// cadenceSlack absorbs rounding when comparing elapsed steps to a period.
const cadenceSlack = 1e-9

var ErrFinished = errors.New("lyapunov: run already finished")

// Sample is one recorded post-transient point. T is the time at the start of
// measured step k, k*unit, while Distance is taken after that step, at
// (k+1)*unit, and before any reseed on it. A fit over T therefore lags the
// separation by one unit; the slope is unaffected.
type Sample struct {
	T             float64
	Distance      float64
	LnDistance    float64
	RunningLambda float64
}

func (s Sample) HasRunningLambda() bool {
	return !math.IsNaN(s.RunningLambda)
}

// RunState is a point-in-time view of a tracker.
type RunState struct {
	StepIndex          int
	AccumulatedLnRatio float64
	RenormEvents       int
	LastRunningLambda  float64
}

// Observation reports what happened on one step.
type Observation struct {
	Step         int
	Distance     float64
	Renormalized bool
	Sampled      bool
	Sample       Sample
}

type Tracker struct {
	params Params
	flow   Flow

	base      dynamo.State
	perturbed dynamo.State

	step  int
	since int

	sumLn   float64
	events  int
	length  float64
	running float64
}

func NewTracker(p Params) *Tracker {
	return newTrackerWithFlow(p, NewFlow(p))
}

func newTrackerWithFlow(p Params, f Flow) *Tracker {
	base := f.Initial()
	dir := make(dynamo.State, f.Dim())
	dir[0] = 1
	return &Tracker{
		params:    p,
		flow:      f,
		base:      base,
		perturbed: f.Reseed(base, dir, p.Delta0),
		running:   math.NaN(),
	}
}

func (t *Tracker) Params() Params { return t.params }

func (t *Tracker) Total() int { return t.params.TotalWork() }

func (t *Tracker) Done() bool { return t.step >= t.Total() }

// Separation is the current base-to-perturbed distance.
func (t *Tracker) Separation() float64 {
	return t.flow.Difference(t.base, t.perturbed).Norm()
}

func (t *Tracker) Base() dynamo.State      { return t.base.Clone() }
func (t *Tracker) Perturbed() dynamo.State { return t.perturbed.Clone() }

// Lambda is the current estimate, NaN before the first renormalization.
func (t *Tracker) Lambda() float64 { return t.running }

func (t *Tracker) State() RunState {
	return RunState{
		StepIndex:          t.step,
		AccumulatedLnRatio: t.sumLn,
		RenormEvents:       t.events,
		LastRunningLambda:  t.running,
	}
}

// Step advances both trajectories once and renormalizes on cadence.
// A non-finite state yields a *dynamo.SimulationError wrapping
// dynamo.ErrNumericOverflow; the tracker is unusable afterwards.
func (t *Tracker) Step() (Observation, error) {
	if t.Done() {
		return Observation{}, ErrFinished
	}

	i := t.step
	unit := t.flow.Unit()
	now := float64(i) * unit

	base := t.flow.Advance(t.base, now)
	pert := t.flow.Advance(t.perturbed, now)
	if !base.IsValid() || !pert.IsValid() {
		t.step = t.Total()
		return Observation{}, &dynamo.SimulationError{
			Step:    i,
			Time:    now + unit,
			State:   base,
			Wrapped: dynamo.ErrNumericOverflow,
		}
	}
	t.base, t.perturbed = base, pert

	diff := t.flow.Difference(base, pert)
	dist := floorDistance(diff.Norm())
	obs := Observation{Step: i, Distance: dist}

	postTransient := i >= t.params.Transient
	t.since++
	if float64(t.since)*unit+unit*cadenceSlack >= t.flow.Period() {
		if postTransient {
			t.accumulate(dist, float64(t.since)*unit)
		}
		t.perturbed = t.flow.Reseed(base, diff, t.params.Delta0)
		t.since = 0
		obs.Renormalized = true
	}

	if postTransient {
		k := i - t.params.Transient
		if k%t.params.SampleEvery == 0 {
			obs.Sampled = true
			obs.Sample = Sample{
				T:             float64(k) * unit,
				Distance:      dist,
				LnDistance:    math.Log(dist),
				RunningLambda: t.running,
			}
		}
	} else if i == t.params.Transient-1 {
		// Only full intervals inside the measured window count.
		t.perturbed = t.flow.Reseed(base, t.flow.Difference(base, t.perturbed), t.params.Delta0)
		t.since = 0
	}

	t.step++
	return obs, nil
}

func (t *Tracker) accumulate(dist, interval float64) {
	ratio := dist / t.params.Delta0
	if ratio <= 0 {
		return
	}
	ln := math.Log(ratio)
	if math.IsNaN(ln) || math.IsInf(ln, 0) {
		return
	}
	t.sumLn += ln
	t.events++
	t.length += interval
	t.running = t.sumLn / t.length
}

func floorDistance(d float64) float64 {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) || d < MinDistance {
		return MinDistance
	}
	return d
}
