package lyapunov

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/lyapsim/internal/dynamo"
)

func TestSanitizeClampsLogistic(t *testing.T) {
	p := Params{
		System:      "bogus",
		R:           9,
		X0:          -3,
		Delta0:      0,
		TotalSteps:  3,
		Transient:   -10,
		RenormSteps: 0,
		SampleEvery: -1,
		ChunkSize:   1,
	}.Sanitize()

	if p.System != SystemLogistic {
		t.Errorf("system: got %q", p.System)
	}
	if p.R != MaxR {
		t.Errorf("r: got %v", p.R)
	}
	if p.X0 != 1e-12 {
		t.Errorf("x0: got %v", p.X0)
	}
	if p.Delta0 != MinDelta0 {
		t.Errorf("delta0: got %v", p.Delta0)
	}
	if p.TotalSteps != MinTotalSteps || p.Transient != 0 || p.RenormSteps != 1 {
		t.Errorf("step counts: got total=%d transient=%d renorm=%d", p.TotalSteps, p.Transient, p.RenormSteps)
	}
	if p.SampleEvery != 1 || p.ChunkSize != MinChunkSize {
		t.Errorf("stride/chunk: got %d/%d", p.SampleEvery, p.ChunkSize)
	}
}

func TestSanitizeNonFinite(t *testing.T) {
	p := DefaultLogisticParams()
	p.R = math.NaN()
	p.X0 = math.Inf(1)
	p.Delta0 = math.NaN()
	q := p.Sanitize()

	if q.R != MinR {
		t.Errorf("NaN r should map to the lower bound, got %v", q.R)
	}
	if q.X0 != 1-1e-12 {
		t.Errorf("+Inf x0 should map to the upper bound, got %v", q.X0)
	}
	if q.Delta0 != MinDelta0 {
		t.Errorf("NaN delta0 should map to the lower bound, got %v", q.Delta0)
	}

	p = DefaultPendulumParams()
	p.Dt = math.Inf(1)
	p.Theta0 = math.NaN()
	p.RenormInterval = 0
	q = p.Sanitize()
	if q.Dt != MaxDt {
		t.Errorf("dt: got %v", q.Dt)
	}
	if q.Theta0 != 0 {
		t.Errorf("theta0: got %v", q.Theta0)
	}
	if q.RenormInterval != q.Dt {
		t.Errorf("renorm interval should be at least one step, got %v", q.RenormInterval)
	}
}

func TestSanitizeKeepsValidParams(t *testing.T) {
	for _, p := range []Params{DefaultLogisticParams(), DefaultPendulumParams()} {
		if q := p.Sanitize(); q != p {
			t.Errorf("%s: sanitize changed valid params:\n got %+v\nwant %+v", p.System, q, p)
		}
	}
}

func TestSanitizeCapsStepCounts(t *testing.T) {
	p := DefaultLogisticParams()
	p.TotalSteps = math.MaxInt
	if q := p.Sanitize(); q.TotalSteps != MaxSteps {
		t.Errorf("expected cap at %d, got %d", MaxSteps, q.TotalSteps)
	}
}

func TestParseSystem(t *testing.T) {
	if s, err := ParseSystem(" Pendulum "); err != nil || s != SystemPendulum {
		t.Errorf("got %q, %v", s, err)
	}
	if _, err := ParseSystem("lorenz"); !errors.Is(err, dynamo.ErrUnknownSystem) {
		t.Errorf("expected ErrUnknownSystem, got %v", err)
	}
}

func TestTotalWorkAndUnit(t *testing.T) {
	p := DefaultLogisticParams()
	if p.TotalWork() != 2500 || p.Unit() != 1 {
		t.Errorf("logistic: work %d unit %v", p.TotalWork(), p.Unit())
	}
	q := DefaultPendulumParams()
	if q.Unit() != q.Dt {
		t.Errorf("pendulum unit: %v", q.Unit())
	}
}
