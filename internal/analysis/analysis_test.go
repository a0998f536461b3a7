package analysis

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/lyapsim/internal/dynamo"
	"github.com/san-kum/lyapsim/internal/lyapunov"
	"github.com/san-kum/lyapsim/internal/physics"
)

func TestRange(t *testing.T) {
	got := Range(2, 4, 5)
	want := []float64{2, 2.5, 3, 3.5, 4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Range[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if Range(1, 2, 0) != nil {
		t.Error("expected nil for n=0")
	}
	if got := Range(3, 9, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("Range(3, 9, 1) = %v", got)
	}
}

func TestSweepKeepsOrderAndSign(t *testing.T) {
	rs := []float64{2.5, 3.9, 3.2, 4.0}
	pts, err := Sweep(context.Background(), lyapunov.DefaultLogisticParams(), rs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != len(rs) {
		t.Fatalf("got %d points, want %d", len(pts), len(rs))
	}
	for i, pt := range pts {
		if pt.R != rs[i] {
			t.Errorf("point %d has r=%v, want %v", i, pt.R, rs[i])
		}
		if pt.RenormEvents == 0 {
			t.Errorf("r=%v: no renormalizations", pt.R)
		}
	}
	if !(pts[0].Lambda < 0) || !(pts[2].Lambda < 0) {
		t.Errorf("expected negative exponents for periodic r, got %v and %v", pts[0].Lambda, pts[2].Lambda)
	}
	if !(pts[1].Lambda > 0.2) || !(pts[3].Lambda > 0.2) {
		t.Errorf("expected positive exponents for chaotic r, got %v and %v", pts[1].Lambda, pts[3].Lambda)
	}
}

func TestSweepClampsParameter(t *testing.T) {
	pts, err := Sweep(context.Background(), lyapunov.DefaultLogisticParams(), []float64{9}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if pts[0].R != lyapunov.MaxR {
		t.Errorf("r = %v, want %v", pts[0].R, lyapunov.MaxR)
	}
}

func TestSweepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sweep(ctx, lyapunov.DefaultLogisticParams(), Range(3, 4, 8), 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSweepToASCII(t *testing.T) {
	if SweepToASCII(nil, 40, 8) != "" {
		t.Error("expected empty plot for no points")
	}
	out := SweepToASCII([]SweepPoint{{R: 3, Lambda: -0.2}, {R: 4, Lambda: 0.69}}, 40, 8)
	if !strings.Contains(out, "lambda(r)") {
		t.Errorf("missing caption in:\n%s", out)
	}
}

func TestBifurcationLogistic(t *testing.T) {
	m := physics.NewLogisticMap(3.8)
	opts := DefaultLogisticBifurcation()
	opts.Min, opts.Max, opts.Steps = 2.5, 3.2, 2

	data, err := BifurcationDiagram(m, dynamo.State{0.2}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 {
		t.Fatalf("got %d points, want 2", len(data))
	}

	if n := len(data[0].Values); n != 1 {
		t.Fatalf("r=2.5: got %d values, want a fixed point", n)
	}
	if v := data[0].Values[0]; math.Abs(v-0.6) > 1e-6 {
		t.Errorf("r=2.5: fixed point %v, want 0.6", v)
	}
	if n := len(data[1].Values); n != 2 {
		t.Errorf("r=3.2: got %d values, want a 2-cycle", n)
	}

	if m.R != opts.Min {
		t.Errorf("parameter not restored: r=%v", m.R)
	}
}

func TestBifurcationChaoticBandIsDense(t *testing.T) {
	opts := DefaultLogisticBifurcation()
	opts.Min, opts.Max, opts.Steps = 3.9, 4.0, 2

	data, err := BifurcationDiagram(physics.NewLogisticMap(3.9), dynamo.State{0.2}, opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range data {
		if len(p.Values) < 50 {
			t.Errorf("r=%v: only %d distinct values", p.Param, len(p.Values))
		}
	}
}

type fixedMap struct{}

func (fixedMap) Apply(x dynamo.State) dynamo.State { return x }
func (fixedMap) StateDim() int                     { return 1 }

func TestBifurcationErrors(t *testing.T) {
	if _, err := BifurcationDiagram(fixedMap{}, dynamo.State{0}, DefaultLogisticBifurcation()); err == nil {
		t.Error("expected error for a map without parameters")
	}

	_, err := BifurcationDiagram(physics.NewLogisticMap(3), dynamo.State{0.1, 0.2}, DefaultLogisticBifurcation())
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	opts := DefaultLogisticBifurcation()
	opts.Param = "k"
	if _, err := BifurcationDiagram(physics.NewLogisticMap(3), dynamo.State{0.1}, opts); err == nil {
		t.Error("expected error for an unknown parameter")
	}
}

func TestBifurcationToASCII(t *testing.T) {
	if BifurcationToASCII(nil, 10, 5) != "" {
		t.Error("expected empty output")
	}

	data := []BifurcationPoint{
		{Param: 1, Values: []float64{0}},
		{Param: 2, Values: []float64{1}},
	}
	out := BifurcationToASCII(data, 10, 5)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d rows, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[4], "•") {
		t.Errorf("bottom-left should hold the low value: %q", lines[4])
	}
	if []rune(lines[0])[5] != '•' {
		t.Errorf("top row should hold the high value at column 5: %q", lines[0])
	}
}
