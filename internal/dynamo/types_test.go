package dynamo

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
		{State{}, 0.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	moved := a.AddScaled(0.5, b)
	if moved[0] != 3 || moved[1] != 4.5 || moved[2] != 6 {
		t.Errorf("AddScaled failed: got %v", moved)
	}
	if a[0] != 1 {
		t.Error("AddScaled mutated its receiver")
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	src := State{1, 2}
	c := src.Clone()
	c[0] = 99
	if src[0] == 99 {
		t.Error("Clone shares backing storage")
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Step: 150, Time: 1.5, Wrapped: ErrNumericOverflow}

	if !errors.Is(err, ErrNumericOverflow) {
		t.Error("SimulationError does not unwrap to its sentinel")
	}
	if !strings.Contains(err.Error(), "step 150") {
		t.Errorf("Error() = %q, want step context", err.Error())
	}
}
