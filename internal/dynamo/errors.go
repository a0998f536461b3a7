package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for Lyapunov runs.
var (
	// ErrNumericOverflow indicates a trajectory produced a NaN or Inf coordinate.
	ErrNumericOverflow = errors.New("dynamo: numeric overflow (NaN or Inf in state)")

	// ErrAborted indicates the run was canceled by its consumer.
	ErrAborted = errors.New("dynamo: computation aborted")

	// ErrAlreadyRunning indicates a start was rejected because a run is active.
	ErrAlreadyRunning = errors.New("dynamo: a computation is already running")

	// ErrUnknownSystem indicates an unsupported system kind.
	ErrUnknownSystem = errors.New("dynamo: unknown system")

	// ErrDimensionMismatch indicates mismatched state dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s at step %d (t=%.4f)", e.Wrapped.Error(), e.Step, e.Time)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
