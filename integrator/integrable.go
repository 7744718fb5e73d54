package integrator

import (
	"errors"
	"math"
)

// ErrIterationCap is returned by a solver which reached its MaxIterations before Stop returned true.
var ErrIterationCap = errors.New("integrator: iteration cap reached")

// Integrable defines something which can be integrated, i.e. has a state vector.
// WARNING: Implementation must manage its own state based on the iteration.
type Integrable interface {
	GetState() []float64                   // Get the latest state of this integrable.
	SetState(i uint64, s []float64)        // Set the state s of a given iteration i.
	Stop(i uint64) bool                    // Return whether to stop the integration from iteration i.
	Func(t float64, s []float64) []float64 // ODE function from time t and state s, must return a new state.
}

// Solver is implemented by the fixed step integrators of this package.
type Solver interface {
	Solve() (uint64, float64, error)
}

func checkConfig(stepSize float64, inte Integrable) error {
	if stepSize <= 0 || math.IsNaN(stepSize) || math.IsInf(stepSize, 0) {
		return errors.New("integrator: step size must be positive and finite")
	}
	if inte == nil {
		return errors.New("integrator: integrable may not be nil")
	}
	return nil
}
