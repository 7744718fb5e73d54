package integrator

// SymplecticEuler is a semi-implicit Euler integrator for second order systems.
// The state must be laid out as [positions..., velocities...], and Func must return
// [velocities..., accelerations...] in the same layout.
type SymplecticEuler struct {
	X0            float64    // The initial x0.
	StepSize      float64    // The step size.
	MaxIterations uint64     // Zero means no cap.
	Integator     Integrable // What is to be integrated.
}

// NewSymplecticEuler returns a new semi-implicit Euler integrator instance.
func NewSymplecticEuler(x0 float64, stepSize float64, inte Integrable) (*SymplecticEuler, error) {
	if err := checkConfig(stepSize, inte); err != nil {
		return nil, err
	}
	return &SymplecticEuler{X0: x0, StepSize: stepSize, Integator: inte}, nil
}

// Solve solves the configured system.
// Returns the number of iterations performed and the last X_i, or an error.
// The velocities are updated from the derivative at the current state, and the positions are
// then moved with the new velocities.
func (e *SymplecticEuler) Solve() (uint64, float64, error) {
	iterNum := uint64(0)
	xi := e.X0
	for !e.Integator.Stop(iterNum) {
		if e.MaxIterations > 0 && iterNum >= e.MaxIterations {
			return iterNum, xi, ErrIterationCap
		}
		state := e.Integator.GetState()
		half := len(state) / 2
		fDot := e.Integator.Func(xi, state)
		newState := make([]float64, len(state))
		for i := half; i < len(state); i++ {
			newState[i] = state[i] + fDot[i]*e.StepSize
		}
		for i := 0; i < half; i++ {
			newState[i] = state[i] + newState[i+half]*e.StepSize
		}
		e.Integator.SetState(iterNum, newState)

		xi += e.StepSize
		iterNum++
	}
	return iterNum, xi, nil
}
