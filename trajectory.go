package hopper

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dozerworks/hopper/integrator"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultMaxSteps is the default cap on the number of integration steps of a single run.
const DefaultMaxSteps uint64 = 1000000

// Scheme defines the integration scheme of a run.
type Scheme uint8

const (
	// SemiImplicitEuler updates the velocity first and moves the position with the new velocity.
	SemiImplicitEuler Scheme = iota + 1
	// RK4 is the classical Runge-Kutta scheme.
	RK4
)

func (s Scheme) String() string {
	switch s {
	case SemiImplicitEuler:
		return "euler"
	case RK4:
		return "rk4"
	}
	return fmt.Sprintf("scheme(%d)", uint8(s))
}

// SchemeFromString returns the scheme from its name.
func SchemeFromString(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "euler", "symplectic", "semi-implicit":
		return SemiImplicitEuler, nil
	case "rk4":
		return RK4, nil
	}
	return 0, fmt.Errorf("unknown scheme `%s`: %w", name, ErrInvalidParameters)
}

// Reason defines why a run failed.
type Reason uint8

const (
	// NoFailure is the reason of a successful outcome.
	NoFailure Reason = iota
	// BelowGround means the ball fell below the ground.
	BelowGround
	// ExitedSideways means the ball reached the hub before clearing the threshold.
	ExitedSideways
	// MissedAperture means the ball came back down through the threshold outside the aperture.
	MissedAperture
)

func (r Reason) String() string {
	switch r {
	case NoFailure:
		return "none"
	case BelowGround:
		return "below ground"
	case ExitedSideways:
		return "exited sideways above threshold"
	case MissedAperture:
		return "missed aperture"
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Outcome is the terminal result of a run.
type Outcome struct {
	Success  bool
	Reason   Reason
	T        float64 // Time of the terminal state.
	Position r2.Vec  // Position of the terminal state.
	Steps    uint64
}

func (o Outcome) String() string {
	if o.Success {
		return "success"
	}
	return fmt.Sprintf("failure(%s)", o.Reason)
}

// KinematicState is the state of a run after a given step.
// The acceleration is the one which was used to reach this state.
type KinematicState struct {
	Position, Velocity, Acceleration r2.Vec
	T, Dt                            float64
}

// TrajectorySample records one step of a run.
type TrajectorySample struct {
	T        float64
	Position r2.Vec
	Magnus   r2.Vec // Magnus force used in this step.
	Drag     r2.Vec // Drag force used in this step.
}

// Simulator integrates launches against a target geometry.
type Simulator struct {
	Geometry TargetGeometry
	Env      Environment
	Scheme   Scheme
	MaxSteps uint64     // Zero means DefaultMaxSteps.
	Logger   log.Logger // Nil means no logging.
}

// NewSimulator returns a semi-implicit Euler simulator with the default step cap.
func NewSimulator(g TargetGeometry, env Environment) *Simulator {
	return &Simulator{Geometry: g, Env: env, Scheme: SemiImplicitEuler, MaxSteps: DefaultMaxSteps, Logger: log.NewNopLogger()}
}

// Simulate runs the launch in the default environment.
func Simulate(p LaunchParameters, dt float64, g TargetGeometry, onStep func(KinematicState)) (Outcome, []TrajectorySample, error) {
	return NewSimulator(g, DefaultEnvironment()).Run(p, dt, onStep)
}

func (s *Simulator) logger() log.Logger {
	if s.Logger == nil {
		return log.NewNopLogger()
	}
	return s.Logger
}

// Run integrates the launch with a time step dt until it succeeds or fails.
// If provided, onStep is called after every step with the state reached.
// The returned samples start with the launch state at t=0.
func (s *Simulator) Run(p LaunchParameters, dt float64, onStep func(KinematicState)) (Outcome, []TrajectorySample, error) {
	if dt <= 0 || !finite(dt) {
		return Outcome{}, nil, fmt.Errorf("time step %f must be positive and finite: %w", dt, ErrInvalidParameters)
	}
	for _, v := range []interface{ Validate() error }{p, s.Geometry, s.Env} {
		if err := v.Validate(); err != nil {
			return Outcome{}, nil, err
		}
	}

	r := newRun(s, p, dt, onStep)
	var solver integrator.Solver
	maxSteps := s.MaxSteps
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	switch s.Scheme {
	case SemiImplicitEuler, 0:
		euler, err := integrator.NewSymplecticEuler(0, dt, r)
		if err != nil {
			return Outcome{}, nil, err
		}
		euler.MaxIterations = maxSteps
		solver = euler
	case RK4:
		rk4, err := integrator.NewRK4(0, dt, r)
		if err != nil {
			return Outcome{}, nil, err
		}
		rk4.MaxIterations = maxSteps
		solver = rk4
	default:
		return Outcome{}, nil, fmt.Errorf("unsupported %s: %w", s.Scheme, ErrInvalidParameters)
	}

	steps, _, err := solver.Solve() // Blocking.
	if err != nil && !errors.Is(err, integrator.ErrIterationCap) {
		return Outcome{}, r.samples, err
	}
	if err != nil || r.diverged {
		level.Warn(s.logger()).Log("subsys", "integrator", "status", "diverged", "steps", steps, "t", r.state.T, "launch", p)
		return Outcome{}, r.samples, &DivergedError{Steps: steps, State: r.state}
	}
	r.outcome.Steps = steps
	level.Debug(s.logger()).Log("subsys", "integrator", "outcome", r.outcome, "steps", steps, "t", r.outcome.T, "launch", p)
	return r.outcome, r.samples, nil
}

// run is the integrable of a single launch. It is never shared.
type run struct {
	params   LaunchParameters
	geometry TargetGeometry
	env      Environment
	state    KinematicState
	samples  []TrajectorySample
	onStep   func(KinematicState)
	outcome  Outcome
	above    bool // Has been over the threshold.
	short    bool // Crossed the threshold down before reaching the hub.
	diverged bool
}

func newRun(s *Simulator, p LaunchParameters, dt float64, onStep func(KinematicState)) *run {
	sθ, cθ := math.Sincos(p.Theta)
	r := &run{params: p, geometry: s.Geometry, env: s.Env, onStep: onStep}
	r.state = KinematicState{
		Position:     r2.Vec{X: 0, Y: p.H},
		Velocity:     r2.Vec{X: p.V0 * cθ, Y: p.V0 * sθ},
		Acceleration: r2.Vec{X: 0, Y: -s.Env.Gravity},
		Dt:           dt,
	}
	_, magnus, drag := r.env.Acceleration(r.state.Velocity, p.Spin)
	r.samples = []TrajectorySample{{T: 0, Position: r.state.Position, Magnus: magnus, Drag: drag}}
	return r
}

// GetState implements the Integrable interface as [x, y, vx, vy].
func (r *run) GetState() []float64 {
	return []float64{r.state.Position.X, r.state.Position.Y, r.state.Velocity.X, r.state.Velocity.Y}
}

// SetState implements the Integrable interface.
func (r *run) SetState(i uint64, s []float64) {
	// Forces are those of the state the step started from.
	acc, magnus, drag := r.env.Acceleration(r.state.Velocity, r.params.Spin)
	r.state.Position = r2.Vec{X: s[0], Y: s[1]}
	r.state.Velocity = r2.Vec{X: s[2], Y: s[3]}
	r.state.Acceleration = acc
	r.state.T = float64(i+1) * r.state.Dt
	r.samples = append(r.samples, TrajectorySample{T: r.state.T, Position: r.state.Position, Magnus: magnus, Drag: drag})
	if r.onStep != nil {
		r.onStep(r.state)
	}
}

// Func implements the Integrable interface.
func (r *run) Func(t float64, s []float64) []float64 {
	v := r2.Vec{X: s[2], Y: s[3]}
	acc, _, _ := r.env.Acceleration(v, r.params.Spin)
	return []float64{v.X, v.Y, acc.X, acc.Y}
}

// Stop implements the Integrable interface: it decides the outcome from the state reached by the
// previous step, before the next one is applied.
func (r *run) Stop(i uint64) bool {
	pos, vel := r.state.Position, r.state.Velocity
	if !finite(pos.X, pos.Y, vel.X, vel.Y) {
		r.diverged = true
		return true
	}
	if pos.Y < 0 {
		return r.fail(BelowGround)
	}
	if r.short {
		// Came down in front of the hub.
		return false
	}
	threshold := r.geometry.Threshold
	if !r.above && pos.Y > threshold {
		r.above = true
	}
	near := r.geometry.NearSide(r.params.Delta)
	if !r.above && pos.X > near {
		return r.fail(ExitedSideways)
	}
	if r.above && pos.Y <= threshold {
		if pos.X <= near {
			r.short = true
			return false
		}
		offset := pos.X - r.geometry.ApertureLeft(r.params.Delta)
		if offset >= 0 && offset <= r.geometry.HopperWidth {
			r.outcome = Outcome{Success: true, Reason: NoFailure, T: r.state.T, Position: pos}
			return true
		}
		return r.fail(MissedAperture)
	}
	return false
}

func (r *run) fail(reason Reason) bool {
	r.outcome = Outcome{Success: false, Reason: reason, T: r.state.T, Position: r.state.Position}
	return true
}
