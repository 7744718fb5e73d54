package hopper

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
)

// openField never reaches the threshold nor the hub: runs only stop below ground.
func openField() (TargetGeometry, float64) {
	return TargetGeometry{Threshold: 1e6, HubWidth: 47, HubHeight: 48, HopperWidth: 41.7}, 1e6
}

func TestSimulateParabola(t *testing.T) {
	geo, delta := openField()
	for _, dt := range []float64{0.01, 0.001} {
		p := LaunchParameters{Delta: delta, H: 20, Theta: 0, V0: 100, Spin: 0}
		outcome, samples, err := NewSimulator(geo, Vacuum()).Run(p, dt, nil)
		if err != nil {
			t.Fatalf("dt=%f: %s", dt, err)
		}
		if outcome.Success || outcome.Reason != BelowGround {
			t.Fatalf("dt=%f: unexpected outcome %s", dt, outcome)
		}
		g := StandardGravity
		for k, sample := range samples {
			if !scalar.EqualWithinAbs(sample.T, float64(k)*dt, 1e-12) {
				t.Fatalf("dt=%f: sample #%d at t=%f", dt, k, sample.T)
			}
			expY := p.H + p.V0*math.Sin(p.Theta)*sample.T - 0.5*g*sample.T*sample.T
			if math.Abs(sample.Position.Y-expY) > g*sample.T*dt+1e-9 {
				t.Fatalf("dt=%f: y(%f)=%f expected %f", dt, sample.T, sample.Position.Y, expY)
			}
			if !scalar.EqualWithinAbs(sample.Position.X, p.V0*sample.T, 1e-6) {
				t.Fatalf("dt=%f: x(%f)=%f expected %f", dt, sample.T, sample.Position.X, p.V0*sample.T)
			}
			if sample.Drag != (r2.Vec{}) || sample.Magnus != (r2.Vec{}) {
				t.Fatalf("forces in vacuum: %+v", sample)
			}
		}
	}
}

func TestSimulateRK4Parabola(t *testing.T) {
	geo, delta := openField()
	sim := NewSimulator(geo, Vacuum())
	sim.Scheme = RK4
	p := LaunchParameters{Delta: delta, H: 20, Theta: Deg2rad(30), V0: 150}
	_, samples, err := sim.Run(p, 0.01, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, sample := range samples {
		expY := p.H + p.V0*math.Sin(p.Theta)*sample.T - 0.5*StandardGravity*sample.T*sample.T
		if !scalar.EqualWithinAbs(sample.Position.Y, expY, 1e-6) {
			t.Fatalf("y(%f)=%f expected %f", sample.T, sample.Position.Y, expY)
		}
	}
}

func TestSimulateEnergy(t *testing.T) {
	geo, delta := openField()
	const dt = 0.001
	g := StandardGravity
	p := LaunchParameters{Delta: delta, H: 20, Theta: Deg2rad(45), V0: 240}
	e0 := 0.5*p.V0*p.V0 + g*p.H
	steps := 0
	_, _, err := NewSimulator(geo, Vacuum()).Run(p, dt, func(st KinematicState) {
		steps++
		e := 0.5*r2.Norm2(st.Velocity) + g*st.Position.Y
		// Semi-implicit Euler loses exactly g^2 dt^2 / 2 per step under constant gravity.
		if math.Abs(e-e0) > 0.5*g*g*dt*st.T*1.01+1e-6*e0 {
			t.Fatalf("energy drifted to %f from %f at t=%f", e, e0, st.T)
		}
		if math.Abs(e-e0)/e0 > 0.01 {
			t.Fatalf("energy drift above 1%% at t=%f", st.T)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if steps == 0 {
		t.Fatal("onStep never called")
	}
}

func TestSimulateIdempotent(t *testing.T) {
	p := LaunchParameters{Delta: 48, H: 20, Theta: Deg2rad(60), V0: 330, Spin: 25}
	sim := NewSimulator(DefaultGeometry(), DefaultEnvironment())
	o1, s1, err1 := sim.Run(p, 0.005, nil)
	o2, s2, err2 := sim.Run(p, 0.005, nil)
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v %v", err1, err2)
	}
	if o1 != o2 {
		t.Fatalf("outcomes differ: %+v %+v", o1, o2)
	}
	if len(s1) != len(s2) {
		t.Fatalf("%d != %d samples", len(s1), len(s2))
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("sample #%d differs: %+v != %+v", i, s1[i], s2[i])
		}
	}
}

func TestSimulateScenarios(t *testing.T) {
	// Default rig: the ball peaks around 57in and hits the hub on its way up.
	outcome, samples, err := Simulate(LaunchParameters{Delta: 48, H: 20, Theta: Deg2rad(45), V0: 240}, 0.01, DefaultGeometry(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if outcome.Success || outcome.Reason != ExitedSideways {
		t.Fatalf("unexpected outcome %s", outcome)
	}
	if int(outcome.Steps) != len(samples)-1 {
		t.Fatalf("%d steps but %d samples", outcome.Steps, len(samples))
	}

	// Dropped ball.
	for _, delta := range []float64{0, 10, 48, 200} {
		for _, θ := range []float64{-1, 0, 0.7, 1.5} {
			outcome, _, err := Simulate(LaunchParameters{Delta: delta, H: 80, Theta: θ, V0: 0}, 0.01, DefaultGeometry(), nil)
			if err != nil {
				t.Fatalf("delta=%f θ=%f: %s", delta, θ, err)
			}
			if outcome.Success || outcome.Reason != BelowGround {
				t.Fatalf("delta=%f θ=%f: unexpected outcome %s", delta, θ, outcome)
			}
		}
	}

	// In vacuum, a 60deg, 300in/s launch from 20in comes down through 72in at x~165in.
	sim := NewSimulator(DefaultGeometry(), Vacuum())
	for _, tc := range []struct {
		delta  float64
		reason Reason
	}{
		{140, NoFailure},
		{125, NoFailure},
		{100, MissedAperture},
		{20, ExitedSideways},
	} {
		outcome, _, err := sim.Run(LaunchParameters{Delta: tc.delta, H: 20, Theta: Deg2rad(60), V0: 300}, 0.001, nil)
		if err != nil {
			t.Fatalf("delta=%f: %s", tc.delta, err)
		}
		if outcome.Success != (tc.reason == NoFailure) || outcome.Reason != tc.reason {
			t.Fatalf("delta=%f: unexpected outcome %s", tc.delta, outcome)
		}
	}
}

func TestSimulateFromAboveThreshold(t *testing.T) {
	// From 80in, a 100in/s horizontal launch comes down through 72in at x~20.4in.
	sim := NewSimulator(DefaultGeometry(), Vacuum())
	for _, tc := range []struct {
		delta, θ, v0 float64
		reason       Reason
		x            float64
	}{
		{0, 0, 100, NoFailure, 20.36},
		{0, 0.001, 100, NoFailure, 20.38},
		{0, Deg2rad(-5), 100, NoFailure, 18.15},
		{0, 0, 300, MissedAperture, 61.09},
		{30, 0, 100, BelowGround, -1},
	} {
		outcome, _, err := sim.Run(LaunchParameters{Delta: tc.delta, H: 80, Theta: tc.θ, V0: tc.v0}, 0.001, nil)
		if err != nil {
			t.Fatalf("delta=%f θ=%f: %s", tc.delta, tc.θ, err)
		}
		if outcome.Success != (tc.reason == NoFailure) || outcome.Reason != tc.reason {
			t.Fatalf("delta=%f θ=%f v0=%f: unexpected outcome %s", tc.delta, tc.θ, tc.v0, outcome)
		}
		if tc.x >= 0 && !scalar.EqualWithinAbs(outcome.Position.X, tc.x, 0.5) {
			t.Fatalf("delta=%f θ=%f v0=%f: crossed at x=%f instead of %f", tc.delta, tc.θ, tc.v0, outcome.Position.X, tc.x)
		}
	}
}

func TestSimulateOnStep(t *testing.T) {
	var states []KinematicState
	outcome, samples, err := Simulate(LaunchParameters{Delta: 48, H: 20, Theta: Deg2rad(45), V0: 240, Spin: -40}, 0.01, DefaultGeometry(), func(st KinematicState) {
		states = append(states, st)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != int(outcome.Steps) || len(states) != len(samples)-1 {
		t.Fatalf("%d callbacks, %d steps, %d samples", len(states), outcome.Steps, len(samples))
	}
	for i, st := range states {
		if st.Dt != 0.01 {
			t.Fatalf("dt changed to %f", st.Dt)
		}
		if st.Position != samples[i+1].Position || st.T != samples[i+1].T {
			t.Fatalf("state #%d does not match its sample", i)
		}
		if i > 0 && st.T <= states[i-1].T {
			t.Fatal("time is not increasing")
		}
	}
}

func TestSimulateDiverged(t *testing.T) {
	sim := NewSimulator(DefaultGeometry(), DefaultEnvironment())
	sim.MaxSteps = 10
	_, _, err := sim.Run(LaunchParameters{Delta: 48, H: 20, Theta: Deg2rad(45), V0: 240}, 0.01, nil)
	var divErr *DivergedError
	if !errors.As(err, &divErr) {
		t.Fatalf("expected a diverged error, got %v", err)
	}
	if divErr.Steps != 10 || !scalar.EqualWithinAbs(divErr.State.T, 0.1, 1e-12) {
		t.Fatalf("unexpected %s", divErr)
	}
}

func TestSimulateInvalid(t *testing.T) {
	good := LaunchParameters{Delta: 48, H: 20, Theta: Deg2rad(45), V0: 240}
	for _, dt := range []float64{0, -0.01, math.NaN(), math.Inf(1)} {
		if _, _, err := Simulate(good, dt, DefaultGeometry(), nil); !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("dt=%f: expected invalid parameters, got %v", dt, err)
		}
	}
	for _, p := range []LaunchParameters{
		WithOverride(good, V0, -1),
		WithOverride(good, Theta, math.NaN()),
		WithOverride(good, Height, math.Inf(-1)),
	} {
		if _, _, err := Simulate(p, 0.01, DefaultGeometry(), nil); !errors.Is(err, ErrInvalidParameters) {
			t.Fatalf("%s: expected invalid parameters, got %v", p, err)
		}
	}
	badGeo := DefaultGeometry()
	badGeo.HopperWidth = 100
	if _, _, err := Simulate(good, 0.01, badGeo, nil); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected invalid geometry, got %v", err)
	}
	badEnv := DefaultEnvironment()
	badEnv.Mass = 0
	if _, _, err := NewSimulator(DefaultGeometry(), badEnv).Run(good, 0.01, nil); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected invalid environment, got %v", err)
	}
}

func TestForces(t *testing.T) {
	env := DefaultEnvironment()
	v := r2.Vec{X: 100, Y: 0}
	drag := env.Drag(v)
	expDrag := 0.5 * env.AirDensity * 100 * 100 * env.Area() * env.DragCoefficient
	if !vecEqual(drag, r2.Vec{X: -expDrag}, 1e-12) {
		t.Fatalf("drag=%v expected %f", drag, -expDrag)
	}
	expMagnus := (2.0 / 3.0) * math.Pi * env.AirDensity * env.FreeStreamSpeed * 10 * math.Pow(env.Radius, 3)
	if m := env.Magnus(v, 10); !vecEqual(m, r2.Vec{Y: expMagnus}, 1e-12) {
		t.Fatalf("backspin magnus=%v expected %f", m, expMagnus)
	}
	if m := env.Magnus(v, -10); !vecEqual(m, r2.Vec{Y: -expMagnus}, 1e-12) {
		t.Fatalf("topspin magnus=%v expected %f", m, -expMagnus)
	}
	if m := env.Magnus(r2.Vec{}, 10); m != (r2.Vec{}) {
		t.Fatalf("magnus at rest=%v", m)
	}
	if d := env.Drag(r2.Vec{}); d != (r2.Vec{}) {
		t.Fatalf("drag at rest=%v", d)
	}
	acc, _, _ := Vacuum().Acceleration(v, 50)
	if acc != (r2.Vec{Y: -StandardGravity}) {
		t.Fatalf("acceleration in vacuum=%v", acc)
	}
}
