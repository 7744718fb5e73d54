package hopper

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// StandardGravity is in inches per second per second.
	StandardGravity = 386.0885827
	// SeaLevelAirDensity is 1.225 kg/m^3 expressed in kg/in^3.
	SeaLevelAirDensity = 1.225 * 0.0254 * 0.0254 * 0.0254
	// SphereDragCoefficient is the drag coefficient of a smooth sphere.
	SphereDragCoefficient = 0.47
)

// Environment defines the fluid and the projectile. Masses are in kg and lengths in inches,
// hence forces are in kg.in/s^2.
type Environment struct {
	Gravity         float64 `json:"gravity"`
	AirDensity      float64 `json:"air_density"`
	Radius          float64 `json:"radius"`
	Mass            float64 `json:"mass"`
	DragCoefficient float64 `json:"drag_coefficient"`
	FreeStreamSpeed float64 `json:"free_stream_speed"` // U∞ of the Kutta-Joukowski lift.
}

// DefaultEnvironment returns sea level air and a 9.5in, 270g ball.
func DefaultEnvironment() Environment {
	return Environment{
		Gravity:         StandardGravity,
		AirDensity:      SeaLevelAirDensity,
		Radius:          4.75,
		Mass:            0.27,
		DragCoefficient: SphereDragCoefficient,
		FreeStreamSpeed: 200,
	}
}

// Vacuum returns the default environment without air, i.e. without drag nor Magnus force.
func Vacuum() Environment {
	e := DefaultEnvironment()
	e.AirDensity = 0
	return e
}

// Area returns the cross section of the projectile.
func (e Environment) Area() float64 {
	return math.Pi * e.Radius * e.Radius
}

// Drag returns the quadratic drag force for velocity v.
func (e Environment) Drag(v r2.Vec) r2.Vec {
	mag := 0.5 * e.AirDensity * r2.Norm2(v) * e.Area() * e.DragCoefficient
	return r2.Scale(-mag, unit(v))
}

// Magnus returns the Kutta-Joukowski force for velocity v and spin ω, normal to v.
func (e Environment) Magnus(v r2.Vec, ω float64) r2.Vec {
	mag := (2.0 / 3.0) * math.Pi * e.AirDensity * e.FreeStreamSpeed * math.Abs(ω) * e.Radius * e.Radius * e.Radius
	return r2.Scale(sign(ω)*mag, leftNormal(unit(v)))
}

// Acceleration returns the net acceleration for velocity v and spin ω, along with the forces.
func (e Environment) Acceleration(v r2.Vec, ω float64) (acc, magnus, drag r2.Vec) {
	magnus = e.Magnus(v, ω)
	drag = e.Drag(v)
	acc = r2.Add(r2.Vec{Y: -e.Gravity}, r2.Scale(1/e.Mass, r2.Add(drag, magnus)))
	return
}

// Validate returns an error wrapping ErrInvalidParameters if the environment is not physical.
func (e Environment) Validate() error {
	if !finite(e.Gravity, e.AirDensity, e.Radius, e.Mass, e.DragCoefficient, e.FreeStreamSpeed) {
		return fmt.Errorf("environment is not finite: %w", ErrInvalidParameters)
	}
	if e.Mass <= 0 || e.Gravity <= 0 {
		return fmt.Errorf("mass (%f) and gravity (%f) must be positive: %w", e.Mass, e.Gravity, ErrInvalidParameters)
	}
	if e.AirDensity < 0 || e.Radius < 0 || e.DragCoefficient < 0 || e.FreeStreamSpeed < 0 {
		return fmt.Errorf("environment %+v has negative coefficients: %w", e, ErrInvalidParameters)
	}
	return nil
}
