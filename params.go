package hopper

import (
	"fmt"
	"strings"
)

// Param identifies one of the launch parameters.
type Param uint8

const (
	// Delta is the horizontal offset between the launch point and the hub's near side.
	Delta Param = iota + 1
	// Height is the height of the launch point.
	Height
	// Theta is the launch angle in radians.
	Theta
	// V0 is the launch speed.
	V0
	// Spin is the spin rate in rad/s, positive for counterclockwise.
	Spin
)

// Params lists all parameters in their canonical order.
var Params = []Param{Delta, Height, Theta, V0, Spin}

func (p Param) String() string {
	switch p {
	case Delta:
		return "delta"
	case Height:
		return "h"
	case Theta:
		return "theta"
	case V0:
		return "v0"
	case Spin:
		return "spin"
	}
	return fmt.Sprintf("param(%d)", uint8(p))
}

// ParamFromString returns the parameter from its name.
func ParamFromString(name string) (Param, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "delta":
		return Delta, nil
	case "h", "height":
		return Height, nil
	case "theta":
		return Theta, nil
	case "v0":
		return V0, nil
	case "spin":
		return Spin, nil
	}
	return 0, fmt.Errorf("unknown parameter `%s`: %w", name, ErrInvalidParameters)
}

// LaunchParameters defines a launch. Distances are in inches, speeds in in/s, angles in radians
// and spin in rad/s.
type LaunchParameters struct {
	Delta float64 `json:"delta"`
	H     float64 `json:"h"`
	Theta float64 `json:"theta"`
	V0    float64 `json:"v0"`
	Spin  float64 `json:"spin"`
}

func (p LaunchParameters) String() string {
	return fmt.Sprintf("delta=%.3f h=%.3f theta=%.2fdeg v0=%.3f spin=%.3f", p.Delta, p.H, Rad2deg(p.Theta), p.V0, p.Spin)
}

// Get returns the value of the provided parameter.
func (p LaunchParameters) Get(key Param) float64 {
	switch key {
	case Delta:
		return p.Delta
	case Height:
		return p.H
	case Theta:
		return p.Theta
	case V0:
		return p.V0
	case Spin:
		return p.Spin
	}
	panic(fmt.Errorf("cannot get unknown %s", key))
}

// WithOverride returns a copy of base where key is set to value.
func WithOverride(base LaunchParameters, key Param, value float64) LaunchParameters {
	switch key {
	case Delta:
		base.Delta = value
	case Height:
		base.H = value
	case Theta:
		base.Theta = value
	case V0:
		base.V0 = value
	case Spin:
		base.Spin = value
	default:
		panic(fmt.Errorf("cannot override unknown %s", key))
	}
	return base
}

// Validate returns an error wrapping ErrInvalidParameters if the launch cannot be simulated.
func (p LaunchParameters) Validate() error {
	for _, key := range Params {
		if !finite(p.Get(key)) {
			return fmt.Errorf("%s is not finite: %w", key, ErrInvalidParameters)
		}
	}
	if p.V0 < 0 {
		return fmt.Errorf("v0=%f is negative: %w", p.V0, ErrInvalidParameters)
	}
	return nil
}

// Domain is the declared [Min, Max] interval of a parameter, used to seed searches.
type Domain struct {
	Min, Max  float64
	Tolerance float64 // Search tolerance of this parameter, zero for the finder's.
}

// DefaultDomains returns the domain of each parameter.
func DefaultDomains() map[Param]Domain {
	return map[Param]Domain{
		Delta:  {Min: 0, Max: 240},
		Height: {Min: 0, Max: 100},
		Theta:  {Min: 0, Max: Deg2rad(90)},
		V0:     {Min: 0, Max: 600},
		Spin:   {Min: -200, Max: 200},
	}
}
