package hopper

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	deg2rad = math.Pi / 180
	zeroε   = 1e-12
)

// unit returns the unit vector of a given vector, or the zero vector if its norm is nil.
func unit(a r2.Vec) r2.Vec {
	n := r2.Norm(a)
	if scalar.EqualWithinAbs(n, 0, zeroε) {
		return r2.Vec{}
	}
	return r2.Scale(1/n, a)
}

// leftNormal returns the vector rotated by +90 degrees.
func leftNormal(a r2.Vec) r2.Vec {
	return r2.Vec{X: -a.Y, Y: a.X}
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if scalar.EqualWithinAbs(v, 0, zeroε) {
		return 1
	}
	return v / math.Abs(v)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Deg2rad converts degrees to radians. Unlike angles on an orbit, launch angles keep their sign.
func Deg2rad(a float64) float64 {
	return a * deg2rad
}

// Rad2deg converts radians to degrees.
func Rad2deg(a float64) float64 {
	return a / deg2rad
}
