package hopper

import "fmt"

// TargetGeometry defines the hub and the hopper aperture. All dimensions are in inches.
// The hub's near side is at the launch's Delta from the origin and the aperture is centered on the hub.
type TargetGeometry struct {
	Threshold   float64 `json:"threshold"`    // Height of the aperture.
	HubWidth    float64 `json:"hub_width"`    // Width of the upper zone.
	HubHeight   float64 `json:"hub_height"`   // Height of the hub, for display only.
	HopperWidth float64 `json:"hopper_width"` // Width of the aperture.
}

// DefaultGeometry returns the rig's geometry.
func DefaultGeometry() TargetGeometry {
	return TargetGeometry{Threshold: 72, HubWidth: 47, HubHeight: 48, HopperWidth: 41.7}
}

// NearSide returns the abscissa of the hub's near side for the given offset.
func (g TargetGeometry) NearSide(delta float64) float64 {
	return delta
}

// ApertureLeft returns the abscissa of the aperture's left edge for the given offset.
func (g TargetGeometry) ApertureLeft(delta float64) float64 {
	return delta + (g.HubWidth-g.HopperWidth)/2
}

// Validate returns an error wrapping ErrInvalidParameters if the geometry is degenerate.
func (g TargetGeometry) Validate() error {
	if !finite(g.Threshold, g.HubWidth, g.HubHeight, g.HopperWidth) {
		return fmt.Errorf("geometry is not finite: %w", ErrInvalidParameters)
	}
	if g.Threshold <= 0 || g.HubWidth <= 0 || g.HopperWidth <= 0 || g.HubHeight < 0 {
		return fmt.Errorf("geometry %+v has non-positive dimensions: %w", g, ErrInvalidParameters)
	}
	if g.HopperWidth > g.HubWidth {
		return fmt.Errorf("hopper (%f) is wider than hub (%f): %w", g.HopperWidth, g.HubWidth, ErrInvalidParameters)
	}
	return nil
}
