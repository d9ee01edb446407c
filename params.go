package camview

import (
	"github.com/chewxy/math32"
)

// Parameter ranges. Values outside are clamped, never rejected.
const (
	MinBrightness = -2
	MaxBrightness = 2
	MinContrast   = 0
	MaxContrast   = 10
	MinSaturation = 0
	MaxSaturation = 10
)

// FilterParameters are the color adjustments applied to every frame.
type FilterParameters struct {
	// Brightness is added to each channel. Range [-2, 2], neutral 0.
	Brightness float32 `toml:"brightness"`

	// Contrast scales each channel around mid-gray. Range [0, 10], neutral 1.
	Contrast float32 `toml:"contrast"`

	// Saturation mixes between Rec. 709 luma (0) and the input color (1).
	// Values above 1 extrapolate. Range [0, 10], neutral 1.
	Saturation float32 `toml:"saturation"`
}

// DefaultParameters returns the neutral parameters, which leave frames
// unchanged.
func DefaultParameters() FilterParameters {
	return FilterParameters{Brightness: 0, Contrast: 1, Saturation: 1}
}

// Clamp returns p with every field limited to its range. NaN becomes the
// neutral value.
func (p FilterParameters) Clamp() FilterParameters {
	return FilterParameters{
		Brightness: clampParam(p.Brightness, MinBrightness, MaxBrightness, 0),
		Contrast:   clampParam(p.Contrast, MinContrast, MaxContrast, 1),
		Saturation: clampParam(p.Saturation, MinSaturation, MaxSaturation, 1),
	}
}

// IsNeutral reports whether p leaves frames unchanged.
func (p FilterParameters) IsNeutral() bool {
	return p.Clamp() == DefaultParameters()
}

func clampParam(v, lo, hi, neutral float32) float32 {
	if math32.IsNaN(v) {
		return neutral
	}
	return math32.Max(lo, math32.Min(hi, v))
}

// ParameterUpdate is a partial change to FilterParameters. Nil fields keep
// their current value.
type ParameterUpdate struct {
	Brightness *float32 `toml:"brightness"`
	Contrast   *float32 `toml:"contrast"`
	Saturation *float32 `toml:"saturation"`
}

// Float returns a pointer to v, for building a ParameterUpdate.
func Float(v float32) *float32 { return &v }

// IsEmpty reports whether u changes nothing.
func (u ParameterUpdate) IsEmpty() bool {
	return u.Brightness == nil && u.Contrast == nil && u.Saturation == nil
}

// Apply returns p with the non-nil fields of u applied and the result
// clamped.
func (u ParameterUpdate) Apply(p FilterParameters) FilterParameters {
	if u.Brightness != nil {
		p.Brightness = *u.Brightness
	}
	if u.Contrast != nil {
		p.Contrast = *u.Contrast
	}
	if u.Saturation != nil {
		p.Saturation = *u.Saturation
	}
	return p.Clamp()
}

// Update returns the ParameterUpdate that sets every field to p.
func (p FilterParameters) Update() ParameterUpdate {
	return ParameterUpdate{
		Brightness: Float(p.Brightness),
		Contrast:   Float(p.Contrast),
		Saturation: Float(p.Saturation),
	}
}
