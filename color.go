package camview

import (
	"image/color"

	"github.com/chewxy/math32"
)

// Rec. 709 luma weights, shared with the preview shader.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// AdjustRGB applies p to one color with channels in [0, 1], in the same
// order as the preview shader: brightness, contrast, saturation, clamp.
// p is used as given; callers clamp it first.
func AdjustRGB(r, g, b float32, p FilterParameters) (float32, float32, float32) {
	r += p.Brightness
	g += p.Brightness
	b += p.Brightness

	r = (r-0.5)*p.Contrast + 0.5
	g = (g-0.5)*p.Contrast + 0.5
	b = (b-0.5)*p.Contrast + 0.5

	l := r*lumaR + g*lumaG + b*lumaB
	r = mix(l, r, p.Saturation)
	g = mix(l, g, p.Saturation)
	b = mix(l, b, p.Saturation)

	return clamp01(r), clamp01(g), clamp01(b)
}

// AdjustColor applies p to an 8-bit color. Alpha is unchanged.
func AdjustColor(c color.RGBA, p FilterParameters) color.RGBA {
	r, g, b := AdjustRGB(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, p)
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: c.A}
}

// mix matches WGSL mix: x*(1-a) + y*a.
func mix(x, y, a float32) float32 {
	return x*(1-a) + y*a
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}

func to8(v float32) uint8 {
	return uint8(math32.Round(v * 255))
}
