// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package clut

// Gradient identifies one of the predefined color ramps.
type Gradient int

// Predefined gradients.
const (
	GradientGrey Gradient = iota
	GradientTemperature
	GradientPhysics
	GradientStandard
	GradientGlow
	GradientBlueRed
	GradientSeismic
)

// stop is a control point of a piecewise-linear ramp, at position
// t in [0,1].
type stop struct {
	t    float32
	rgba RGBA
}

var ramps = map[Gradient][]stop{
	// GradientGrey ramps alpha alongside RGB, unlike every other
	// predefined ramp: it is the identity mapping used to echo a
	// sample's intensity straight through to RGBA, so a fully dark
	// voxel must render fully transparent rather than opaque black.
	GradientGrey: {
		{0, RGBA{0, 0, 0, 0}},
		{1, RGBA{1, 1, 1, 1}},
	},
	GradientTemperature: {
		{0, RGBA{0, 0, 1, 1}},
		{0.5, RGBA{0, 1, 0, 1}},
		{1, RGBA{1, 0, 0, 1}},
	},
	GradientPhysics: {
		{0, RGBA{0, 0, 0, 1}},
		{0.25, RGBA{0.5, 0, 0.5, 1}},
		{0.5, RGBA{0, 0, 1, 1}},
		{0.75, RGBA{0, 1, 1, 1}},
		{1, RGBA{1, 1, 0, 1}},
	},
	GradientStandard: {
		{0, RGBA{0, 0, 0, 1}},
		{0.33, RGBA{1, 0, 0, 1}},
		{0.66, RGBA{1, 1, 0, 1}},
		{1, RGBA{1, 1, 1, 1}},
	},
	GradientGlow: {
		{0, RGBA{0, 0, 0, 1}},
		{0.5, RGBA{1, 0, 0, 1}},
		{1, RGBA{1, 1, 1, 1}},
	},
	GradientBlueRed: {
		{0, RGBA{0, 0, 1, 1}},
		{1, RGBA{1, 0, 0, 1}},
	},
	GradientSeismic: {
		{0, RGBA{0, 0, 0.5, 1}},
		{0.25, RGBA{0, 0, 1, 1}},
		{0.5, RGBA{1, 1, 1, 1}},
		{0.75, RGBA{1, 0, 0, 1}},
		{1, RGBA{0.5, 0, 0, 1}},
	},
}

// NewGradient creates a CLUT whose table is filled by evaluating
// the named predefined gradient at 256 evenly spaced sample points.
// Every ramp but GradientGrey leaves alpha fully opaque; callers set
// the opaque window (or adjust the table's alpha) separately.
func NewGradient(g Gradient) *CLUT {
	c := New()
	stops, ok := ramps[g]
	if !ok {
		stops = ramps[GradientGrey]
	}
	for i := 0; i < Entries; i++ {
		t := float32(i) / float32(Entries-1)
		c.Table[i] = evalRamp(stops, t)
	}
	return c
}

func evalRamp(stops []stop, t float32) RGBA {
	if t <= stops[0].t {
		return stops[0].rgba
	}
	last := len(stops) - 1
	if t >= stops[last].t {
		return stops[last].rgba
	}
	for i := 0; i < last; i++ {
		a, b := stops[i], stops[i+1]
		if t >= a.t && t <= b.t {
			span := b.t - a.t
			var f float32
			if span > 0 {
				f = (t - a.t) / span
			}
			return RGBA{
				lerp(a.rgba.R, b.rgba.R, f),
				lerp(a.rgba.G, b.rgba.G, f),
				lerp(a.rgba.B, b.rgba.B, f),
				lerp(a.rgba.A, b.rgba.A, f),
			}
		}
	}
	return stops[last].rgba
}

func lerp(a, b, f float32) float32 { return a + (b-a)*f }
