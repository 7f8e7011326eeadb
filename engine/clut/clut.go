// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package clut implements color look-up tables used to map voxel
// samples to RGBA color, and the set of predefined gradients that
// a transfer function may select instead of an explicit color map.
package clut

import "errors"

const prefix = "clut: "

// Errors.
var (
	ErrTooSmall = errors.New(prefix + "color map has too few entries")
	ErrBadType  = errors.New(prefix + "invalid color map type")
)

// Entries is the fixed table size: every CLUT has exactly 256 RGBA
// entries, indexed by an 8-bit (possibly shifted/offset) sample.
const Entries = 256

// RGBA is a single color-map entry, each channel in [0,1].
type RGBA struct{ R, G, B, A float32 }

// CLUT is a 256-entry RGBA color look-up table plus the opaque
// sample-value window outside of which samples are made fully
// transparent regardless of the table contents.
type CLUT struct {
	Table  [Entries]RGBA
	OpLo   uint8
	OpHi   uint8
}

// New creates a CLUT with every entry opaque white and an opaque
// window spanning the full [0,255] range.
func New() *CLUT {
	c := &CLUT{OpLo: 0, OpHi: 255}
	for i := range c.Table {
		c.Table[i] = RGBA{1, 1, 1, 1}
	}
	return c
}

// SetWindow sets the opaque sample-value window. Samples outside
// [lo,hi] are forced to fully transparent by Remap regardless of
// the table's alpha channel.
func (c *CLUT) SetWindow(lo, hi uint8) { c.OpLo, c.OpHi = lo, hi }

// Remap looks up the color for sample s, honoring the opaque window.
func (c *CLUT) Remap(s uint8) RGBA {
	if s < c.OpLo || s > c.OpHi {
		rgba := c.Table[s]
		rgba.A = 0
		return rgba
	}
	return c.Table[s]
}

// Load fills c's table from a flat channel-interleaved slice, whose
// component count per entry is given by nrcomponents:
//
//	1: ALPHA    -- each entry is a single alpha value; RGB stays white
//	2: LUM_ALPHA-- each entry is (luminance, alpha)
//	4: RGBA     -- each entry is (r, g, b, a)
//
// values are expected to be normalized floats in [0,1]. Load returns
// ErrBadType if nrcomponents is not one of 1, 2 or 4, and ErrTooSmall
// if values has fewer than Entries*nrcomponents elements (elements
// past that count are ignored).
func (c *CLUT) Load(values []float32, nrcomponents int) error {
	switch nrcomponents {
	case 1, 2, 4:
	default:
		return ErrBadType
	}
	if len(values) < Entries*nrcomponents {
		return ErrTooSmall
	}
	for i := 0; i < Entries; i++ {
		switch nrcomponents {
		case 1:
			c.Table[i] = RGBA{1, 1, 1, values[i]}
		case 2:
			l := values[i*2]
			c.Table[i] = RGBA{l, l, l, values[i*2+1]}
		case 4:
			off := i * 4
			c.Table[i] = RGBA{values[off], values[off+1], values[off+2], values[off+3]}
		}
	}
	return nil
}

// LoadPalette fills c's table from a palette of 2^bits entries (each
// an RGBA quadruplet of bytes in [0,255]), replicating entries so
// that the full 256-slot table is covered. It returns ErrTooSmall if
// palette does not contain exactly 2^bits entries.
func LoadPalette(c *CLUT, palette [][4]uint8, bits int) error {
	n := 1 << bits
	if len(palette) != n {
		return ErrTooSmall
	}
	rep := Entries / n
	if rep == 0 {
		rep = 1
	}
	for i := 0; i < n && i*rep < Entries; i++ {
		p := palette[i]
		rgba := RGBA{
			float32(p[0]) / 255,
			float32(p[1]) / 255,
			float32(p[2]) / 255,
			float32(p[3]) / 255,
		}
		for j := 0; j < rep && i*rep+j < Entries; j++ {
			c.Table[i*rep+j] = rgba
		}
	}
	return nil
}
