// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package transfer implements transfer functions: the mapping from
// raw voxel samples to an 8-bit index into a clut.CLUT, plus the
// sample pre-processing (shift/offset, U16 quantization) applied
// before that lookup.
package transfer

import (
	"errors"

	"github.com/gviegas/voleon/engine/clut"
	"github.com/gviegas/voleon/engine/voxel"
)

const prefix = "transfer: "

// Errors.
var (
	ErrColorMapTooSmall    = errors.New(prefix + "color map has too few entries")
	ErrInvalidColorMapType = errors.New(prefix + "invalid color map type")
	ErrNotIndexed          = errors.New(prefix + "function was not built from a palette")
)

// ColorMapType identifies the channel layout of an explicit color
// map, mirroring clut.CLUT.Load's nrcomponents parameter.
type ColorMapType int

// Color map types.
const (
	Alpha ColorMapType = 1 << iota
	LumAlpha
	RGBA
)

func (t ColorMapType) components() int {
	switch t {
	case Alpha:
		return 1
	case LumAlpha:
		return 2
	case RGBA:
		return 4
	default:
		return 0
	}
}

// AlphaPolicy governs how a mapped sample's alpha channel is
// post-processed, independent of the color map contents.
type AlphaPolicy int

// Alpha policies.
const (
	// AlphaAsIs uses the color map's alpha unmodified.
	AlphaAsIs AlphaPolicy = iota
	// AlphaOpaque forces alpha to 1 for every in-window sample.
	AlphaOpaque
	// AlphaBinary forces alpha to either 0 or 1, thresholding the
	// color map's alpha at 0.5.
	AlphaBinary
)

// U16Policy governs how 16-bit samples are brought into the 8-bit
// domain that CLUTs are indexed by.
type U16Policy int

const (
	// U16Quantize scales the 16-bit sample down to 8 bits (s>>8)
	// and reuses the 8-bit transfer path. This is the default: it
	// matches how most datasets are authored and keeps a single
	// 256-entry table for every bit depth.
	U16Quantize U16Policy = iota
	// U16RawDebug skips quantization and uses the low 8 bits of the
	// sample directly, which is useful only for inspecting raw
	// 16-bit data during debugging; production transfer functions
	// should use U16Quantize.
	U16RawDebug
)

// Func is a transfer function: it converts a raw voxel sample into
// an RGBA color by applying a shift/offset, clamping against an
// opaque threshold window, and looking up the result in a CLUT.
type Func struct {
	clut *clut.CLUT

	// Shift and Offset are applied to every incoming sample before
	// clamping/lookup: s' = (s << Shift) + Offset.
	Shift  uint
	Offset int

	// U16 governs how 16-bit samples are reduced to the CLUT's
	// 8-bit domain.
	U16 U16Policy

	// Alpha post-processes the looked-up color's alpha channel.
	Alpha AlphaPolicy

	// id is an opaque identity used by engine/voltex to key cached
	// textures built with this function; it changes whenever the
	// function's mapping changes (see touch).
	id uint64

	// indexed and paletteBits record that this function was built
	// from an explicit palette (see NewFromPalette): engine/volume
	// uses Indexed to decide whether a sub-page/sub-cube's samples
	// can be uploaded as a raw index texture instead of being baked
	// to RGBA through the CLUT.
	indexed     bool
	paletteBits int
}

var nextID uint64

func newID() uint64 {
	nextID++
	return nextID
}

// New creates a transfer function using the given predefined
// gradient as its color map.
func New(g clut.Gradient) *Func {
	return &Func{clut: clut.NewGradient(g), id: newID()}
}

// NewFromColorMap creates a transfer function using an explicit
// color map, as described by clut.CLUT.Load.
func NewFromColorMap(values []float32, t ColorMapType) (*Func, error) {
	n := t.components()
	if n == 0 {
		return nil, ErrInvalidColorMapType
	}
	c := clut.New()
	if err := c.Load(values, n); err != nil {
		if err == clut.ErrTooSmall {
			return nil, ErrColorMapTooSmall
		}
		return nil, err
	}
	return &Func{clut: c, id: newID()}, nil
}

// NewFromPalette creates a transfer function from an explicit
// indexed palette of 2^bits RGBA entries (for U1, U2, U4 or U16Idx
// voxel sources), per clut.LoadPalette. The sample shift is set to
// 8-bits so that a direct, unshifted sample index still lands on the
// right replicated band of the CLUT's 256-entry table.
func NewFromPalette(palette [][4]uint8, bits int) (*Func, error) {
	c := clut.New()
	if err := clut.LoadPalette(c, palette, bits); err != nil {
		if err == clut.ErrTooSmall {
			return nil, ErrColorMapTooSmall
		}
		return nil, err
	}
	var shift uint
	if bits < 8 {
		shift = uint(8 - bits)
	}
	return &Func{clut: c, Shift: shift, id: newID(), indexed: true, paletteBits: bits}, nil
}

// Indexed reports whether f was built by NewFromPalette.
func (f *Func) Indexed() bool { return f.indexed }

// SetPaletteRaw replaces an indexed function's palette contents in
// place, without changing f.ID(). This lets engine/volume keep a
// built index texture resident (its identity is keyed on f.ID()) and
// have the draw path pick up the new colors from the small palette
// binding alone, instead of rebuilding the whole texture. It returns
// ErrNotIndexed if f was not built from a palette.
func (f *Func) SetPaletteRaw(palette [][4]uint8) error {
	if !f.indexed {
		return ErrNotIndexed
	}
	if err := clut.LoadPalette(f.clut, palette, f.paletteBits); err != nil {
		if err == clut.ErrTooSmall {
			return ErrColorMapTooSmall
		}
		return err
	}
	return nil
}

// ID returns the function's current identity, which changes every
// time a mutating method (SetWindow, SetShiftOffset, SetAlphaPolicy)
// is called. Callers that cache results keyed on a transfer function
// use this to detect that a cached result is stale.
func (f *Func) ID() uint64 { return f.id }

func (f *Func) touch() { f.id = newID() }

// SetWindow sets the opaque sample window (in the CLUT's 8-bit
// domain, i.e. after shift/offset/quantization).
func (f *Func) SetWindow(lo, hi uint8) {
	f.clut.SetWindow(lo, hi)
	f.touch()
}

// SetShiftOffset sets the pre-lookup shift/offset applied to every
// sample: s' = (s << shift) + offset.
func (f *Func) SetShiftOffset(shift uint, offset int) {
	f.Shift, f.Offset = shift, offset
	f.touch()
}

// SetAlphaPolicy sets the post-lookup alpha policy.
func (f *Func) SetAlphaPolicy(p AlphaPolicy) {
	f.Alpha = p
	f.touch()
}

// Transfer maps a single raw sample of the given type to an RGBA
// color. For voxel.U16 samples, f.U16 selects whether the sample is
// quantized to 8 bits first (the default) or used directly (debug
// only). voxel.RGBA8 samples bypass the CLUT entirely: the sample's
// four bytes are interpreted directly as premultiplied RGBA.
func (f *Func) Transfer(sample uint32, dtype voxel.DataType) clut.RGBA {
	if dtype == voxel.RGBA8 {
		return rgba8ToColor(sample)
	}

	idx, zero := f.Index(sample, dtype)
	if zero {
		return clut.RGBA{}
	}

	rgba := f.clut.Remap(idx)
	return applyAlphaPolicy(rgba, f.Alpha)
}

// Index runs sample through the same shift/offset/quantization steps
// as Transfer, stopping short of the CLUT lookup, and returns the
// resulting 8-bit CLUT index. zero reports whether the pre-shift
// sample was exactly 0, in which case Transfer renders it fully
// transparent and idx is meaningless; it panics for voxel.RGBA8,
// which has no index domain. engine/volume calls this to build a
// raw index texture for an indexed Func (see Indexed), so that a
// palette texture's content can match what Transfer would have baked
// without re-running the CLUT lookup per texel.
func (f *Func) Index(sample uint32, dtype voxel.DataType) (idx uint8, zero bool) {
	if dtype == voxel.RGBA8 {
		panic("transfer: Index called with voxel.RGBA8")
	}

	var s8 uint8
	switch dtype {
	case voxel.U16:
		if f.U16 == U16RawDebug {
			s8 = uint8(sample)
		} else {
			s8 = uint8(sample >> 8)
		}
	default:
		s8 = uint8(sample)
	}

	if s8 == 0 {
		return 0, true
	}

	shifted := uint32(s8) << f.Shift
	signed := int64(shifted) + int64(f.Offset)
	switch {
	case signed < 0:
		idx = 0
	case signed > 255:
		idx = 255
	default:
		idx = uint8(signed)
	}
	return idx, false
}

func applyAlphaPolicy(c clut.RGBA, p AlphaPolicy) clut.RGBA {
	switch p {
	case AlphaOpaque:
		if c.A != 0 {
			c.A = 1
		}
	case AlphaBinary:
		if c.A >= 0.5 {
			c.A = 1
		} else {
			c.A = 0
		}
	}
	return c
}

func rgba8ToColor(sample uint32) clut.RGBA {
	r := float32(sample&0xff) / 255
	g := float32((sample>>8)&0xff) / 255
	b := float32((sample>>16)&0xff) / 255
	a := float32((sample>>24)&0xff) / 255
	return clut.RGBA{R: r, G: g, B: b, A: a}
}
