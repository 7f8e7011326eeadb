// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package voxel implements the volume data model: the external
// voxel-source contract and the sample types a Source can produce,
// including the sub-byte/indexed formats that engine/volume cuts
// into 2D sub-pages and 3D sub-cubes.
package voxel

import (
	"errors"
)

const prefix = "voxel: "

// Axis identifies one of the three volume axes.
type Axis int

// Axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String implements fmt.Stringer.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "AxisX"
	case AxisY:
		return "AxisY"
	case AxisZ:
		return "AxisZ"
	default:
		return "Axis(?)"
	}
}

// DataType identifies the format of the samples a Source produces.
type DataType int

// Data types.
// U1, U2, U4 and U16Idx are sub-byte/indexed formats that must be
// unpacked before use; U8, U16 and RGBA8 are byte-addressable.
const (
	U1 DataType = iota
	U2
	U4
	U8
	U16
	U16Idx
	RGBA8
)

// Bits returns the number of bits per sample of d.
func (d DataType) Bits() int {
	switch d {
	case U1:
		return 1
	case U2:
		return 2
	case U4:
		return 4
	case U8:
		return 8
	case U16, U16Idx:
		return 16
	case RGBA8:
		return 32
	default:
		panic("voxel: undefined DataType value")
	}
}

// Size returns the number of bytes needed to store a single sample
// of d when samples are byte-addressable (U8, U16, RGBA8).
// It panics for sub-byte formats, which are addressed in bits
// rather than bytes (see Unpack and SampleStride).
func (d DataType) Size() int {
	switch d {
	case U8:
		return 1
	case U16, U16Idx:
		return 2
	case RGBA8:
		return 4
	default:
		panic("voxel: DataType.Size called on a sub-byte format")
	}
}

// SampleStride returns the number of bytes one sample of d occupies
// once unpacked: Size() for byte-addressable formats, and 1 for
// sub-byte formats, which Unpack always expands to a single byte.
// Source.SubSlice callers use this (not Size) to size their output
// buffer, since SubSlice itself performs the unpacking.
func (d DataType) SampleStride() int {
	if d.packed() {
		return 1
	}
	return d.Size()
}

// packed reports whether d packs multiple samples per byte.
func (d DataType) packed() bool {
	switch d {
	case U1, U2, U4:
		return true
	default:
		return false
	}
}

// Unpack extracts the sampleIdx-th sample (0-indexed, across the
// whole flat raw stream) of a sub-byte format from raw, where each
// byte holds 8/d.Bits() consecutive samples packed least-significant
// bit first. It panics if d is not a sub-byte format; callers should
// guard with d.packed() or go through Source.SubSlice instead, which
// already does so.
func (d DataType) Unpack(raw []byte, sampleIdx int) byte {
	bits := d.Bits()
	perByte := 8 / bits
	byteIdx := sampleIdx / perByte
	shift := uint(sampleIdx%perByte) * uint(bits)
	mask := byte(1<<uint(bits) - 1)
	return (raw[byteIdx] >> shift) & mask
}

// BBox is an axis-aligned world-space bounding box.
type BBox struct{ Min, Max [3]float32 }

// Box2 is an axis-aligned 2D integer box, inclusive of Min and
// exclusive of Max (i.e., [Umin,Umax) x [Vmin,Vmax)).
type Box2 struct{ Umin, Vmin, Umax, Vmax int }

// Width returns b's extent along u.
func (b Box2) Width() int { return b.Umax - b.Umin }

// Height returns b's extent along v.
func (b Box2) Height() int { return b.Vmax - b.Vmin }

// Box3 is an axis-aligned 3D integer box, exclusive of Max.
type Box3 struct{ Xmin, Ymin, Zmin, Xmax, Ymax, Zmax int }

// Width returns b's extent along x.
func (b Box3) Width() int { return b.Xmax - b.Xmin }

// Height returns b's extent along y.
func (b Box3) Height() int { return b.Ymax - b.Ymin }

// Depth returns b's extent along z.
func (b Box3) Depth() int { return b.Zmax - b.Zmin }

// Errors.
var (
	ErrOutOfBounds  = errors.New(prefix + "sub-region exceeds volume bounds")
	ErrUnsupported  = errors.New(prefix + "unsupported sample type")
	ErrBadParameter = errors.New(prefix + "invalid parameter")
)

// Source is the external contract that a volume reader must satisfy.
// Implementations own (or are responsible for) their own I/O; this
// package never reads from disk itself.
type Source interface {
	// DataChar returns the world-space bounding box, the sample
	// type and the dimensions (in voxels) of the volume.
	DataChar() (bbox BBox, dtype DataType, dims [3]int)

	// SubSlice fills out with the samples of the 2D region box of
	// the slice at sliceIdx along axis, in row-major (u,v) order.
	// out must be at least box.Width()*box.Height()*dtype.Size()
	// bytes for byte-addressable types (the caller is responsible
	// for sizing it correctly for sub-byte formats).
	SubSlice(box Box2, sliceIdx int, axis Axis, out []byte) error

	// FileSize returns the size, in bytes, of the underlying data
	// store, or an error if unavailable.
	FileSize() (int64, error)
}

// MemSource is an in-memory Source backed by a flat byte buffer laid
// out as sample[x + y*Dx + z*Dx*Dy].
// It is a convenience implementation for tests and for embedding
// volumes that are already resident in memory; it does not perform
// any file I/O.
type MemSource struct {
	bbox  BBox
	Dtype DataType
	Dims  [3]int
	Data  []byte
}

// NewMemSource creates a MemSource over data, which must already be
// laid out as sample[x + y*Dx + z*Dx*Dy] for the given DataType.
func NewMemSource(bbox BBox, dtype DataType, dims [3]int, data []byte) *MemSource {
	return &MemSource{bbox, dtype, dims, data}
}

// DataChar implements Source.
func (m *MemSource) DataChar() (BBox, DataType, [3]int) { return m.bbox, m.Dtype, m.Dims }

// FileSize implements Source.
// MemSource has no backing file, so it always returns 0.
func (m *MemSource) FileSize() (int64, error) { return 0, nil }

// SubSlice implements Source. For a sub-byte DataType (U1, U2, U4),
// m.Data is treated as a flat, least-significant-bit-first bitstream
// over the volume's sample[x + y*Dx + z*Dx*Dy] ordering, and each
// sample is unpacked to a single output byte (see DataType.Unpack);
// out must be sized per DataType.SampleStride, not Size.
func (m *MemSource) SubSlice(box Box2, sliceIdx int, axis Axis, out []byte) error {
	packed := m.Dtype.packed()
	stride := m.Dtype.SampleStride()
	var perByte int
	if packed {
		perByte = 8 / m.Dtype.Bits()
	}
	dx, dy, dz := m.Dims[0], m.Dims[1], m.Dims[2]
	var dAxis int
	switch axis {
	case AxisX:
		dAxis = dx
	case AxisY:
		dAxis = dy
	case AxisZ:
		dAxis = dz
	default:
		return ErrBadParameter
	}
	if sliceIdx < 0 || sliceIdx >= dAxis {
		return ErrOutOfBounds
	}
	if box.Umin < 0 || box.Vmin < 0 {
		return ErrOutOfBounds
	}
	w, h := box.Width(), box.Height()
	if len(out) < w*h*stride {
		return ErrBadParameter
	}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			x, y, z, err := sampleCoord(axis, sliceIdx, box.Umin+i, box.Vmin+j)
			if err != nil {
				return err
			}
			if x < 0 || x >= dx || y < 0 || y >= dy || z < 0 || z >= dz {
				return ErrOutOfBounds
			}
			sampleIdx := x + y*dx + z*dx*dy
			dst := out[(j*w+i)*stride : (j*w+i)*stride+stride]
			if packed {
				byteIdx := sampleIdx / perByte
				if byteIdx < 0 || byteIdx >= len(m.Data) {
					return ErrOutOfBounds
				}
				dst[0] = m.Dtype.Unpack(m.Data, sampleIdx)
				continue
			}
			off := sampleIdx * stride
			if off < 0 || off+stride > len(m.Data) {
				return ErrOutOfBounds
			}
			copy(dst, m.Data[off:off+stride])
		}
	}
	return nil
}

// sampleCoord maps an (axis, sliceIdx, u, v) slice coordinate to the
// (x, y, z) coordinate in the source volume, per spec.md §4.1:
//
//	X-axis slice → (u,v) = (z,y)
//	Y-axis slice → (u,v) = (x,z)
//	Z-axis slice → (u,v) = (x,y)
func sampleCoord(axis Axis, sliceIdx, u, v int) (x, y, z int, err error) {
	switch axis {
	case AxisX:
		return sliceIdx, v, u, nil
	case AxisY:
		return u, sliceIdx, v, nil
	case AxisZ:
		return u, v, sliceIdx, nil
	default:
		return 0, 0, 0, ErrBadParameter
	}
}
