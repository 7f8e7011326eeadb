// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package volume

import (
	"github.com/gviegas/voleon/engine/clut"
	"github.com/gviegas/voleon/engine/texture"
	"github.com/gviegas/voleon/engine/transfer"
	"github.com/gviegas/voleon/engine/voltex"
	"github.com/gviegas/voleon/engine/voxel"
)

// SubPage is a single rendered tile: a textured quad backed by a
// voltex.TextureObject covering a rectangular voxel sub-region of
// one slice.
type SubPage struct {
	obj       *voltex.TextureObject
	au, av    int // actual (unpadded) texel coverage
	tu, tv    int // allocated (padded) texture size
	sourceID  uint64
	tfID      uint64
	bk        voltex.BuildKey
	invisible bool
	indexed   bool // built as a raw R8un index texture rather than baked RGBA8

	lastUse uint64
	swBytes int
	hwBytes int
}

// Texture returns the underlying GPU texture, or nil once p has been
// evicted.
func (p *SubPage) Texture() *texture.Texture { return p.obj.Texture() }

// TexCoordMax returns the normalized (u,v) texture coordinate of
// p's bottom-right corner, i.e. (au/tu, av/tv): the top-left is
// always (0,0), per spec §4.4.
func (p *SubPage) TexCoordMax() (u, v float32) {
	return float32(p.au) / float32(p.tu), float32(p.av) / float32(p.tv)
}

// Invisible reports whether every texel of p is fully transparent,
// per spec.md §4.1's transfer() contract: the caller may then skip
// drawing p entirely.
func (p *SubPage) Invisible() bool { return p.invisible }

// SourceID returns the identity of the voxel.Source p was built
// from.
func (p *SubPage) SourceID() uint64 { return p.sourceID }

// TransferID returns the identity of the transfer.Func p was built
// with.
func (p *SubPage) TransferID() uint64 { return p.tfID }

// buildSubPage cuts the (axis, sliceIdx, box) region out of source,
// runs it through tf, and returns a cached (interned) SubPage for
// the given context/registry. box's extent may be smaller than
// tile in the boundary case; the unused texels are cleared to
// transparent black before upload, per spec §4.3.
func buildSubPage(
	reg *voltex.Registry,
	ctx voltex.Context,
	sourceID uint64,
	source voxel.Source,
	axis voxel.Axis,
	sliceIdx int,
	box voxel.Box2,
	tile TileSize,
	tf *transfer.Func,
) (*SubPage, error) {
	_, dtype, _ := source.DataChar()
	au, av := box.Width(), box.Height()

	sampleSize := dtype.SampleStride()
	raw := make([]byte, au*av*sampleSize)
	if err := source.SubSlice(box, sliceIdx, axis, raw); err != nil {
		return nil, err
	}

	bk := voltex.BuildKey{
		SourceID:   sourceID,
		Axis:       int(axis),
		SliceIdx:   sliceIdx,
		Box:        [6]int{box.Umin, box.Vmin, box.Umax, box.Vmax, 0, 0},
		PaletteKey: tf.ID(),
	}

	indexed := tf.Indexed()
	var allTransparent bool
	var obj *voltex.TextureObject
	var err error
	var hwBytes int

	if indexed {
		idx := make([]byte, tile.U*tile.V)
		allTransparent = true
		for j := 0; j < av; j++ {
			for i := 0; i < au; i++ {
				sample := readSample(raw, (j*au+i)*sampleSize, dtype)
				v, zero := tf.Index(sample, dtype)
				if !zero {
					allTransparent = false
				}
				idx[j*tile.U+i] = v
			}
		}
		hwBytes = tile.U * tile.V
		obj, err = reg.GetOrBuild(ctx, bk, func() (*texture.Texture, int, int, error) {
			return voltex.Build2DIndexed(tile.U, tile.V, idx)
		})
	} else {
		rgba := make([]byte, tile.U*tile.V*4)
		allTransparent = true
		for j := 0; j < av; j++ {
			for i := 0; i < au; i++ {
				sample := readSample(raw, (j*au+i)*sampleSize, dtype)
				c := tf.Transfer(sample, dtype)
				off := (j*tile.U + i) * 4
				rgba[off+0] = toByte(c.R)
				rgba[off+1] = toByte(c.G)
				rgba[off+2] = toByte(c.B)
				rgba[off+3] = toByte(c.A)
				if c.A != 0 {
					allTransparent = false
				}
			}
		}
		hwBytes = tile.U * tile.V * 4
		obj, err = reg.GetOrBuild(ctx, bk, func() (*texture.Texture, int, int, error) {
			return voltex.Build2D(tile.U, tile.V, rgba)
		})
	}
	if err != nil {
		return nil, err
	}

	return &SubPage{
		obj:       obj,
		au:        au,
		av:        av,
		tu:        tile.U,
		tv:        tile.V,
		sourceID:  sourceID,
		tfID:      tf.ID(),
		bk:        bk,
		invisible: allTransparent,
		indexed:   indexed,
		swBytes:   au * av * sampleSize,
		hwBytes:   hwBytes,
	}, nil
}

// readSample reads one already-unpacked sample at byte offset off in
// raw. U1/U2/U4 samples arrive through Source.SubSlice pre-unpacked
// to a single byte (see voxel.DataType.SampleStride), so they're read
// exactly like U8; U16Idx is a plain 16-bit value, read like U16.
func readSample(raw []byte, off int, dtype voxel.DataType) uint32 {
	switch dtype {
	case voxel.U8, voxel.U1, voxel.U2, voxel.U4:
		return uint32(raw[off])
	case voxel.U16, voxel.U16Idx:
		return uint32(raw[off]) | uint32(raw[off+1])<<8
	case voxel.RGBA8:
		return uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24
	default:
		return 0
	}
}

func toByte(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f*255 + 0.5)
}

// RGBA is re-exported for convenience so callers of this package
// don't need to import engine/clut just to read a SubPage's color.
type RGBA = clut.RGBA
