// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package volume

import (
	"github.com/gviegas/voleon/engine/texture"
	"github.com/gviegas/voleon/engine/transfer"
	"github.com/gviegas/voleon/engine/voltex"
	"github.com/gviegas/voleon/engine/voxel"
)

// SubCube is SubPage's 3D-texture-path analogue: a single cached 3D
// texture covering a rectangular voxel sub-volume, used by the
// oblique-slice rendering path (the actual view-aligned polygon
// composition lives in engine/render, which clips a SubCube's world
// bounds against the current view direction; see engine/render's
// doc comments for why that split was made).
type SubCube struct {
	obj               *voltex.TextureObject
	ax, ay, az        int // actual (unpadded) texel coverage
	tx, ty, tz        int // allocated (padded) texture size
	sourceID          uint64
	tfID              uint64
	bk                voltex.BuildKey
	invisible         bool
	indexed           bool // built as a raw R8un index texture rather than baked RGBA8

	lastUse uint64
	swBytes int
	hwBytes int
}

// Texture returns the underlying 3D GPU texture, or nil once sc has
// been evicted.
func (sc *SubCube) Texture() *texture.Texture { return sc.obj.Texture() }

// TexCoordMax returns the normalized (u,v,w) texture coordinate of
// sc's far corner: the near corner is always (0,0,0).
func (sc *SubCube) TexCoordMax() (u, v, w float32) {
	return float32(sc.ax) / float32(sc.tx), float32(sc.ay) / float32(sc.ty), float32(sc.az) / float32(sc.tz)
}

// Invisible reports whether every texel of sc is fully transparent.
func (sc *SubCube) Invisible() bool { return sc.invisible }

// buildSubCube cuts the box region out of source by reading it one
// Z-slice at a time through source.SubSlice (axis Z), runs each
// sample through tf, and uploads the result as a 3D texture. This
// reuses the existing 2D-oriented Source contract instead of adding
// a 3D read method to it, since a sub-cube's data is always
// equivalent to a stack of Z-slices.
func buildSubCube(
	reg *voltex.Registry,
	ctx voltex.Context,
	sourceID uint64,
	source voxel.Source,
	box voxel.Box3,
	tile [3]int,
	tf *transfer.Func,
) (*SubCube, error) {
	_, dtype, _ := source.DataChar()
	ax, ay, az := box.Width(), box.Height(), box.Depth()
	sampleSize := dtype.SampleStride()

	slice2D := voxel.Box2{Umin: box.Xmin, Vmin: box.Ymin, Umax: box.Xmax, Vmax: box.Ymax}
	raw := make([]byte, ax*ay*sampleSize)

	bk := voltex.BuildKey{
		SourceID:   sourceID,
		Axis:       3, // 3 marks the 3D (sub-cube) path, distinct from 0-2 used by SubPage.
		SliceIdx:   box.Zmin,
		Box:        [6]int{box.Xmin, box.Ymin, box.Xmax, box.Ymax, box.Zmin, box.Zmax},
		PaletteKey: tf.ID(),
	}

	indexed := tf.Indexed()
	var allTransparent bool
	var obj *voltex.TextureObject
	var err error
	var hwBytes int

	if indexed {
		idx := make([]byte, tile[0]*tile[1]*tile[2])
		allTransparent = true
		for k := 0; k < az; k++ {
			if err := source.SubSlice(slice2D, box.Zmin+k, voxel.AxisZ, raw); err != nil {
				return nil, err
			}
			for j := 0; j < ay; j++ {
				for i := 0; i < ax; i++ {
					sample := readSample(raw, (j*ax+i)*sampleSize, dtype)
					v, zero := tf.Index(sample, dtype)
					if !zero {
						allTransparent = false
					}
					idx[(k*tile[1]+j)*tile[0]+i] = v
				}
			}
		}
		hwBytes = tile[0] * tile[1] * tile[2]
		obj, err = reg.GetOrBuild(ctx, bk, func() (*texture.Texture, int, int, error) {
			return voltex.Build3DIndexed(tile[0], tile[1], tile[2], idx)
		})
	} else {
		rgba := make([]byte, tile[0]*tile[1]*tile[2]*4)
		allTransparent = true
		for k := 0; k < az; k++ {
			if err := source.SubSlice(slice2D, box.Zmin+k, voxel.AxisZ, raw); err != nil {
				return nil, err
			}
			for j := 0; j < ay; j++ {
				for i := 0; i < ax; i++ {
					sample := readSample(raw, (j*ax+i)*sampleSize, dtype)
					c := tf.Transfer(sample, dtype)
					off := ((k*tile[1]+j)*tile[0] + i) * 4
					rgba[off+0] = toByte(c.R)
					rgba[off+1] = toByte(c.G)
					rgba[off+2] = toByte(c.B)
					rgba[off+3] = toByte(c.A)
					if c.A != 0 {
						allTransparent = false
					}
				}
			}
		}
		hwBytes = tile[0] * tile[1] * tile[2] * 4
		obj, err = reg.GetOrBuild(ctx, bk, func() (*texture.Texture, int, int, error) {
			return voltex.Build3D(tile[0], tile[1], tile[2], rgba)
		})
	}
	if err != nil {
		return nil, err
	}

	return &SubCube{
		obj:       obj,
		ax:        ax,
		ay:        ay,
		az:        az,
		tx:        tile[0],
		ty:        tile[1],
		tz:        tile[2],
		sourceID:  sourceID,
		tfID:      tf.ID(),
		bk:        bk,
		invisible: allTransparent,
		indexed:   indexed,
		swBytes:   ax * ay * az * sampleSize,
		hwBytes:   hwBytes,
	}, nil
}
