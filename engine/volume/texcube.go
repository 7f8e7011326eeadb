// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package volume

import (
	"github.com/gviegas/voleon/engine/transfer"
	"github.com/gviegas/voleon/engine/voltex"
	"github.com/gviegas/voleon/engine/voxel"
	"github.com/gviegas/voleon/linear"
)

// cubeEntry is cellEntry's 3D-path analogue, one link of a
// (ix,iy,iz) cell's singly-linked list keyed by transfer-function id.
type cubeEntry struct {
	tfID uint64
	cube *SubCube
	next *cubeEntry
}

// TexCube is the whole-volume tile grid for the 3D-texture path: it
// lazily builds and owns one SubCube per (ix, iy, iz, transfer
// function) combination, covering the entire source rather than a
// single slice.
type TexCube struct {
	tile       [3]int
	dx, dy, dz int
	nx, ny, nz int
	cells      []*cubeEntry // len == nx*ny*nz

	numTexels int
	numBytes  int
}

// NewTexCube creates the tile grid spanning the whole of source, at
// the given per-axis tile size. Each tile dimension must be valid (≥4,
// power of two), checked independently since a sub-cube's tx/ty/tz
// need not be equal.
func NewTexCube(source voxel.Source, tile [3]int) (*TexCube, error) {
	for _, t := range tile {
		if !(TileSize{U: t, V: t}).valid() {
			return nil, ErrBadParameter
		}
	}
	_, _, dims := source.DataChar()
	dx, dy, dz := dims[0], dims[1], dims[2]
	return &TexCube{
		tile:  tile,
		dx:    dx,
		dy:    dy,
		dz:    dz,
		nx:    ceilDiv(dx, tile[0]),
		ny:    ceilDiv(dy, tile[1]),
		nz:    ceilDiv(dz, tile[2]),
		cells: make([]*cubeEntry, ceilDiv(dx, tile[0])*ceilDiv(dy, tile[1])*ceilDiv(dz, tile[2])),
	}, nil
}

// Dims returns the tile grid's (nx,ny,nz) extent.
func (tc *TexCube) Dims() (nx, ny, nz int) { return tc.nx, tc.ny, tc.nz }

// NumTexels returns the total texel footprint of every SubCube
// currently built in tc.
func (tc *TexCube) NumTexels() int { return tc.numTexels }

// NumBytes returns the total GPU-texture byte footprint of every
// SubCube currently built in tc.
func (tc *TexCube) NumBytes() int { return tc.numBytes }

// NumCubes returns the number of SubCubes currently built across
// every cell, counting every transfer function coexisting in a given
// cell.
func (tc *TexCube) NumCubes() int {
	n := 0
	for _, e := range tc.cells {
		for ; e != nil; e = e.next {
			n++
		}
	}
	return n
}

func (tc *TexCube) index(ix, iy, iz int) int {
	return (iz*tc.ny+iy)*tc.nx + ix
}

func (tc *TexCube) box(ix, iy, iz int) voxel.Box3 {
	xmin, ymin, zmin := ix*tc.tile[0], iy*tc.tile[1], iz*tc.tile[2]
	xmax, ymax, zmax := xmin+tc.tile[0], ymin+tc.tile[1], zmin+tc.tile[2]
	if xmax > tc.dx {
		xmax = tc.dx
	}
	if ymax > tc.dy {
		ymax = tc.dy
	}
	if zmax > tc.dz {
		zmax = tc.dz
	}
	return voxel.Box3{Xmin: xmin, Ymin: ymin, Zmin: zmin, Xmax: xmax, Ymax: ymax, Zmax: zmax}
}

// getOrBuild returns the SubCube for (ix,iy,iz) under tf, building it
// (and evicting any stale entry for the same tf id but a different
// source id) if necessary. Mirrors TexPage.getOrBuild's Absent→Built/
// Dirty transitions for the 3D path.
func (tc *TexCube) getOrBuild(
	reg *voltex.Registry,
	ctx voltex.Context,
	sourceID uint64,
	source voxel.Source,
	ix, iy, iz int,
	tf *transfer.Func,
) (*SubCube, error) {
	idx := tc.index(ix, iy, iz)
	var prev *cubeEntry
	for e := tc.cells[idx]; e != nil; e = e.next {
		if e.tfID == tf.ID() {
			if e.cube.sourceID == sourceID {
				return e.cube, nil
			}
			tc.releaseEntry(reg, ctx, e)
			if prev == nil {
				tc.cells[idx] = e.next
			} else {
				prev.next = e.next
			}
			break
		}
		prev = e
	}

	box := tc.box(ix, iy, iz)
	cube, err := buildSubCube(reg, ctx, sourceID, source, box, tc.tile, tf)
	if err != nil {
		return nil, err
	}
	tc.numTexels += cube.tx * cube.ty * cube.tz
	tc.numBytes += cube.hwBytes
	tc.cells[idx] = &cubeEntry{tfID: tf.ID(), cube: cube, next: tc.cells[idx]}
	return cube, nil
}

// releaseEntry destroys the GPU texture behind e and removes it from
// tc's running totals. The caller is responsible for unlinking e from
// its cell's list.
func (tc *TexCube) releaseEntry(reg *voltex.Registry, ctx voltex.Context, e *cubeEntry) {
	tc.numTexels -= e.cube.tx * e.cube.ty * e.cube.tz
	tc.numBytes -= e.cube.hwBytes
	reg.Evict(ctx, e.cube.bk)
}

// SetPalette drops every SubCube baked against tf that isn't an index
// texture, mirroring TexPage.SetPalette for the 3D path.
func (tc *TexCube) SetPalette(reg *voltex.Registry, ctx voltex.Context, tf *transfer.Func) {
	id := tf.ID()
	for i, e := range tc.cells {
		var head, tail *cubeEntry
		for e != nil {
			next := e.next
			if e.tfID == id && !e.cube.indexed {
				tc.releaseEntry(reg, ctx, e)
			} else {
				e.next = nil
				if head == nil {
					head = e
					tail = e
				} else {
					tail.next = e
					tail = e
				}
			}
			e = next
		}
		tc.cells[i] = head
	}
}

// CubeRenderAction is invoked once per touched, non-invisible SubCube
// during TexCube.Render, receiving the cube and the eight world-space
// corners of its box. The actual view-frustum polygon clipping that
// turns a SubCube into a set of view-aligned textured slices is
// performed by engine/render, which calls Render to obtain the boxes
// to clip against the current view direction.
type CubeRenderAction func(cube *SubCube, corners [8]linear.V3)

// Render walks tc's grid, getting or building the SubCube for each
// cell under tf, and invokes action for every cube that isn't
// Invisible. origin is the world-space position of the volume's
// (0,0,0) corner; xSpan/ySpan/zSpan are the full volume's world-space
// axis extents.
func (tc *TexCube) Render(
	reg *voltex.Registry,
	ctx voltex.Context,
	sourceID uint64,
	source voxel.Source,
	tf *transfer.Func,
	origin, xSpan, ySpan, zSpan linear.V3,
	tick uint64,
	action CubeRenderAction,
) error {
	var subX, subY, subZ linear.V3
	subX.Scale(float32(tc.tile[0])/float32(tc.dx), &xSpan)
	subY.Scale(float32(tc.tile[1])/float32(tc.dy), &ySpan)
	subZ.Scale(float32(tc.tile[2])/float32(tc.dz), &zSpan)

	for iz := 0; iz < tc.nz; iz++ {
		for iy := 0; iy < tc.ny; iy++ {
			for ix := 0; ix < tc.nx; ix++ {
				cube, err := tc.getOrBuild(reg, ctx, sourceID, source, ix, iy, iz, tf)
				if err != nil {
					continue
				}
				cube.lastUse = tick
				if cube.invisible {
					continue
				}
				if action == nil {
					continue
				}

				var colX, rowY, depZ, near linear.V3
				colX.Scale(float32(ix), &subX)
				rowY.Scale(float32(iy), &subY)
				depZ.Scale(float32(iz), &subZ)
				near.Add(&origin, &colX)
				near.Add(&near, &rowY)
				near.Add(&near, &depZ)

				var dx, dy, dz linear.V3
				corners := [8]linear.V3{}
				for i := 0; i < 8; i++ {
					c := near
					if i&1 != 0 {
						dx.Add(&c, &subX)
						c = dx
					}
					if i&2 != 0 {
						dy.Add(&c, &subY)
						c = dy
					}
					if i&4 != 0 {
						dz.Add(&c, &subZ)
						c = dz
					}
					corners[i] = c
				}
				action(cube, corners)
			}
		}
	}
	return nil
}
