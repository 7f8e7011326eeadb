// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package volume

import (
	"github.com/gviegas/voleon/engine/transfer"
	"github.com/gviegas/voleon/engine/voltex"
	"github.com/gviegas/voleon/engine/voxel"
	"github.com/gviegas/voleon/linear"
)

// cellEntry is one link of a (row,col) cell's singly-linked list,
// keyed by transfer-function id, per spec.md §3's "Cached slice page
// entry".
type cellEntry struct {
	tfID uint64
	page *SubPage
	next *cellEntry
}

// TexPage is the per-slice tile grid for the 2D-texture path: it
// lazily builds and owns one SubPage per (row, col, transfer
// function) combination.
type TexPage struct {
	axis     voxel.Axis
	sliceIdx int
	tile     TileSize
	du, dv   int
	nrows    int
	ncols    int
	cells    []*cellEntry // len == nrows*ncols

	numTexels int
	numBytes  int
}

// NewTexPage creates the tile grid for one slice of source along
// axis, at sliceIdx, using the given tile size. du/dv are the
// slice's full in-plane extent, taken from source's dimensions.
func NewTexPage(source voxel.Source, axis voxel.Axis, sliceIdx int, tile TileSize) (*TexPage, error) {
	if !tile.valid() {
		return nil, ErrBadParameter
	}
	_, _, dims := source.DataChar()
	du, dv, err := sliceExtent(dims, axis)
	if err != nil {
		return nil, err
	}
	if sliceIdx < 0 || sliceIdx >= axisExtent(dims, axis) {
		return nil, ErrOutOfBounds
	}
	nrows := ceilDiv(dv, tile.V)
	ncols := ceilDiv(du, tile.U)
	return &TexPage{
		axis:     axis,
		sliceIdx: sliceIdx,
		tile:     tile,
		du:       du,
		dv:       dv,
		nrows:    nrows,
		ncols:    ncols,
		cells:    make([]*cellEntry, nrows*ncols),
	}, nil
}

func sliceExtent(dims [3]int, axis voxel.Axis) (du, dv int, err error) {
	switch axis {
	case voxel.AxisX:
		return dims[2], dims[1], nil
	case voxel.AxisY:
		return dims[0], dims[2], nil
	case voxel.AxisZ:
		return dims[0], dims[1], nil
	default:
		return 0, 0, ErrBadParameter
	}
}

func axisExtent(dims [3]int, axis voxel.Axis) int {
	switch axis {
	case voxel.AxisX:
		return dims[0]
	case voxel.AxisY:
		return dims[1]
	case voxel.AxisZ:
		return dims[2]
	default:
		return 0
	}
}

// Rows returns the number of tile rows.
func (tp *TexPage) Rows() int { return tp.nrows }

// Cols returns the number of tile columns.
func (tp *TexPage) Cols() int { return tp.ncols }

// NumTexels returns the total texel footprint of every SubPage
// currently built in tp.
func (tp *TexPage) NumTexels() int { return tp.numTexels }

// NumBytes returns the total GPU-texture byte footprint of every
// SubPage currently built in tp.
func (tp *TexPage) NumBytes() int { return tp.numBytes }

// NumPages returns the number of SubPages currently built across
// every cell, counting every transfer function coexisting in a
// given cell.
func (tp *TexPage) NumPages() int {
	n := 0
	for _, e := range tp.cells {
		for ; e != nil; e = e.next {
			n++
		}
	}
	return n
}

func (tp *TexPage) box(row, col int) voxel.Box2 {
	umin := col * tp.tile.U
	vmin := row * tp.tile.V
	umax := umin + tp.tile.U
	if umax > tp.du {
		umax = tp.du
	}
	vmax := vmin + tp.tile.V
	if vmax > tp.dv {
		vmax = tp.dv
	}
	return voxel.Box2{Umin: umin, Vmin: vmin, Umax: umax, Vmax: vmax}
}

// getOrBuild returns the SubPage for (row,col) under tf, building it
// (and evicting any stale entry for the same tf id but a different
// source id) if necessary. This realizes spec §4.5's get_or_build
// and the Absent→Built/Dirty transitions of §4.7.
func (tp *TexPage) getOrBuild(
	reg *voltex.Registry,
	ctx voltex.Context,
	sourceID uint64,
	source voxel.Source,
	row, col int,
	tf *transfer.Func,
) (*SubPage, error) {
	idx := row*tp.ncols + col
	var prev *cellEntry
	for e := tp.cells[idx]; e != nil; e = e.next {
		if e.tfID == tf.ID() {
			if e.page.sourceID == sourceID {
				return e.page, nil
			}
			// Dirty: source identity changed underneath this
			// transfer function id. Release and rebuild.
			tp.releaseEntry(reg, ctx, e)
			if prev == nil {
				tp.cells[idx] = e.next
			} else {
				prev.next = e.next
			}
			break
		}
		prev = e
	}

	box := tp.box(row, col)
	page, err := buildSubPage(reg, ctx, sourceID, source, tp.axis, tp.sliceIdx, box, tp.tile, tf)
	if err != nil {
		return nil, err
	}
	tp.numTexels += page.tu * page.tv
	tp.numBytes += page.hwBytes
	tp.cells[idx] = &cellEntry{tfID: tf.ID(), page: page, next: tp.cells[idx]}
	return page, nil
}

// releaseEntry destroys the GPU texture behind e and removes it from
// tp's running totals. The caller is responsible for unlinking e
// from its cell's list.
func (tp *TexPage) releaseEntry(reg *voltex.Registry, ctx voltex.Context, e *cellEntry) {
	tp.numTexels -= e.page.tu * e.page.tv
	tp.numBytes -= e.page.hwBytes
	reg.Evict(ctx, e.page.bk)
}

// SetPalette drops every SubPage baked against tf that isn't an
// index texture: a baked SubPage's RGBA8 texels were produced by
// running every sample through tf's CLUT at build time, so they go
// stale the moment tf's color map changes underneath them. An indexed
// SubPage holds raw sample indices instead (see SubPage.indexed /
// transfer.Func.Indexed), so it is left in place — tf's new palette
// applies to it automatically through the binding used at draw time,
// without rebuilding the texture. Entries belonging to a different
// transfer function are untouched either way.
func (tp *TexPage) SetPalette(reg *voltex.Registry, ctx voltex.Context, tf *transfer.Func) {
	id := tf.ID()
	for i, e := range tp.cells {
		var head, tail *cellEntry
		for e != nil {
			next := e.next
			if e.tfID == id && !e.page.indexed {
				tp.releaseEntry(reg, ctx, e)
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
		tp.cells[i] = head
	}
}

// RenderAction is invoked once per drawn, non-invisible SubPage
// during TexPage.Render, receiving the page and the four world-space
// corners of its quad in (upper-left, upper-left+u, upper-left+u+v,
// upper-left+v) order, per spec.md §4.4.
type RenderAction func(page *SubPage, corners [4]linear.V3)

// Render walks tp's grid in row-major order, getting or building the
// SubPage for each cell under tf, and invokes action for every page
// that isn't Invisible. origin is the world-space position of the
// slice's (0,0) corner; uSpan/vSpan are the full slice's world-space
// u/v extents (i.e., the vectors from corner (0,0) to (Du,0) and
// (0,Dv) respectively).
func (tp *TexPage) Render(
	reg *voltex.Registry,
	ctx voltex.Context,
	sourceID uint64,
	source voxel.Source,
	tf *transfer.Func,
	origin, uSpan, vSpan linear.V3,
	tick uint64,
	action RenderAction,
) error {
	var subU, subV linear.V3
	subU.Scale(float32(tp.tile.U)/float32(tp.du), &uSpan)
	subV.Scale(float32(tp.tile.V)/float32(tp.dv), &vSpan)

	for row := 0; row < tp.nrows; row++ {
		for col := 0; col < tp.ncols; col++ {
			page, err := tp.getOrBuild(reg, ctx, sourceID, source, row, col, tf)
			if err != nil {
				// A single tile failing never aborts the render.
				continue
			}
			page.lastUse = tick
			if page.invisible {
				continue
			}
			if action == nil {
				continue
			}
			var colU, rowV, ul, ur, lr, ll linear.V3
			colU.Scale(float32(col), &subU)
			rowV.Scale(float32(row), &subV)
			ul.Add(&origin, &colU)
			ul.Add(&ul, &rowV)
			ur.Add(&ul, &subU)
			lr.Add(&ur, &subV)
			ll.Add(&ul, &subV)
			action(page, [4]linear.V3{ul, ur, lr, ll})
		}
	}
	return nil
}
