// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package volume

import (
	"sync"

	"github.com/gviegas/voleon/engine/transfer"
	"github.com/gviegas/voleon/engine/voltex"
	"github.com/gviegas/voleon/engine/voxel"
	"github.com/gviegas/voleon/linear"
)

// Budget bounds the texel and GPU-byte footprint a VolumeManager is
// allowed to hold before it must evict.
type Budget struct {
	MaxTexels  int
	MaxBytesHW int
}

// VolumeManager is the top-level paged voxel cache: it owns one
// SliceCache per axis, a shared voltex.Registry, a monotonic tick
// used as the LRU clock, and drives eviction to keep the cache under
// Budget. A single mutex serializes every render/build/evict
// operation, matching spec.md §5's single-threaded, lock-guarded
// model.
type VolumeManager struct {
	mu sync.Mutex

	source   voxel.Source
	sourceID uint64
	tile     TileSize

	reg *voltex.Registry
	ctx voltex.Context

	slices [3][]*TexPage // lazily sized to the axis extent on first access
	cube   *TexCube      // lazily built on first 3D-texture-path render
	tile3D [3]int

	budget Budget
	tick   uint64

	numTexels int
	numBytes  int

	local   linear.M4
	changed bool
}

// NewVolumeManager creates a manager over source, with its own
// texture registry, building textures for ctx at the given tile
// size. tile must be valid
// (≥4, power of two) or NewVolumeManager returns ErrBadParameter.
func NewVolumeManager(source voxel.Source, ctx voltex.Context, tile TileSize) (*VolumeManager, error) {
	if !tile.valid() {
		return nil, ErrBadParameter
	}
	m := &VolumeManager{
		source:   source,
		sourceID: NewSourceID(),
		tile:     tile,
		tile3D:   [3]int{tile.U, tile.V, tile.U},
		reg:      voltex.NewRegistry(),
		ctx:      ctx,
		budget:   Budget{MaxTexels: 1 << 28, MaxBytesHW: 1 << 30},
	}
	m.local.I()
	return m, nil
}

// SetBudget replaces the manager's texel/byte budget. It does not
// immediately evict if the new budget is smaller than current usage;
// the next render's manage() call will.
func (m *VolumeManager) SetBudget(b Budget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budget = b
}

// SetPalette notifies every live TexPage/TexCube that tf's color map
// changed: each drops the SubPages/SubCubes it built against tf that
// were baked straight to RGBA8, while leaving any built as raw index
// textures in place (see TexPage.SetPalette). Callers that keep a
// transfer.Func built via transfer.NewFromPalette and mutate it only
// through SetPaletteRaw never need to call this at all, since the
// index texture's content never goes stale; it matters for a Func
// whose CLUT was edited some other way (SetWindow, SetShiftOffset,
// SetAlphaPolicy, or a non-indexed color map).
func (m *VolumeManager) SetPalette(tf *transfer.Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for axis := range m.slices {
		for _, tp := range m.slices[axis] {
			if tp == nil {
				continue
			}
			before := tp.numTexels
			beforeBytes := tp.numBytes
			tp.SetPalette(m.reg, m.ctx, tf)
			m.numTexels -= before - tp.numTexels
			m.numBytes -= beforeBytes - tp.numBytes
		}
	}
	if m.cube != nil {
		before := m.cube.numTexels
		beforeBytes := m.cube.numBytes
		m.cube.SetPalette(m.reg, m.ctx, tf)
		m.numTexels -= before - m.cube.numTexels
		m.numBytes -= beforeBytes - m.cube.numBytes
	}
}

// NumTexels returns the total texel footprint across every live
// SubPage in every axis and every live SubCube.
func (m *VolumeManager) NumTexels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numTexels
}

// NumBytes returns the total GPU-texture byte footprint across every
// live SubPage in every axis and every live SubCube.
func (m *VolumeManager) NumBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numBytes
}

// Tick returns the manager's current logical clock value.
func (m *VolumeManager) Tick() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick
}

// texPage returns the TexPage for (axis, sliceIdx), creating the
// axis's slice array and the TexPage itself lazily.
func (m *VolumeManager) texPage(axis voxel.Axis, sliceIdx int) (*TexPage, error) {
	_, _, dims := m.source.DataChar()
	n := axisExtent(dims, axis)
	if sliceIdx < 0 || sliceIdx >= n {
		return nil, ErrOutOfBounds
	}
	if m.slices[axis] == nil {
		m.slices[axis] = make([]*TexPage, n)
	}
	tp := m.slices[axis][sliceIdx]
	if tp == nil {
		var err error
		tp, err = NewTexPage(m.source, axis, sliceIdx, m.tile)
		if err != nil {
			return nil, err
		}
		m.slices[axis][sliceIdx] = tp
	}
	return tp, nil
}

// texCube returns the manager's whole-volume 3D-texture-path grid,
// building it lazily on first use.
func (m *VolumeManager) texCube() (*TexCube, error) {
	if m.cube == nil {
		tc, err := NewTexCube(m.source, m.tile3D)
		if err != nil {
			return nil, err
		}
		m.cube = tc
	}
	return m.cube, nil
}

// SetTileSize3D changes the tile size used by the 3D-texture path,
// releasing the current grid if the size actually changed. An invalid
// size is silently ignored, mirroring SetTileSize.
func (m *VolumeManager) SetTileSize3D(tile [3]int) {
	for _, t := range tile {
		if !(TileSize{U: t, V: t}).valid() {
			return
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tile == m.tile3D {
		return
	}
	m.tile3D = tile
	m.releaseCube()
}

// releaseCube evicts every SubCube currently built in m.cube and
// clears the grid so it is rebuilt from scratch on next use. Must be
// called with m.mu held.
func (m *VolumeManager) releaseCube() {
	if m.cube == nil {
		return
	}
	for i, e := range m.cube.cells {
		for e != nil {
			next := e.next
			m.reg.Evict(m.ctx, e.cube.bk)
			e = next
		}
		m.cube.cells[i] = nil
	}
	m.numTexels -= m.cube.numTexels
	m.numBytes -= m.cube.numBytes
	m.cube = nil
}

// RenderVolume renders the whole source through the 3D-texture path,
// per spec §4.6's whole-volume walk: it temporarily subtracts the
// cube grid's counters from the manager's running totals, dispatches
// to TexCube.Render, re-adds the updated counters, bumps the tick,
// and runs eviction to bring usage back under budget.
func (m *VolumeManager) RenderVolume(
	tf *transfer.Func,
	origin, xSpan, ySpan, zSpan linear.V3,
	action CubeRenderAction,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tc, err := m.texCube()
	if err != nil {
		return err
	}

	m.tick++
	m.numTexels -= tc.numTexels
	m.numBytes -= tc.numBytes

	err = tc.Render(m.reg, m.ctx, m.sourceID, m.source, tf, origin, xSpan, ySpan, zSpan, m.tick, action)

	m.numTexels += tc.numTexels
	m.numBytes += tc.numBytes

	m.manage()
	return err
}

// RenderOrthoSlice renders one axis-aligned slice, per spec §4.6's
// render_ortho_slice: it temporarily subtracts the target TexPage's
// counters from the manager's running totals (so TexPage.Render's
// own bookkeeping can be re-added without double counting), dispatches
// to TexPage.Render, re-adds the updated counters, bumps the tick,
// and finally runs eviction to bring usage back under budget.
func (m *VolumeManager) RenderOrthoSlice(
	axis voxel.Axis,
	sliceIdx int,
	tf *transfer.Func,
	origin, uSpan, vSpan linear.V3,
	action RenderAction,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := m.texPage(axis, sliceIdx)
	if err != nil {
		return err
	}

	m.tick++
	m.numTexels -= tp.numTexels
	m.numBytes -= tp.numBytes

	err = tp.Render(m.reg, m.ctx, m.sourceID, m.source, tf, origin, uSpan, vSpan, m.tick, action)

	m.numTexels += tp.numTexels
	m.numBytes += tp.numBytes

	m.manage()
	return err
}

// manage runs eviction until the manager is back under budget. It
// must be called with m.mu held.
func (m *VolumeManager) manage() {
	m.freeTexels(0)
	m.freeBytesHW(0)
}

// freeTexels evicts least-recently-used SubPages until
// numTexels+desired ≤ maxTexels, or until there is nothing left to
// evict. It returns immediately (without evicting anything) if
// desired alone exceeds the budget, since no amount of eviction can
// satisfy it, per spec §4.6.
func (m *VolumeManager) freeTexels(desired int) {
	if desired > m.budget.MaxTexels {
		return
	}
	for m.numTexels+desired > m.budget.MaxTexels {
		if !m.releaseLRUPage() {
			return
		}
	}
}

// freeBytesHW is freeTexels' GPU-byte-budget analogue.
func (m *VolumeManager) freeBytesHW(desired int) {
	if desired > m.budget.MaxBytesHW {
		return
	}
	for m.numBytes+desired > m.budget.MaxBytesHW {
		if !m.releaseLRUPage() {
			return
		}
	}
}

// releaseLRUPage scans every live TexPage across all three axes plus
// the whole-volume TexCube, finds the SubPage/SubCube with the
// smallest lastUse tick (ties broken by encounter order: 2D axes
// first, then the cube grid), and releases it. It reports whether a
// candidate was found.
func (m *VolumeManager) releaseLRUPage() bool {
	var (
		bestTP    *TexPage
		bestEntry *cellEntry
		bestPrev  *cellEntry
		bestIdx   int
		bestCube  *cubeEntry
		bestCPrev *cubeEntry
		bestCIdx  int
		bestUse   = ^uint64(0)
		found     bool
		isCube    bool
	)
	for axis := 0; axis < 3; axis++ {
		for _, tp := range m.slices[axis] {
			if tp == nil {
				continue
			}
			for idx, head := range tp.cells {
				var prev *cellEntry
				for e := head; e != nil; e = e.next {
					if e.page.lastUse < bestUse {
						bestUse = e.page.lastUse
						bestTP = tp
						bestEntry = e
						bestPrev = prev
						bestIdx = idx
						found = true
						isCube = false
					}
					prev = e
				}
			}
		}
	}
	if m.cube != nil {
		for idx, head := range m.cube.cells {
			var prev *cubeEntry
			for e := head; e != nil; e = e.next {
				if e.cube.lastUse < bestUse {
					bestUse = e.cube.lastUse
					bestCube = e
					bestCPrev = prev
					bestCIdx = idx
					found = true
					isCube = true
				}
				prev = e
			}
		}
	}
	if !found {
		return false
	}
	if isCube {
		if bestCPrev == nil {
			m.cube.cells[bestCIdx] = bestCube.next
		} else {
			bestCPrev.next = bestCube.next
		}
		texels := bestCube.cube.tx * bestCube.cube.ty * bestCube.cube.tz
		m.numTexels -= texels
		m.numBytes -= bestCube.cube.hwBytes
		m.cube.numTexels -= texels
		m.cube.numBytes -= bestCube.cube.hwBytes
		m.reg.Evict(m.ctx, bestCube.cube.bk)
		return true
	}
	if bestPrev == nil {
		bestTP.cells[bestIdx] = bestEntry.next
	} else {
		bestPrev.next = bestEntry.next
	}
	m.numTexels -= bestEntry.page.tu * bestEntry.page.tv
	m.numBytes -= bestEntry.page.hwBytes
	bestTP.numTexels -= bestEntry.page.tu * bestEntry.page.tv
	bestTP.numBytes -= bestEntry.page.hwBytes
	m.reg.Evict(m.ctx, bestEntry.page.bk)
	return true
}

// SetTileSize changes the manager's tile size, releasing the
// SliceCaches of all three axes: every axis lays the same (U,V) tile
// over its in-plane dimensions (X over (z,y), Y over (x,z), Z over
// (x,y)), so a change to either component alters every axis's
// geometry. The 3D-texture path's grid is left as it is (see
// SetTileSize3D). An invalid size (not ≥4 or not a power of two) is
// silently ignored, as spec.md mandates.
func (m *VolumeManager) SetTileSize(tile TileSize) {
	if !tile.valid() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if tile == m.tile {
		return
	}
	m.tile = tile
	for axis := range m.slices {
		for _, tp := range m.slices[axis] {
			if tp == nil {
				continue
			}
			for idx, e := range tp.cells {
				for e != nil {
					next := e.next
					m.reg.Evict(m.ctx, e.page.bk)
					e = next
				}
				tp.cells[idx] = nil
			}
			m.numTexels -= tp.numTexels
			m.numBytes -= tp.numBytes
		}
		m.slices[axis] = nil
	}
}

// Local implements node.Interface: VolumeManager carries an identity
// local transform by default (an external scene graph sets it via
// SetLocal to place the volume in world space).
func (m *VolumeManager) Local() *linear.M4 { return &m.local }

// Changed implements node.Interface.
func (m *VolumeManager) Changed() bool {
	c := m.changed
	m.changed = false
	return c
}

// SetLocal sets the volume's local transform within its owning scene
// graph, marking it Changed so the next node.Graph.Update recomputes
// descendants' world transforms.
func (m *VolumeManager) SetLocal(local linear.M4) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local = local
	m.changed = true
}
