// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package volume

import (
	"testing"

	"github.com/gviegas/voleon/engine/clut"
	"github.com/gviegas/voleon/engine/transfer"
	"github.com/gviegas/voleon/engine/voltex"
	"github.com/gviegas/voleon/engine/voxel"
	"github.com/gviegas/voleon/linear"
)

// zSource builds an 8x8x8 U8 MemSource where v[x,y,z] = z, per
// scenario S1.
func zSource() *voxel.MemSource {
	const n = 8
	data := make([]byte, n*n*n)
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				data[x+y*n+z*n*n] = byte(z)
			}
		}
	}
	return voxel.NewMemSource(voxel.BBox{}, voxel.U8, [3]int{n, n, n}, data)
}

// xySource builds an 8x8x1 U8 MemSource where v[x,y,0] = x+y, per
// scenario S6.
func xySource() *voxel.MemSource {
	const n = 8
	data := make([]byte, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			data[x+y*n] = byte(x + y)
		}
	}
	return voxel.NewMemSource(voxel.BBox{}, voxel.U8, [3]int{n, n, 1}, data)
}

// constSource builds an 8x8x8 U8 MemSource where every voxel is 42,
// per scenario S5.
func constSource() *voxel.MemSource {
	const n = 8
	data := make([]byte, n*n*n)
	for i := range data {
		data[i] = 42
	}
	return voxel.NewMemSource(voxel.BBox{}, voxel.U8, [3]int{n, n, n}, data)
}

var fullQuad = struct{ origin, uSpan, vSpan linear.V3 }{
	origin: linear.V3{-1, -1, 0},
	uSpan:  linear.V3{2, 0, 0},
	vSpan:  linear.V3{0, 2, 0},
}

// S1 — Basic Z-slice: every drawn tile is visible under a full-range
// opaque window and a nonzero constant value.
func TestRenderOrthoSliceBasicZSlice(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
	if err != nil {
		t.Fatal(err)
	}
	tf := transfer.New(clut.GradientGrey)

	var drawn int
	err = m.RenderOrthoSlice(voxel.AxisZ, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
		func(page *SubPage, corners [4]linear.V3) {
			drawn++
			if page.Invisible() {
				t.Error("RenderOrthoSlice: page should be visible at z=3 with full window")
			}
		})
	if err != nil {
		t.Fatal(err)
	}
	if drawn != 1 {
		t.Fatalf("RenderOrthoSlice: got %d drawn pages, want 1", drawn)
	}
}

// S2 — Opacity window: narrowing the transfer function's window makes
// an in-range slice visible and an out-of-range slice fully invisible.
func TestRenderOrthoSliceOpacityWindow(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
	if err != nil {
		t.Fatal(err)
	}
	tf := transfer.New(clut.GradientGrey)
	tf.SetWindow(2, 5)

	var inWindow, outWindow bool
	err = m.RenderOrthoSlice(voxel.AxisZ, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
		func(page *SubPage, corners [4]linear.V3) { inWindow = page.Invisible() })
	if err != nil {
		t.Fatal(err)
	}
	if inWindow {
		t.Error("RenderOrthoSlice: z=3 should be visible under window [2,5]")
	}

	err = m.RenderOrthoSlice(voxel.AxisZ, 6, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
		func(page *SubPage, corners [4]linear.V3) { outWindow = page.Invisible() })
	if err != nil {
		t.Fatal(err)
	}
	if !outWindow {
		t.Error("RenderOrthoSlice: z=6 should be invisible under window [2,5]")
	}
}

// S3 — LRU eviction: a tight texel budget leaves exactly two of the
// four built SubPages resident after the render returns.
func TestRenderOrthoSliceLRUEviction(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 4, V: 4})
	if err != nil {
		t.Fatal(err)
	}
	m.SetBudget(Budget{MaxTexels: 2 * 4 * 4, MaxBytesHW: 1 << 30})
	tf := transfer.New(clut.GradientGrey)

	// Slice z=0 holds only zero samples, which map to fully
	// transparent: all four pages are built, but none is drawn.
	var drawn int
	err = m.RenderOrthoSlice(voxel.AxisZ, 0, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
		func(page *SubPage, corners [4]linear.V3) { drawn++ })
	if err != nil {
		t.Fatal(err)
	}
	if drawn != 0 {
		t.Fatalf("RenderOrthoSlice: got %d drawn pages, want 0", drawn)
	}
	if got := m.NumTexels(); got != 2*4*4 {
		t.Errorf("RenderOrthoSlice: got %d resident texels after eviction, want %d", got, 2*4*4)
	}
	tp, err := m.texPage(voxel.AxisZ, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n := tp.NumPages(); n != 2 {
		t.Errorf("RenderOrthoSlice: got %d resident pages, want 2", n)
	}
}

// S4 — Transfer-function change: re-rendering after a mutation
// replaces (rather than duplicates) every SubPage built under the
// same transfer function.
func TestRenderOrthoSliceTransferFunctionChange(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 4, V: 4})
	if err != nil {
		t.Fatal(err)
	}
	tf := transfer.New(clut.GradientGrey)

	err = m.RenderOrthoSlice(voxel.AxisZ, 0, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, nil)
	if err != nil {
		t.Fatal(err)
	}
	tp, err := m.texPage(voxel.AxisZ, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n := tp.NumPages(); n != 4 {
		t.Fatalf("RenderOrthoSlice: got %d pages after first render, want 4", n)
	}

	tf.SetWindow(0, 100)
	err = m.RenderOrthoSlice(voxel.AxisZ, 0, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n := tp.NumPages(); n != 4 {
		t.Errorf("RenderOrthoSlice: got %d pages after TF mutation, want 4 (replaced, not duplicated)", n)
	}
}

// S5 — Axis consistency: rendering the same constant volume as X-,
// Y- and Z-slices yields the same visibility/transfer outcome.
func TestRenderOrthoSliceAxisConsistency(t *testing.T) {
	src := constSource()
	tf := transfer.New(clut.GradientGrey)

	for _, axis := range []voxel.Axis{voxel.AxisX, voxel.AxisY, voxel.AxisZ} {
		m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
		if err != nil {
			t.Fatal(err)
		}
		var invisible bool
		err = m.RenderOrthoSlice(axis, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
			func(page *SubPage, corners [4]linear.V3) { invisible = page.Invisible() })
		if err != nil {
			t.Fatalf("RenderOrthoSlice(%v): %v", axis, err)
		}
		if invisible {
			t.Errorf("RenderOrthoSlice(%v): constant volume should be visible on every axis", axis)
		}
	}
}

// S6 — Tile boundary crossing: a 2x2 tile grid over an 8x8 slice with
// v[x,y,0]=x+y renders four distinct sub-pages, one per quadrant.
func TestRenderOrthoSliceTileBoundary(t *testing.T) {
	src := xySource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 4, V: 4})
	if err != nil {
		t.Fatal(err)
	}
	tf := transfer.New(clut.GradientGrey)

	seen := make(map[[2]linear.V3]bool)
	err = m.RenderOrthoSlice(voxel.AxisZ, 0, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
		func(page *SubPage, corners [4]linear.V3) {
			seen[[2]linear.V3{corners[0], corners[2]}] = true
		})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 4 {
		t.Fatalf("RenderOrthoSlice: got %d distinct sub-quads, want 4", len(seen))
	}
}

// Invariant 1: numTexels never exceeds the configured budget after any
// successful render.
func TestInvariantTexelBudget(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 4, V: 4})
	if err != nil {
		t.Fatal(err)
	}
	m.SetBudget(Budget{MaxTexels: 2 * 4 * 4, MaxBytesHW: 1 << 30})
	tf := transfer.New(clut.GradientGrey)

	for z := 0; z < 8; z++ {
		if err := m.RenderOrthoSlice(voxel.AxisZ, z, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, nil); err != nil {
			t.Fatal(err)
		}
		if got := m.NumTexels(); got > m.budget.MaxTexels {
			t.Fatalf("RenderOrthoSlice: numTexels=%d exceeds budget=%d after slice %d", got, m.budget.MaxTexels, z)
		}
	}
}

// Invariant 2: every SubPage drawn for a given transfer function
// carries that function's current id.
func TestInvariantSubPageTransferID(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
	if err != nil {
		t.Fatal(err)
	}
	tf := transfer.New(clut.GradientGrey)

	err = m.RenderOrthoSlice(voxel.AxisZ, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
		func(page *SubPage, corners [4]linear.V3) {
			if page.TransferID() != tf.ID() {
				t.Errorf("RenderOrthoSlice: page transfer id=%d, want %d", page.TransferID(), tf.ID())
			}
		})
	if err != nil {
		t.Fatal(err)
	}
}

// Invariant 3: a cell never holds more than one entry per distinct
// transfer-function id.
func TestInvariantOneEntryPerTransferID(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
	if err != nil {
		t.Fatal(err)
	}
	tfA := transfer.New(clut.GradientGrey)
	tfB := transfer.New(clut.GradientTemperature)

	for _, tf := range []*transfer.Func{tfA, tfB, tfA} {
		if err := m.RenderOrthoSlice(voxel.AxisZ, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, nil); err != nil {
			t.Fatal(err)
		}
	}
	tp, err := m.texPage(voxel.AxisZ, 3)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[uint64]int)
	for _, head := range tp.cells {
		for e := head; e != nil; e = e.next {
			seen[e.tfID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("TexPage cell: transfer id %d appears %d times, want 1", id, n)
		}
	}
}

// Invariant 5: idempotence — rendering the same quad twice in
// succession reuses the same GPU texture object and doesn't grow
// numTexels.
func TestInvariantIdempotentRender(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
	if err != nil {
		t.Fatal(err)
	}
	tf := transfer.New(clut.GradientGrey)

	var first, second *SubPage
	action := func(page *SubPage, corners [4]linear.V3) {
		if first == nil {
			first = page
		} else {
			second = page
		}
	}
	if err := m.RenderOrthoSlice(voxel.AxisZ, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, action); err != nil {
		t.Fatal(err)
	}
	texels := m.NumTexels()
	if err := m.RenderOrthoSlice(voxel.AxisZ, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, action); err != nil {
		t.Fatal(err)
	}
	if m.NumTexels() != texels {
		t.Errorf("RenderOrthoSlice: numTexels grew from %d to %d on repeat render", texels, m.NumTexels())
	}
	if first.Texture() != second.Texture() {
		t.Error("RenderOrthoSlice: repeat render should reuse the same GPU texture")
	}
}

func TestSetTileSizeInvalidIgnored(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
	if err != nil {
		t.Fatal(err)
	}
	m.SetTileSize(TileSize{U: 3, V: 3})
	if m.tile.U != 8 {
		t.Error("SetTileSize: invalid tile size should be silently ignored")
	}
}

// indexedU4Source builds a 4x4x1 U4 MemSource holding samples 1..16
// wrapped into the 0..15 index range (two samples per byte).
func indexedU4Source() *voxel.MemSource {
	raw := make([]byte, 8)
	for i := 0; i < 16; i++ {
		v := byte((i + 1) % 16) // 0 only at i=15; varies enough to exercise the path
		if i%2 == 0 {
			raw[i/2] = v
		} else {
			raw[i/2] |= v << 4
		}
	}
	return voxel.NewMemSource(voxel.BBox{}, voxel.U4, [3]int{4, 4, 1}, raw)
}

func u4Palette() [][4]uint8 {
	p := make([][4]uint8, 16)
	for i := range p {
		p[i] = [4]uint8{byte(i * 16), byte(i * 16), byte(i * 16), 255}
	}
	return p
}

// A transfer.Func built from an explicit palette builds SubPages as
// raw index textures (texture.PixelFmt R8un), and a later SetPalette
// leaves that texture in place instead of rebuilding it.
func TestRenderOrthoSliceIndexedPaletteSurvivesSetPalette(t *testing.T) {
	src := indexedU4Source()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 4, V: 4})
	if err != nil {
		t.Fatal(err)
	}
	tf, err := transfer.NewFromPalette(u4Palette(), 4)
	if err != nil {
		t.Fatal(err)
	}

	var page *SubPage
	action := func(p *SubPage, corners [4]linear.V3) { page = p }
	if err := m.RenderOrthoSlice(voxel.AxisZ, 0, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, action); err != nil {
		t.Fatal(err)
	}
	if page == nil {
		t.Fatal("RenderOrthoSlice: expected a drawn SubPage")
	}
	if !page.indexed {
		t.Fatal("RenderOrthoSlice: SubPage built from an indexed transfer.Func should be indexed")
	}
	before := page.Texture()

	m.SetPalette(tf)

	if err := m.RenderOrthoSlice(voxel.AxisZ, 0, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan, action); err != nil {
		t.Fatal(err)
	}
	if page.Texture() != before {
		t.Error("SetPalette: an indexed SubPage's texture should survive a palette update")
	}
}

// A non-indexed transfer.Func's baked SubPage is evicted and rebuilt
// by SetPalette, unlike the indexed path above.
func TestRenderOrthoSliceSetPaletteEvictsBakedPages(t *testing.T) {
	src := zSource()
	m, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 8, V: 8})
	if err != nil {
		t.Fatal(err)
	}
	tf := transfer.New(clut.GradientGrey)

	var first *SubPage
	if err := m.RenderOrthoSlice(voxel.AxisZ, 3, tf, fullQuad.origin, fullQuad.uSpan, fullQuad.vSpan,
		func(p *SubPage, corners [4]linear.V3) { first = p }); err != nil {
		t.Fatal(err)
	}
	if first.indexed {
		t.Fatal("SubPage built from a gradient transfer.Func should not be indexed")
	}

	m.SetPalette(tf)

	tp, err := m.texPage(voxel.AxisZ, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n := tp.NumPages(); n != 0 {
		t.Errorf("SetPalette: expected the baked SubPage to be evicted, got %d resident pages", n)
	}
}

func TestNewVolumeManagerBadTile(t *testing.T) {
	src := zSource()
	if _, err := NewVolumeManager(src, voltex.Context(1), TileSize{U: 3, V: 3}); err != ErrBadParameter {
		t.Errorf("NewVolumeManager: got %v, want ErrBadParameter", err)
	}
}
