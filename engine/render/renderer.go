// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package render

import (
	"time"
	"unsafe"

	"github.com/gviegas/voleon/driver"
	"github.com/gviegas/voleon/engine/internal/ctxt"
	"github.com/gviegas/voleon/engine/internal/shader"
	"github.com/gviegas/voleon/engine/mesh"
	"github.com/gviegas/voleon/engine/transfer"
	"github.com/gviegas/voleon/engine/volume"
	"github.com/gviegas/voleon/engine/voxel"
	"github.com/gviegas/voleon/linear"
)

// constBufSize is large enough to hold one FrameLayout and one
// VolumeLayout at 256-byte-aligned offsets.
const constBufSize = 768

// Renderer walks a volume.VolumeManager's tile grid for an
// ortho-slice or whole-volume request, builds a GPU quad per visible
// SubPage/SubCube (via engine/mesh), and records the draw commands
// that submit them. It owns no GPU resources beyond the transient
// quads it creates for the frame currently in flight, plus the small
// constant buffer backing its per-frame and per-volume shader inputs;
// it creates no descriptor table.
type Renderer struct {
	frame []mesh.Quad // quads created by the in-flight frame, freed at the next call

	cbuf driver.Buffer // backs FrameLayout (bytes [0:256]) and VolumeLayout (bytes [256:512])
}

// NewRenderer creates a Renderer with its constant buffer allocated.
// No descriptor table is created: binding the constant buffer into a
// pipeline is up to the caller; BindFrame/BindVolume only update the
// constant data.
func NewRenderer() (*Renderer, error) {
	buf, err := ctxt.GPU().NewBuffer(constBufSize, true, driver.UShaderConst)
	if err != nil {
		return nil, err
	}
	return &Renderer{cbuf: buf}, nil
}

// Destroy releases the Renderer's constant buffer.
func (r *Renderer) Destroy() {
	if r.cbuf != nil {
		r.cbuf.Destroy()
		r.cbuf = nil
	}
}

// BindFrame writes the current camera and timing state into the
// constant buffer's FrameLayout region.
func (r *Renderer) BindFrame(view, proj *linear.M4, elapsed time.Duration) {
	var vp linear.M4
	vp.Mul(proj, view)
	var l shader.FrameLayout
	l.SetVP(&vp)
	l.SetV(view)
	l.SetP(proj)
	l.SetTime(elapsed)
	src := unsafe.Slice((*byte)(unsafe.Pointer(&l)), unsafe.Sizeof(l))
	copy(r.cbuf.Bytes()[:len(src)], src)
}

// BindVolume writes a volume's world transform and identifier into
// the constant buffer's VolumeLayout region.
func (r *Renderer) BindVolume(world *linear.M4, id uint32) {
	var l shader.VolumeLayout
	l.SetWorld(world)
	l.SetID(id)
	src := unsafe.Slice((*byte)(unsafe.Pointer(&l)), unsafe.Sizeof(l))
	copy(r.cbuf.Bytes()[256:256+len(src)], src)
}

// beginFrame releases the previous frame's transient quads. It must
// be called once at the start of every top-level render.
func (r *Renderer) beginFrame() {
	for _, q := range r.frame {
		mesh.FreeQuad(q)
	}
	r.frame = r.frame[:0]
}

// localQuad computes the canonical local-space (origin, uSpan, vSpan)
// of a full axis-aligned slice, covering [-1,1]x[-1,1] in the slice's
// in-plane axes, matching the canonical cube every VolumeManager is
// rendered against before its world transform is applied.
func localQuad(axis voxel.Axis) (origin, uSpan, vSpan linear.V3) {
	switch axis {
	case voxel.AxisX:
		return linear.V3{0, -1, -1}, linear.V3{0, 0, 2}, linear.V3{0, 2, 0}
	case voxel.AxisY:
		return linear.V3{-1, 0, -1}, linear.V3{2, 0, 0}, linear.V3{0, 0, 2}
	default:
		return linear.V3{-1, -1, 0}, linear.V3{2, 0, 0}, linear.V3{0, 2, 0}
	}
}

// transformPoint applies world (a column-major M4, homogeneous w=1)
// to p, returning the resulting 3-component position.
func transformPoint(world *linear.M4, p linear.V3) linear.V3 {
	v := linear.V4{p[0], p[1], p[2], 1}
	var out linear.V4
	out.Mul(world, &v)
	return linear.V3{out[0], out[1], out[2]}
}

// transformDir applies world to the direction d (homogeneous w=0), so
// translation does not affect it.
func transformDir(world *linear.M4, d linear.V3) linear.V3 {
	v := linear.V4{d[0], d[1], d[2], 0}
	var out linear.V4
	out.Mul(world, &v)
	return linear.V3{out[0], out[1], out[2]}
}

// RenderOrthoSlice renders one axis-aligned slice of vm using tf,
// placed in world space by world (typically the VolumeManager's
// node.Graph-resolved world transform), recording draw commands on
// cb.
func (r *Renderer) RenderOrthoSlice(
	vm *volume.VolumeManager,
	axis voxel.Axis,
	sliceIdx int,
	tf *transfer.Func,
	world *linear.M4,
	cb driver.CmdBuffer,
) error {
	r.beginFrame()

	lo, lu, lv := localQuad(axis)
	origin := transformPoint(world, lo)
	uSpan := transformDir(world, lu)
	vSpan := transformDir(world, lv)

	return vm.RenderOrthoSlice(axis, sliceIdx, tf, origin, uSpan, vSpan,
		func(page *volume.SubPage, corners [4]linear.V3) {
			umax, vmax := page.TexCoordMax()
			data := &mesh.QuadData{
				Positions: [4][3]float32{corners[3], corners[2], corners[1], corners[0]},
				UVs: [4][2]float32{
					{0, vmax},
					{umax, vmax},
					{umax, 0},
					{0, 0},
				},
			}
			q, err := mesh.NewQuad(data)
			if err != nil {
				return
			}
			r.frame = append(r.frame, q)
			mesh.Draw(q, cb)
		})
}

// RenderVolume renders the whole of vm through the 3D-texture path,
// placed in world space by world. It sweeps numSlices planes
// perpendicular to viewDir (a world-space direction, not required to
// be normalized) across the volume's extent, clipping each sub-cube's
// eight corners against every plane that crosses it and emitting one
// quad per resulting cross-section polygon. numSlices <= 0 falls back
// to defaultVolumeSlices.
func (r *Renderer) RenderVolume(
	vm *volume.VolumeManager,
	tf *transfer.Func,
	world *linear.M4,
	viewDir linear.V3,
	numSlices int,
	cb driver.CmdBuffer,
) error {
	r.beginFrame()

	if numSlices <= 0 {
		numSlices = defaultVolumeSlices
	}
	if numSlices == 1 {
		numSlices = 2
	}

	var dir linear.V3
	dir.Norm(&viewDir)

	origin := transformPoint(world, linear.V3{-1, -1, -1})
	xSpan := transformDir(world, linear.V3{2, 0, 0})
	ySpan := transformDir(world, linear.V3{0, 2, 0})
	zSpan := transformDir(world, linear.V3{0, 0, 2})

	whole := boxCorners(origin, xSpan, ySpan, zSpan)
	tMin, tMax := projectRange(whole, dir)
	step := (tMax - tMin) / float32(numSlices-1)

	return vm.RenderVolume(tf, origin, xSpan, ySpan, zSpan,
		func(cube *volume.SubCube, corners [8]linear.V3) {
			cMin, cMax := projectRange(corners, dir)
			umax, vmax, wmax := cube.TexCoordMax()
			for i := 0; i < numSlices; i++ {
				t := tMin + step*float32(i)
				if t < cMin-1e-5 || t > cMax+1e-5 {
					continue
				}
				var planePoint linear.V3
				planePoint.Scale(t, &dir)

				poly := sliceBox(corners, planePoint, dir)
				if len(poly) < 3 {
					continue
				}
				r.emitSlicePolygon(poly, corners, dir, umax, vmax, wmax, cb)
			}
		})
}

// emitSlicePolygon fan-triangulates poly (a convex cross-section
// produced by sliceBox, wound consistently) around its first vertex,
// submitting one degenerate quad per triangle. Each vertex's 3D
// texture coordinate is derived from its position within corners'
// box; the coordinate axis most aligned with dir (nearly constant
// across this single slice) is dropped, since mesh.QuadData only
// carries a 2-component UV.
func (r *Renderer) emitSlicePolygon(
	poly []linear.V3,
	corners [8]linear.V3,
	dir linear.V3,
	umax, vmax, wmax float32,
	cb driver.CmdBuffer,
) {
	var ex, ey, ez, nex, ney, nez linear.V3
	ex.Sub(&corners[1], &corners[0])
	ey.Sub(&corners[2], &corners[0])
	ez.Sub(&corners[4], &corners[0])
	nex.Norm(&ex)
	ney.Norm(&ey)
	nez.Norm(&ez)
	ax, ay, az := nex.Dot(&dir), ney.Dot(&dir), nez.Dot(&dir)
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	if az < 0 {
		az = -az
	}
	drop := 2 // default: drop the z-like axis
	if ax >= ay && ax >= az {
		drop = 0
	} else if ay >= ax && ay >= az {
		drop = 1
	}

	uvOf := func(p linear.V3) [2]float32 {
		s, t, rr := localCoord(p, corners)
		switch drop {
		case 0:
			return [2]float32{t * vmax, rr * wmax}
		case 1:
			return [2]float32{s * umax, rr * wmax}
		default:
			return [2]float32{s * umax, t * vmax}
		}
	}

	v0 := poly[0]
	uv0 := uvOf(v0)
	for i := 1; i+1 < len(poly); i++ {
		v1, v2 := poly[i], poly[i+1]
		data := &mesh.QuadData{
			Positions: [4][3]float32{v0, v1, v2, v2},
			UVs:       [4][2]float32{uv0, uvOf(v1), uvOf(v2), uvOf(v2)},
		}
		q, err := mesh.NewQuad(data)
		if err != nil {
			continue
		}
		r.frame = append(r.frame, q)
		mesh.Draw(q, cb)
	}
}
