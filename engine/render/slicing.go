// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package render

import "github.com/gviegas/voleon/linear"

// defaultVolumeSlices is the slice count RenderVolume falls back to
// when the caller does not request a specific one.
const defaultVolumeSlices = 32

// boxCorners produces the eight corners of the parallelepiped spanned
// by dx/dy/dz from origin, using the same bit-encoded ordering as
// volume.TexCube.Render and volume.SubCube's CubeRenderAction
// (bit0 selects dx, bit1 selects dy, bit2 selects dz).
func boxCorners(origin, dx, dy, dz linear.V3) [8]linear.V3 {
	var c [8]linear.V3
	for i := range c {
		p := origin
		if i&1 != 0 {
			p.Add(&p, &dx)
		}
		if i&2 != 0 {
			p.Add(&p, &dy)
		}
		if i&4 != 0 {
			p.Add(&p, &dz)
		}
		c[i] = p
	}
	return c
}

// projectRange returns the minimum and maximum of dot(corner, dir)
// across corners, i.e. the range of plane parameters t for which the
// plane {p : dot(p,dir) = t} intersects the box.
func projectRange(corners [8]linear.V3, dir linear.V3) (min, max float32) {
	min = corners[0].Dot(&dir)
	max = min
	for i := 1; i < len(corners); i++ {
		d := corners[i].Dot(&dir)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return
}

// halfPlane is one face of a clipped box, expressed as a point on the
// face and its outward-facing normal (not necessarily unit length).
type halfPlane struct {
	point, normal linear.V3
}

// boxFaces derives the six outward half-spaces of the parallelepiped
// described by corners, using corners[0] as the near vertex and the
// edges to corners[1], corners[2] and corners[4] as its axes (the
// same convention boxCorners and TexCube.Render use).
func boxFaces(corners [8]linear.V3) [6]halfPlane {
	var ex, ey, ez, negEx, negEy, negEz linear.V3
	ex.Sub(&corners[1], &corners[0])
	ey.Sub(&corners[2], &corners[0])
	ez.Sub(&corners[4], &corners[0])
	negEx.Scale(-1, &ex)
	negEy.Scale(-1, &ey)
	negEz.Scale(-1, &ez)
	return [6]halfPlane{
		{corners[0], negEx},
		{corners[1], ex},
		{corners[0], negEy},
		{corners[2], ey},
		{corners[0], negEz},
		{corners[4], ez},
	}
}

// inside reports whether p lies on the interior side of the half-space
// defined by point/normal (normal points outward, so the interior
// satisfies dot(p-point,normal) <= 0).
func inside(p, point, normal linear.V3) bool {
	var d linear.V3
	d.Sub(&p, &point)
	return d.Dot(&normal) <= 1e-5
}

// planeIntersect returns the point where segment a-b crosses the plane
// through point with the given normal. The caller must ensure a and b
// lie on opposite sides of the plane.
func planeIntersect(a, b, point, normal linear.V3) linear.V3 {
	var da, db, ab, scaled, out linear.V3
	da.Sub(&a, &point)
	db.Sub(&b, &point)
	fa := da.Dot(&normal)
	fb := db.Dot(&normal)
	t := fa / (fa - fb)
	ab.Sub(&b, &a)
	scaled.Scale(t, &ab)
	out.Add(&a, &scaled)
	return out
}

// clipPolygon clips the convex polygon poly against one half-space
// using the standard Sutherland-Hodgman rule, preserving vertex order.
func clipPolygon(poly []linear.V3, hp halfPlane) []linear.V3 {
	n := len(poly)
	if n == 0 {
		return poly
	}
	out := make([]linear.V3, 0, n+1)
	for i := 0; i < n; i++ {
		cur := poly[i]
		prev := poly[(i-1+n)%n]
		curIn := inside(cur, hp.point, hp.normal)
		prevIn := inside(prev, hp.point, hp.normal)
		if curIn != prevIn {
			out = append(out, planeIntersect(prev, cur, hp.point, hp.normal))
		}
		if curIn {
			out = append(out, cur)
		}
	}
	return out
}

// orthoBasis returns two unit vectors spanning the plane perpendicular
// to dir (which must already be normalized).
func orthoBasis(dir linear.V3) (u, v linear.V3) {
	ref := linear.V3{0, 1, 0}
	if d := dir.Dot(&ref); d > 0.99 || d < -0.99 {
		ref = linear.V3{1, 0, 0}
	}
	u.Cross(&ref, &dir)
	u.Norm(&u)
	v.Cross(&dir, &u)
	return
}

// sliceBox computes the convex polygon where the plane through
// planePoint, perpendicular to the unit vector dir, cuts the box
// described by corners. The returned slice is empty if the plane
// misses the box. Vertices are wound consistently, suitable for
// fan triangulation.
func sliceBox(corners [8]linear.V3, planePoint, dir linear.V3) []linear.V3 {
	var ex, ey, ez linear.V3
	ex.Sub(&corners[1], &corners[0])
	ey.Sub(&corners[2], &corners[0])
	ez.Sub(&corners[4], &corners[0])
	size := ex.Len() + ey.Len() + ez.Len()
	if size == 0 {
		return nil
	}

	u, v := orthoBasis(dir)
	var su, sv linear.V3
	su.Scale(size, &u)
	sv.Scale(size, &v)

	var p0, p1, p2, p3 linear.V3
	p0.Sub(&planePoint, &su)
	p0.Sub(&p0, &sv)
	p1.Add(&planePoint, &su)
	p1.Sub(&p1, &sv)
	p2.Add(&planePoint, &su)
	p2.Add(&p2, &sv)
	p3.Sub(&planePoint, &su)
	p3.Add(&p3, &sv)

	poly := []linear.V3{p0, p1, p2, p3}
	for _, f := range boxFaces(corners) {
		poly = clipPolygon(poly, f)
		if len(poly) == 0 {
			return nil
		}
	}
	return poly
}

// localCoord resolves p's parametric position within the box spanned
// by corners[0]'s three edges, each reported in [0,1] when p lies on
// the box.
func localCoord(p linear.V3, corners [8]linear.V3) (s, t, r float32) {
	var ex, ey, ez, d linear.V3
	ex.Sub(&corners[1], &corners[0])
	ey.Sub(&corners[2], &corners[0])
	ez.Sub(&corners[4], &corners[0])
	d.Sub(&p, &corners[0])
	if l := ex.Dot(&ex); l > 0 {
		s = d.Dot(&ex) / l
	}
	if l := ey.Dot(&ey); l > 0 {
		t = d.Dot(&ey) / l
	}
	if l := ez.Dot(&ez); l > 0 {
		r = d.Dot(&ez) / l
	}
	return
}
