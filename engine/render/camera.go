// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package render

import (
	"math"

	"github.com/gviegas/voleon/linear"
)

// Perspective builds a right-handed, finite perspective projection
// matrix from a vertical field of view (radians), aspect ratio
// (width/height) and near/far clip planes.
func Perspective(yfov, aspectRatio, near, far float32) linear.M4 {
	ct := float32(1 / math.Tan(float64(yfov)*0.5))
	var m linear.M4
	m[0][0] = ct / aspectRatio
	m[1][1] = ct
	m[2][2] = (far + near) / (near - far)
	m[2][3] = -1
	m[3][2] = (2 * far * near) / (near - far)
	return m
}

// LookAt builds a right-handed view matrix placing the camera at eye,
// looking toward center, with the given up direction.
func LookAt(eye, center, up linear.V3) linear.M4 {
	var f, s, u linear.V3
	f.Sub(&center, &eye)
	f.Norm(&f)
	s.Cross(&f, &up)
	s.Norm(&s)
	u.Cross(&f, &s)

	var m linear.M4
	m[0] = linear.V4{s[0], u[0], -f[0], 0}
	m[1] = linear.V4{s[1], u[1], -f[1], 0}
	m[2] = linear.V4{s[2], u[2], -f[2], 0}
	m[3] = linear.V4{-s.Dot(&eye), -u.Dot(&eye), f.Dot(&eye), 1}
	return m
}
