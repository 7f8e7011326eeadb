// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package render

import (
	"testing"

	"github.com/gviegas/voleon/linear"
)

func TestPerspectiveDiagonal(t *testing.T) {
	m := Perspective(ProbeYFOV, 1, ProbeNear, ProbeFar)
	if m[0][0] <= 0 || m[1][1] <= 0 {
		t.Fatal("Perspective: expected positive x/y scale factors")
	}
	if m[2][3] != -1 {
		t.Errorf("Perspective: m[2][3]=%v, want -1", m[2][3])
	}
}

func TestLookAtMapsEyeToOrigin(t *testing.T) {
	eye := linear.V3{0, 0, -0.5}
	m := LookAt(eye, linear.V3{0, 0, 0}, linear.V3{0, 1, 0})
	// Transforming eye itself through the view matrix must yield the
	// view-space origin.
	v := linear.V4{eye[0], eye[1], eye[2], 1}
	var out linear.V4
	out.Mul(&m, &v)
	const eps = 1e-5
	if abs(out[0]) > eps || abs(out[1]) > eps || abs(out[2]) > eps {
		t.Errorf("LookAt: eye did not map to view-space origin: %v", out)
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
