// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package mesh implements the GPU-side vertex/index storage used to
// draw the axis-aligned textured quads that back every rendered
// sub-page and sub-cube face.
package mesh

const prefix = "mesh: "

// Semantic specifies the intended use of a quad's attribute.
type Semantic int

// Semantics. A quad always carries both.
const (
	Position Semantic = 1 << iota
	TexCoord0
)

// MaxSemantic is the number of semantics a Quad may carry.
const MaxSemantic = 2

// Quad identifies a drawable entry stored in the package's GPU
// buffer: four vertices (position + texture coordinate) and six
// indices describing two triangles.
type Quad struct {
	index int // index into storage.quads
}

// QuadData is the CPU-side description of a quad to store.
// Positions and UVs are given in the order (bottom-left, bottom-right,
// top-right, top-left), matching a standard triangle-fan winding.
type QuadData struct {
	Positions [4][3]float32
	UVs       [4][2]float32
}
