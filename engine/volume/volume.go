// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package volume implements the paged voxel cache: SubPage/SubCube
// tiles, the per-slice TexPage/TexCube grids that own them, and the
// VolumeManager that ties the three axis-indexed SliceCaches
// together under a shared texel/byte budget and LRU eviction policy.
package volume

import (
	"errors"

	"github.com/gviegas/voleon/engine/voxel"
)

const prefix = "volume: "

// Errors.
var (
	ErrBadParameter      = errors.New(prefix + "invalid parameter")
	ErrOutOfBounds       = voxel.ErrOutOfBounds
	ErrInvariantViolation = errors.New(prefix + "internal invariant violated")
)

// TileSize is a power-of-two tile extent. Sizes below 4 or that are
// not a power of two are rejected by NewTexPage/NewTexCube and by
// VolumeManager.SetTileSize (spec: "silently ignored").
type TileSize struct{ U, V int }

// valid reports whether t is usable as a tile size (≥4, power of two).
func (t TileSize) valid() bool {
	return t.U >= 4 && t.V >= 4 && isPow2(t.U) && isPow2(t.V)
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

// ceilDiv computes ⌈a/b⌉ for positive a, b.
func ceilDiv(a, b int) int { return (a + b - 1) / b }

// id generates process-wide monotonic identities for volume sources
// and transfer functions that don't otherwise expose one, mirroring
// the teacher's "node_id" pattern from engine/transfer.
var nextSourceID uint64

// NewSourceID returns a process-wide unique identity for a Source. Since
// voxel.Source is an external interface with no identity field of
// its own, callers that want proper dedup/invalidation semantics
// should obtain one SourceID per Source and reuse it; a fresh call
// per reference signals "this is logically a different volume."
func NewSourceID() uint64 {
	nextSourceID++
	return nextSourceID
}
