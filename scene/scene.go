// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package scene provides functionality for creating and
// rendering scene graphs.
package scene

import (
	"github.com/gviegas/voleon/engine/volume"
	"github.com/gviegas/voleon/linear"
	"github.com/gviegas/voleon/node"
)

// Scene defines a scene graph. It composes the node graph the
// windowing/traversal framework drives (an external collaborator) with
// any number of volume.VolumeManagers inserted as ordinary nodes, so a
// volume can be positioned, parented and traversed exactly like any
// other scene-graph content.
type Scene struct {
	graph node.Graph
}

// New creates an initialized scene.
func New() *Scene { return new(Scene).Init() }

// Init initializes a scene.
func (s *Scene) Init() *Scene {
	return s
}

// InsertVolume inserts vm into the scene graph as a child of prev
// (node.Nil for the graph's root), returning its node handle. The
// caller positions vm in world space via vm.SetLocal before or after
// insertion; the graph computes its world transform on the next
// Update.
func (s *Scene) InsertVolume(vm *volume.VolumeManager, prev node.Node) node.Node {
	return s.graph.Insert(vm, prev)
}

// RemoveVolume removes the sub-tree rooted at n (as returned by
// InsertVolume) from the scene graph.
func (s *Scene) RemoveVolume(n node.Node) []node.Interface {
	return s.graph.Remove(n)
}

// Update recomputes every changed node's world transform, including
// any inserted VolumeManagers.
func (s *Scene) Update() { s.graph.Update() }

// World returns the world transform of n (node.Nil for the scene's
// global transform).
func (s *Scene) World(n node.Node) *linear.M4 { return s.graph.World(n) }

// SetWorld sets the scene's global world transform, applied to every
// root-level node on the next Update.
func (s *Scene) SetWorld(w linear.M4) { s.graph.SetWorld(w) }

// Len returns the number of nodes currently in the scene graph.
func (s *Scene) Len() int { return s.graph.Len() }
