// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package scene

import (
	"testing"

	"github.com/gviegas/voleon/engine/volume"
	"github.com/gviegas/voleon/engine/voltex"
	"github.com/gviegas/voleon/engine/voxel"
	"github.com/gviegas/voleon/linear"
	"github.com/gviegas/voleon/node"
)

func TestNew(t *testing.T) {
	var z Scene
	s := New()
	if s.graph.Len() != z.graph.Len() {
		t.Fatal("New().graph.Len: New should not insert any nodes")
	}
	if *s.graph.World(node.Nil) != *z.graph.World(node.Nil) {
		t.Fatal("New().graph.World: New should not set the global world transform")
	}
}

func TestInsertVolume(t *testing.T) {
	const n = 4
	data := make([]byte, n*n*n)
	src := voxel.NewMemSource(voxel.BBox{}, voxel.U8, [3]int{n, n, n}, data)
	vm, err := volume.NewVolumeManager(src, voltex.Context(1), volume.TileSize{U: 4, V: 4})
	if err != nil {
		t.Fatal(err)
	}

	s := New()
	id := s.InsertVolume(vm, node.Nil)
	if s.Len() != 1 {
		t.Fatalf("InsertVolume: graph has %d nodes, want 1", s.Len())
	}

	var local linear.M4
	local.I()
	local[3] = linear.V4{1, 2, 3, 1}
	vm.SetLocal(local)
	s.Update()

	world := s.World(id)
	if world[3] != local[3] {
		t.Errorf("Update: world translation %v, want %v", world[3], local[3])
	}
}
