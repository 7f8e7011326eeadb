// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package voltex

import (
	"testing"

	"github.com/gviegas/voleon/engine/texture"
)

func TestGetOrBuildCachesOnKey(t *testing.T) {
	r := NewRegistry()
	bk := BuildKey{SourceID: 1, Axis: 2, SliceIdx: 3, Box: [6]int{0, 0, 4, 4, 0, 0}, PaletteKey: 7}

	var builds int
	build := func() (*texture.Texture, int, int, error) {
		builds++
		return Build2D(4, 4, make([]byte, 4*4*4))
	}

	o1, err := r.GetOrBuild(1, bk, build)
	if err != nil {
		t.Fatal(err)
	}
	o2, err := r.GetOrBuild(1, bk, build)
	if err != nil {
		t.Fatal(err)
	}
	if o1 != o2 {
		t.Fatal("GetOrBuild: same key should return the same TextureObject")
	}
	if builds != 1 {
		t.Fatalf("GetOrBuild: build invoked %d times, want 1", builds)
	}
}

func TestGetOrBuildSeparatesContexts(t *testing.T) {
	r := NewRegistry()
	bk := BuildKey{SourceID: 1, Axis: 0, SliceIdx: 0, Box: [6]int{0, 0, 2, 2, 0, 0}}

	build := func() (*texture.Texture, int, int, error) { return Build2D(2, 2, make([]byte, 2*2*4)) }

	o1, err := r.GetOrBuild(Context(1), bk, build)
	if err != nil {
		t.Fatal(err)
	}
	o2, err := r.GetOrBuild(Context(2), bk, build)
	if err != nil {
		t.Fatal(err)
	}
	if o1 == o2 {
		t.Fatal("GetOrBuild: distinct contexts must not share a TextureObject")
	}
}

func TestEvictLRU(t *testing.T) {
	r := NewRegistry()
	ctx := Context(1)
	bk1 := BuildKey{SourceID: 1, Box: [6]int{0, 0, 2, 2, 0, 0}}
	bk2 := BuildKey{SourceID: 2, Box: [6]int{0, 0, 2, 2, 0, 0}}

	build := func() (*texture.Texture, int, int, error) { return Build2D(2, 2, make([]byte, 2*2*4)) }

	if _, err := r.GetOrBuild(ctx, bk1, build); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetOrBuild(ctx, bk2, build); err != nil {
		t.Fatal(err)
	}

	texels, bytes, ok := r.EvictLRU(ctx)
	if !ok {
		t.Fatal("EvictLRU: expected an eviction candidate")
	}
	if texels != 4 || bytes != 16 {
		t.Fatalf("EvictLRU: texels=%d bytes=%d, want 4/16", texels, bytes)
	}

	remTexels, remBytes := r.Stats(ctx)
	if remTexels != 4 || remBytes != 16 {
		t.Fatalf("Stats after EvictLRU: texels=%d bytes=%d, want 4/16", remTexels, remBytes)
	}
}

func TestEvictLRUEmpty(t *testing.T) {
	r := NewRegistry()
	if _, _, ok := r.EvictLRU(Context(1)); ok {
		t.Fatal("EvictLRU: expected no candidate on an empty registry")
	}
}

func TestBuild2DIndexedByteFootprint(t *testing.T) {
	r := NewRegistry()
	bk := BuildKey{SourceID: 1, Box: [6]int{0, 0, 4, 4, 0, 0}, PaletteKey: 9}

	o, err := r.GetOrBuild(Context(1), bk, func() (*texture.Texture, int, int, error) {
		return Build2DIndexed(4, 4, make([]byte, 4*4))
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.Texture() == nil {
		t.Fatal("Build2DIndexed: expected a non-nil texture")
	}
	texels, bytes := r.Stats(Context(1))
	if texels != 16 || bytes != 16 {
		t.Fatalf("Build2DIndexed: texels=%d bytes=%d, want 16/16 (one byte per texel)", texels, bytes)
	}
}
