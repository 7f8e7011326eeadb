// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package voltex manages the GPU-side texture objects built from
// voxel sub-pages and sub-cubes, keyed and interned per rendering
// Context so that two contexts never share driver state, while two
// requests against the same context for the same region reuse a
// single GPU texture.
package voltex

import (
	"errors"
	"sync"

	"github.com/gviegas/voleon/driver"
	"github.com/gviegas/voleon/engine/texture"
)

const prefix = "voltex: "

// Errors.
var (
	ErrGPUResourceExhausted = errors.New(prefix + "GPU resource exhausted")
	ErrNotFound             = errors.New(prefix + "texture object not found")
)

// Context identifies an independent rendering context. Two distinct
// Context values never share cached TextureObjects, mirroring how a
// GPU texture name is only meaningful within the GL/Vulkan context
// that created it.
type Context uint64

// key is the composite identity a TextureObject is interned under.
// Two build requests that produce the same key within the same
// Context reuse the same GPU texture instead of allocating a new
// one, per the cache's dedup requirement.
type key struct {
	ctx        Context
	sourceID   uint64
	axis       int
	sliceIdx   int
	box        [6]int
	paletteKey uint64 // transfer function ID, or 0 for raw RGBA8
}

// TextureObject is a single cached GPU texture built from a voxel
// sub-region, plus the bookkeeping the owning cache needs to run
// LRU eviction over it.
type TextureObject struct {
	tex      *texture.Texture
	lastUse  uint64
	numTexels int
	numBytes  int
	valid    bool
}

// Texture returns the underlying GPU texture, or nil if o has been
// evicted.
func (o *TextureObject) Texture() *texture.Texture {
	if o == nil || !o.valid {
		return nil
	}
	return o.tex
}

// Registry interns TextureObjects per Context. It is the in-memory
// equivalent of SIMVoleon's per-GL-context texture dictionary: a
// registry is safe for concurrent use, and a texture built once for
// a given key is handed back on every subsequent lookup until it is
// explicitly evicted.
type Registry struct {
	mu      sync.Mutex
	objects map[key]*TextureObject
	tick    uint64
}

// NewRegistry creates an empty texture object registry.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[key]*TextureObject)}
}

// BuildKey identifies a texture object's build parameters.
type BuildKey struct {
	SourceID   uint64
	Axis       int
	SliceIdx   int
	Box        [6]int // 2D: Umin,Vmin,Umax,Vmax; 3D sub-cube additionally uses [4],[5] for Zmin,Zmax
	PaletteKey uint64
}

func (b BuildKey) toKey(ctx Context) key {
	return key{ctx, b.SourceID, b.Axis, b.SliceIdx, b.Box, b.PaletteKey}
}

// GetOrBuild returns the TextureObject for bk within ctx, building
// it with build if it is not already cached. build is only invoked
// on a cache miss. Every lookup (hit or miss) bumps the registry's
// LRU clock and stamps the returned object's lastUse, so callers
// never need to touch LRU state themselves.
func (r *Registry) GetOrBuild(ctx Context, bk BuildKey, build func() (*texture.Texture, int, int, error)) (*TextureObject, error) {
	k := bk.toKey(ctx)

	r.mu.Lock()
	r.tick++
	tick := r.tick
	if o, ok := r.objects[k]; ok && o.valid {
		o.lastUse = tick
		r.mu.Unlock()
		return o, nil
	}
	r.mu.Unlock()

	tex, numTexels, numBytes, err := build()
	if err != nil {
		return nil, err
	}

	o := &TextureObject{tex: tex, lastUse: tick, numTexels: numTexels, numBytes: numBytes, valid: true}
	r.mu.Lock()
	r.objects[k] = o
	r.mu.Unlock()
	return o, nil
}

// Evict destroys the GPU texture behind bk/ctx (if cached) and
// removes it from the registry.
func (r *Registry) Evict(ctx Context, bk BuildKey) {
	k := bk.toKey(ctx)
	r.mu.Lock()
	o, ok := r.objects[k]
	if ok {
		delete(r.objects, k)
	}
	r.mu.Unlock()
	if ok {
		o.valid = false
		if o.tex != nil {
			o.tex.Free()
		}
	}
}

// EvictLRU evicts the single least-recently-used texture object
// across every key currently cached in ctx, and returns the number
// of texels and bytes it freed. It reports ok=false if ctx has no
// cached objects.
func (r *Registry) EvictLRU(ctx Context) (texels, bytes int, ok bool) {
	r.mu.Lock()
	var found key
	var oldest uint64 = ^uint64(0)
	var obj *TextureObject
	for k, o := range r.objects {
		if k.ctx != ctx || !o.valid {
			continue
		}
		if o.lastUse < oldest {
			oldest = o.lastUse
			found = k
			obj = o
			ok = true
		}
	}
	if ok {
		delete(r.objects, found)
	}
	r.mu.Unlock()
	if ok {
		obj.valid = false
		texels, bytes = obj.numTexels, obj.numBytes
		if obj.tex != nil {
			obj.tex.Free()
		}
	}
	return
}

// Stats reports the total texel and byte footprint of every texture
// object currently cached for ctx.
func (r *Registry) Stats(ctx Context) (texels, bytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, o := range r.objects {
		if k.ctx == ctx && o.valid {
			texels += o.numTexels
			bytes += o.numBytes
		}
	}
	return
}

// Build2D is a convenience build function for GetOrBuild: it creates
// a single-layer 2D RGBA8 texture of the given size and uploads
// data. Build2D does no padding of its own: for a region on the
// volume's boundary that isn't a full tile, data must already be
// padded by the caller to w*h*4 bytes.
func Build2D(w, h int, data []byte) (*texture.Texture, int, int, error) {
	param := &texture.TexParam{
		PixelFmt: driver.RGBA8un,
		Dim3D:    driver.Dim3D{Width: w, Height: h, Depth: 0},
		Layers:   1,
		Levels:   1,
		Samples:  1,
	}
	tex, err := texture.New2D(param)
	if err != nil {
		return nil, 0, 0, ErrGPUResourceExhausted
	}
	if err := tex.CopyToView(0, data, true); err != nil {
		tex.Free()
		return nil, 0, 0, err
	}
	return tex, w * h, w * h * 4, nil
}

// Build3D is Build2D's sub-cube analogue: it creates a single 3D
// RGBA8 texture and uploads data.
func Build3D(w, h, d int, data []byte) (*texture.Texture, int, int, error) {
	param := &texture.TexParam{
		PixelFmt: driver.RGBA8un,
		Dim3D:    driver.Dim3D{Width: w, Height: h, Depth: d},
		Layers:   1,
		Levels:   1,
		Samples:  1,
	}
	tex, err := texture.New3D(param)
	if err != nil {
		return nil, 0, 0, ErrGPUResourceExhausted
	}
	if err := tex.CopyToView(0, data, true); err != nil {
		tex.Free()
		return nil, 0, 0, err
	}
	return tex, w * h * d, w * h * d * 4, nil
}

// Build2DIndexed is Build2D's paletted counterpart: it creates a
// single-channel R8un texture holding one raw sample index per texel
// (data must already be w*h bytes, one index per texel, unpadded
// texels cleared to 0), instead of baking every index through the
// active transfer function's CLUT. The palette is applied by the
// consumer at draw time, which is what lets a SetPalette call leave
// this texture untouched across color-map edits.
func Build2DIndexed(w, h int, data []byte) (*texture.Texture, int, int, error) {
	param := &texture.TexParam{
		PixelFmt: driver.R8un,
		Dim3D:    driver.Dim3D{Width: w, Height: h, Depth: 0},
		Layers:   1,
		Levels:   1,
		Samples:  1,
	}
	tex, err := texture.New2D(param)
	if err != nil {
		return nil, 0, 0, ErrGPUResourceExhausted
	}
	if err := tex.CopyToView(0, data, true); err != nil {
		tex.Free()
		return nil, 0, 0, err
	}
	return tex, w * h, w * h, nil
}

// Build3DIndexed is Build2DIndexed's sub-cube analogue.
func Build3DIndexed(w, h, d int, data []byte) (*texture.Texture, int, int, error) {
	param := &texture.TexParam{
		PixelFmt: driver.R8un,
		Dim3D:    driver.Dim3D{Width: w, Height: h, Depth: d},
		Layers:   1,
		Levels:   1,
		Samples:  1,
	}
	tex, err := texture.New3D(param)
	if err != nil {
		return nil, 0, 0, ErrGPUResourceExhausted
	}
	if err := tex.CopyToView(0, data, true); err != nil {
		tex.Free()
		return nil, 0, 0, err
	}
	return tex, w * h * d, w * h * d, nil
}
