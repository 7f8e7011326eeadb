// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package mesh

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/gviegas/voleon/driver"
	"github.com/gviegas/voleon/engine/internal/ctxt"
	"github.com/gviegas/voleon/internal/bitm"
)

// Global mesh storage.
var storage meshBuffer

// SetBuffer sets the GPU buffer into which quad data will be stored.
// The buffer must be host-visible, its usage must include both
// driver.UVertexData and driver.UIndexData, and its capacity must be
// a multiple of blockSize*spanMapNBit bytes.
// It returns the replaced buffer, if any.
//
// NOTE: Calls to this function invalidate all previously created
// quads.
func SetBuffer(buf driver.Buffer) driver.Buffer {
	storage.Lock()
	defer storage.Unlock()
	switch buf {
	case storage.buf:
		return nil
	case nil:
		storage.spanMap = bitm.Bitm[uint32]{}
		storage.quadMap = bitm.Bitm[uint32]{}
		storage.quads = nil
	default:
		c := buf.Cap()
		n := c / (blockSize * spanMapNBit)
		if n > int64(^uint(0)>>1) || c != n*(blockSize*spanMapNBit) {
			panic("invalid mesh buffer capacity")
		}
		storage.spanMap = bitm.Bitm[uint32]{}
		storage.spanMap.Grow(int(n))
		storage.quadMap = bitm.Bitm[uint32]{}
		storage.quads = storage.quads[:0]
	}
	prev := storage.buf
	storage.buf = buf
	return prev
}

// meshBuffer manages vertex/index data of created quads.
type meshBuffer struct {
	buf     driver.Buffer
	spanMap bitm.Bitm[uint32]
	quadMap bitm.Bitm[uint32]
	quads   []quadEntry
	sync.Mutex
}

const (
	spanMapNBit = 32
	quadMapNBit = 32
)

// span granularity, in bytes.
const blockSize = 512

// span defines a buffer range in number of blocks.
type span struct {
	start int
	end   int
}

// byteStart computes the span's first byte.
func (s span) byteStart() int { return s.start * blockSize }

// byteLen computes the span's byte length.
func (s span) byteLen() int { return (s.end - s.start) * blockSize }

// Byte sizes of the vertex/index formats a quad uses.
const (
	posSize  = 4 * 3 // Float32x3
	uvSize   = 4 * 2 // Float32x2
	vtxCount = 4
	idxCount = 6
)

// quadEntry is an entry in the mesh buffer.
type quadEntry struct {
	posSpan span
	uvSpan  span
	idxSpan span
}

// store reserves ns contiguous blocks in the buffer (growing it if
// necessary) and copies data into them.
func (b *meshBuffer) store(data []byte) (span, error) {
	nb := (len(data) + (blockSize - 1)) &^ (blockSize - 1)
	ns := nb / blockSize
	if ns == 0 {
		ns = 1
	}
	is, ok := b.spanMap.SearchRange(ns)
	if !ok {
		nplus := (ns + (spanMapNBit - 1)) / spanMapNBit
		bcap := int64(b.spanMap.Len()+nplus*spanMapNBit) * blockSize
		buf, err := ctxt.GPU().NewBuffer(bcap, true, driver.UVertexData|driver.UIndexData)
		if err != nil {
			return span{}, err
		}
		if b.buf != nil {
			copy(buf.Bytes(), b.buf.Bytes())
			b.buf.Destroy()
		}
		b.buf = buf
		is = b.spanMap.Grow(nplus)
	}
	copy(b.buf.Bytes()[is*blockSize:], data)
	for i := 0; i < ns; i++ {
		b.spanMap.Set(is + i)
	}
	return span{is, is + ns}, nil
}

// NewQuad stores data's vertex/index data in the GPU buffer and
// returns a handle to it. The buffer is created, or replaced by a
// larger one, whenever it lacks room for the new data.
func NewQuad(data *QuadData) (Quad, error) {
	storage.Lock()
	defer storage.Unlock()

	posBytes := make([]byte, vtxCount*posSize)
	for i, p := range data.Positions {
		putFloat32(posBytes[i*posSize:], p[0])
		putFloat32(posBytes[i*posSize+4:], p[1])
		putFloat32(posBytes[i*posSize+8:], p[2])
	}
	uvBytes := make([]byte, vtxCount*uvSize)
	for i, uv := range data.UVs {
		putFloat32(uvBytes[i*uvSize:], uv[0])
		putFloat32(uvBytes[i*uvSize+4:], uv[1])
	}
	// Two triangles covering the quad, fan-style from vertex 0.
	indices := []uint16{0, 1, 2, 0, 2, 3}
	idxBytes := make([]byte, idxCount*2)
	for i, v := range indices {
		binary.LittleEndian.PutUint16(idxBytes[i*2:], v)
	}

	posSpan, err := storage.store(posBytes)
	if err != nil {
		return Quad{}, err
	}
	uvSpan, err := storage.store(uvBytes)
	if err != nil {
		storage.free(posSpan)
		return Quad{}, err
	}
	idxSpan, err := storage.store(idxBytes)
	if err != nil {
		storage.free(posSpan)
		storage.free(uvSpan)
		return Quad{}, err
	}

	entry := quadEntry{posSpan, uvSpan, idxSpan}
	var idx int
	if i, ok := storage.quadMap.Search(); ok {
		idx = i
	} else {
		var z [quadMapNBit]quadEntry
		storage.quads = append(storage.quads, z[:]...)
		idx = storage.quadMap.Grow(1)
	}
	storage.quadMap.Set(idx)
	storage.quads[idx] = entry
	return Quad{idx}, nil
}

// FreeQuad releases q's vertex/index spans, making them available
// for reuse. It does not shrink the GPU buffer.
func FreeQuad(q Quad) {
	storage.Lock()
	defer storage.Unlock()
	entry := storage.quads[q.index]
	storage.free(entry.posSpan)
	storage.free(entry.uvSpan)
	storage.free(entry.idxSpan)
	storage.quadMap.Unset(q.index)
	storage.quads[q.index] = quadEntry{}
}

// free unsets the blocks spanned by s. Callers must hold storage's
// lock.
func (b *meshBuffer) free(s span) {
	for i := s.start; i < s.end; i++ {
		b.spanMap.Unset(i)
	}
}

// Draw records the draw commands for q on cb: it binds the position
// and texture-coordinate vertex buffers and the index buffer, then
// issues an indexed draw call for the quad's two triangles.
func Draw(q Quad, cb driver.CmdBuffer) {
	storage.Lock()
	entry := storage.quads[q.index]
	buf := storage.buf
	storage.Unlock()

	cb.SetVertexBuf(0, []driver.Buffer{buf}, []int64{int64(entry.posSpan.byteStart())})
	cb.SetVertexBuf(1, []driver.Buffer{buf}, []int64{int64(entry.uvSpan.byteStart())})
	cb.SetIndexBuf(driver.Index16, buf, int64(entry.idxSpan.byteStart()))
	cb.DrawIndexed(idxCount, 1, 0, 0, 0)
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
