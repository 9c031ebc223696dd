// Package pool provides pooled byte buffers for blob encoding.
package pool

import "sync"

// BlobBufferDefaultSize is the initial capacity of pooled buffers; operator
// blobs for typical source spaces exceed it quickly but estimate blobs often
// fit. BlobBufferMaxThreshold caps what is returned to the pool so one huge
// operator does not pin memory.
const (
	BlobBufferDefaultSize  = 1024 * 16  // 16KiB
	BlobBufferMaxThreshold = 1024 * 512 // 512KiB
)

// ByteBuffer is a reusable append-only byte buffer.
type ByteBuffer struct {
	B []byte
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset empties the buffer while retaining its allocation.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the current length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

var blobBufferPool = sync.Pool{
	New: func() any {
		return &ByteBuffer{B: make([]byte, 0, BlobBufferDefaultSize)}
	},
}

// GetBlobBuffer returns an empty buffer from the pool.
func GetBlobBuffer() *ByteBuffer {
	bb := blobBufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutBlobBuffer returns a buffer to the pool, dropping oversized ones.
func PutBlobBuffer(bb *ByteBuffer) {
	if cap(bb.B) > BlobBufferMaxThreshold {
		return
	}
	blobBufferPool.Put(bb)
}
