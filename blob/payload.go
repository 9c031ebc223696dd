package blob

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/endian"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/internal/pool"
)

// payloadWriter accumulates payload sections into a pooled buffer.
type payloadWriter struct {
	engine endian.EndianEngine
	buf    *pool.ByteBuffer
}

func newPayloadWriter(engine endian.EndianEngine) *payloadWriter {
	return &payloadWriter{engine: engine, buf: pool.GetBlobBuffer()}
}

func (w *payloadWriter) release() {
	pool.PutBlobBuffer(w.buf)
}

func (w *payloadWriter) bytes() []byte {
	return w.buf.Bytes()
}

func (w *payloadWriter) appendString(s string) {
	w.buf.B = w.engine.AppendUint16(w.buf.B, uint16(len(s)))
	w.buf.B = append(w.buf.B, s...)
}

func (w *payloadWriter) appendByte(b byte) {
	w.buf.B = append(w.buf.B, b)
}

func (w *payloadWriter) appendUint32s(vs []uint32) {
	for _, v := range vs {
		w.buf.B = w.engine.AppendUint32(w.buf.B, v)
	}
}

func (w *payloadWriter) appendFloats(vs []float64) {
	for _, v := range vs {
		w.buf.B = w.engine.AppendUint64(w.buf.B, math.Float64bits(v))
	}
}

// appendMatrix appends the matrix values row major; dimensions are carried
// by the header, not the payload.
func (w *payloadWriter) appendMatrix(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w.buf.B = w.engine.AppendUint64(w.buf.B, math.Float64bits(m.At(i, j)))
		}
	}
}

// payloadReader walks a decompressed payload with bounds-checked reads.
type payloadReader struct {
	engine endian.EndianEngine
	data   []byte
	off    int
}

func newPayloadReader(engine endian.EndianEngine, data []byte) *payloadReader {
	return &payloadReader{engine: engine, data: data}
}

func (r *payloadReader) take(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d of %d",
			errs.ErrInvalidPayload, n, r.off, len(r.data))
	}
	b := r.data[r.off : r.off+n]
	r.off += n

	return b, nil
}

func (r *payloadReader) readString() (string, error) {
	lb, err := r.take(2)
	if err != nil {
		return "", err
	}
	b, err := r.take(int(r.engine.Uint16(lb)))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (r *payloadReader) readByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *payloadReader) readUint32s(n int) ([]uint32, error) {
	b, err := r.take(4 * n)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = r.engine.Uint32(b[4*i:])
	}

	return out, nil
}

func (r *payloadReader) readFloats(n int) ([]float64, error) {
	b, err := r.take(8 * n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(r.engine.Uint64(b[8*i:]))
	}

	return out, nil
}

func (r *payloadReader) readMatrix(rows, cols int) (*mat.Dense, error) {
	vals, err := r.readFloats(rows * cols)
	if err != nil {
		return nil, err
	}

	return mat.NewDense(rows, cols, vals), nil
}

// remaining reports unread payload bytes; a well-formed payload is consumed
// exactly.
func (r *payloadReader) remaining() int {
	return len(r.data) - r.off
}

// seal appends the little-endian xxHash64 of blob to itself.
func seal(blob []byte) []byte {
	return binary.LittleEndian.AppendUint64(blob, xxhash.Sum64(blob))
}

// verify splits a sealed blob into body and checksum and validates it.
func verify(data []byte, headerSize int) ([]byte, error) {
	if len(data) < headerSize+8 {
		return nil, errs.ErrInvalidHeaderSize
	}
	body := data[:len(data)-8]
	want := binary.LittleEndian.Uint64(data[len(data)-8:])
	if xxhash.Sum64(body) != want {
		return nil, errs.ErrChecksumMismatch
	}

	return body, nil
}
