// Package compress provides the compression codecs usable for minv blob
// payloads.
//
// Operator payloads are dominated by float64 matrix sections (SVD factors,
// whitener, prior weights) which compress modestly; source-estimate payloads
// carry smooth time series which compress well. The codecs trade ratio
// against speed:
//
//   - NoOp: no compression, fastest, for in-memory handoff
//   - S2: fast compression for interactive use
//   - LZ4: fast with slightly better ratios on float payloads
//   - Zstd: best ratio, for archival of large operators
package compress

import (
	"fmt"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
)

// Compressor compresses a complete payload section.
//
// The returned slice is newly allocated and owned by the caller; the input is
// never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload section previously compressed with the
// matching algorithm. Corrupted or mismatched input returns an error, never a
// panic.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines compression and decompression for one algorithm.
// All implementations in this package are stateless and safe for concurrent
// use.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec returns the codec for the given compression type.
func CreateCodec(typ format.CompressionType) (Codec, error) {
	switch typ {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("%w: %d", errs.ErrInvalidCompression, typ)
	}
}
