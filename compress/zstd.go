package compress

// ZstdCompressor provides Zstandard compression for blob payloads.
//
// Zstd favors compression ratio over speed, which suits archival of built
// inverse operators: the SVD factor sections are large, rebuilt rarely, and
// read back far more often than written.
//
// Two implementations exist behind build tags: a cgo binding (valyala/gozstd)
// when cgo is available, and a pure-Go fallback (klauspost/compress/zstd)
// otherwise. Both produce interchangeable zstd frames.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
