package compress

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
)

// floatPayload mimics an estimate payload: smooth float64 time series.
func floatPayload(n int) []byte {
	buf := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		v := math.Sin(float64(i) / 37.0)
		bits := math.Float64bits(v)
		for s := 0; s < 64; s += 8 {
			buf = append(buf, byte(bits>>s))
		}
	}

	return buf
}

func TestCreateCodec(t *testing.T) {
	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		codec, err := CreateCodec(typ)
		require.NoError(t, err, typ.String())
		require.NotNil(t, codec)
	}

	_, err := CreateCodec(format.CompressionType(0x7F))
	require.ErrorIs(t, err, errs.ErrInvalidCompression)
}

func TestCodec_RoundTrip(t *testing.T) {
	payload := floatPayload(4096)

	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			codec, err := CreateCodec(typ)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(payload, restored))
		})
	}
}

func TestCodec_EmptyInput(t *testing.T) {
	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			codec, err := CreateCodec(typ)
			require.NoError(t, err)

			compressed, err := codec.Compress(nil)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, restored)
		})
	}
}

func TestZstd_CorruptedInput(t *testing.T) {
	codec := NewZstdCompressor()

	_, err := codec.Decompress([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.Error(t, err)
}
