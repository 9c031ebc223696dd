package blob

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/neurogo/minv/cov"
	"github.com/neurogo/minv/errs"
	"github.com/neurogo/minv/format"
	"github.com/neurogo/minv/forward"
	"github.com/neurogo/minv/inverse"
	"github.com/neurogo/minv/sensor"
)

// buildOperator assembles a small free-orientation operator with normals and
// depth weighting, so every payload section is exercised.
func buildOperator(t *testing.T) *inverse.Operator {
	t.Helper()
	names := []string{"MEG 0111", "MEG 0121", "MEG 0131", "MEG 0141", "MEG 0211"}
	p := len(names)

	gain := mat.NewDense(p, 6, []float64{
		1.0, 0.2, -0.3, 0.5, -0.1, 0.8,
		0.8, -0.4, 0.6, -0.2, 0.9, 0.1,
		-0.3, 1.1, 0.2, 0.7, -0.5, 0.4,
		0.1, 0.9, -0.8, 0.3, 0.6, -0.2,
		-0.6, 0.5, 0.4, -0.9, 0.2, 0.7,
	})
	normals := mat.NewDense(2, 3, []float64{
		0, 0, 1,
		0.6, 0, 0.8,
	})
	src := forward.SourceSpace{Vertices: []uint32{42, 77}, Normals: normals}
	fwd, err := forward.New(names, gain, src, forward.Free)
	require.NoError(t, err)

	// A diagonal, non-uniform covariance keeps the whitener non-trivial.
	c := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		c.SetSym(i, i, 0.5+float64(i)*0.25)
	}
	nc, err := cov.New(names, c)
	require.NoError(t, err)

	op, err := inverse.Build(fwd, nc, 0.3, 0.6)
	require.NoError(t, err)

	return op
}

func TestOperatorRoundTrip(t *testing.T) {
	op := buildOperator(t)

	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			enc, err := NewOperatorEncoder(WithDataCompression(typ))
			require.NoError(t, err)

			data, err := enc.Encode(op)
			require.NoError(t, err)

			got, err := DecodeOperator(data)
			require.NoError(t, err)

			require.Equal(t, op.Names(), got.Names())
			require.Equal(t, op.Sing(), got.Sing())
			require.Equal(t, op.Prior(), got.Prior())
			require.Equal(t, op.Nave(), got.Nave())
			require.Equal(t, op.Loose(), got.Loose())
			require.Equal(t, op.Depth(), got.Depth())
			require.Equal(t, op.FwdRef(), got.FwdRef())
			require.Equal(t, op.NOrient(), got.NOrient())
			require.Equal(t, op.Src().Vertices, got.Src().Vertices)
			require.True(t, mat.Equal(op.Src().Normals, got.Src().Normals))
			require.True(t, mat.Equal(op.Fields(), got.Fields()))
			require.True(t, mat.Equal(op.Leads(), got.Leads()))
			require.True(t, mat.Equal(op.Whitener().Matrix(), got.Whitener().Matrix()))
			require.Equal(t, op.Whitener().Rank(), got.Whitener().Rank())
		})
	}
}

func TestOperatorRoundTrip_BigEndian(t *testing.T) {
	op := buildOperator(t)

	enc, err := NewOperatorEncoder(WithBigEndian())
	require.NoError(t, err)
	data, err := enc.Encode(op)
	require.NoError(t, err)

	got, err := DecodeOperator(data)
	require.NoError(t, err)
	require.Equal(t, op.Sing(), got.Sing())
	require.True(t, mat.Equal(op.Fields(), got.Fields()))
}

func TestDecodedOperatorApplies(t *testing.T) {
	op := buildOperator(t)

	enc, err := NewOperatorEncoder()
	require.NoError(t, err)
	data, err := enc.Encode(op)
	require.NoError(t, err)
	got, err := DecodeOperator(data)
	require.NoError(t, err)

	names := op.Names()
	kinds := make([]sensor.ChannelKind, len(names))
	for i := range kinds {
		kinds[i] = sensor.KindMag
	}
	ev := &sensor.Evoked{
		Info: &sensor.Info{Names: names, Kinds: kinds, SFreq: 1000},
		Data: mat.NewDense(5, 3, []float64{
			1.2, -0.5, 0.0,
			0.4, 0.8, -1.0,
			-0.7, 0.3, 0.2,
			0.9, -0.1, 0.6,
			0.05, 0.45, -0.3,
		}),
		Nave: 1,
	}

	want, err := inverse.Apply(ev, op, 1.0/9.0, format.MethodDSPM, format.PickNone)
	require.NoError(t, err)
	have, err := inverse.Apply(ev, got, 1.0/9.0, format.MethodDSPM, format.PickNone)
	require.NoError(t, err)

	require.True(t, mat.EqualApprox(want.Data, have.Data, 1e-14))
}

func TestDecodeOperator_Corruption(t *testing.T) {
	op := buildOperator(t)
	enc, err := NewOperatorEncoder()
	require.NoError(t, err)
	data, err := enc.Encode(op)
	require.NoError(t, err)

	t.Run("Flipped payload byte", func(t *testing.T) {
		tampered := append([]byte(nil), data...)
		tampered[len(tampered)/2] ^= 0xFF

		_, err := DecodeOperator(tampered)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	})

	t.Run("Truncated blob", func(t *testing.T) {
		_, err := DecodeOperator(data[:10])
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})

	t.Run("Estimate blob fed to the operator decoder", func(t *testing.T) {
		stc := &inverse.SourceEstimate{
			Vertices: []uint32{1, 2},
			Data:     mat.NewDense(2, 8, nil),
			NOrient:  1,
			Method:   format.MethodMNE,
			Pick:     format.PickNone,
		}
		eenc, err := NewEstimateEncoder()
		require.NoError(t, err)
		encoded, err := eenc.Encode(stc)
		require.NoError(t, err)

		_, err = DecodeOperator(encoded)
		require.ErrorIs(t, err, errs.ErrInvalidMagic)
	})
}

func TestEstimateRoundTrip(t *testing.T) {
	stc := &inverse.SourceEstimate{
		Vertices: []uint32{42, 77, 1001},
		Data: mat.NewDense(3, 5, []float64{
			0.1, 0.2, 0.3, 0.4, 0.5,
			-1, -2, -3, -4, -5,
			1e-12, 2e-12, 3e-12, 4e-12, 5e-12,
		}),
		TMin:    -0.1,
		TStep:   0.001,
		Method:  format.MethodSLORETA,
		Pick:    format.PickNormal,
		NOrient: 1,
	}

	for _, typ := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(typ.String(), func(t *testing.T) {
			enc, err := NewEstimateEncoder(WithEstimateCompression(typ))
			require.NoError(t, err)

			data, err := enc.Encode(stc)
			require.NoError(t, err)

			got, err := DecodeEstimate(data)
			require.NoError(t, err)
			require.Equal(t, stc.Vertices, got.Vertices)
			require.Equal(t, stc.TMin, got.TMin)
			require.Equal(t, stc.TStep, got.TStep)
			require.Equal(t, stc.Method, got.Method)
			require.Equal(t, stc.Pick, got.Pick)
			require.Equal(t, stc.NOrient, got.NOrient)
			require.True(t, mat.Equal(stc.Data, got.Data))
		})
	}
}

func TestEstimateRoundTrip_Vector(t *testing.T) {
	stc := &inverse.SourceEstimate{
		Vertices: []uint32{5, 6},
		Data:     mat.NewDense(6, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}),
		TStep:    0.004,
		Method:   format.MethodMNE,
		Pick:     format.PickVector,
		NOrient:  3,
	}

	enc, err := NewEstimateEncoder()
	require.NoError(t, err)
	data, err := enc.Encode(stc)
	require.NoError(t, err)

	got, err := DecodeEstimate(data)
	require.NoError(t, err)
	require.Equal(t, 3, got.NOrient)
	require.True(t, mat.Equal(stc.Data, got.Data))
}

func TestDecodeEstimate_Corruption(t *testing.T) {
	stc := &inverse.SourceEstimate{
		Vertices: []uint32{1},
		Data:     mat.NewDense(1, 4, []float64{1, 2, 3, 4}),
		Method:   format.MethodMNE,
		Pick:     format.PickNone,
		NOrient:  1,
	}
	enc, err := NewEstimateEncoder()
	require.NoError(t, err)
	data, err := enc.Encode(stc)
	require.NoError(t, err)

	t.Run("Checksum", func(t *testing.T) {
		tampered := append([]byte(nil), data...)
		tampered[len(tampered)-10] ^= 0x01

		_, err := DecodeEstimate(tampered)
		require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := DecodeEstimate(data[:8])
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})
}
