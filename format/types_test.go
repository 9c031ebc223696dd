package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMethod(t *testing.T) {
	require.True(t, MethodMNE.Valid())
	require.True(t, MethodDSPM.Valid())
	require.True(t, MethodSLORETA.Valid())
	require.False(t, Method(0).Valid())
	require.False(t, Method(0x7F).Valid())

	require.Equal(t, "MNE", MethodMNE.String())
	require.Equal(t, "dSPM", MethodDSPM.String())
	require.Equal(t, "sLORETA", MethodSLORETA.String())
}

func TestPickOri(t *testing.T) {
	require.True(t, PickNone.Valid())
	require.True(t, PickNormal.Valid())
	require.True(t, PickVector.Valid())
	require.False(t, PickOri(0).Valid())
}

func TestCompressionType(t *testing.T) {
	for _, typ := range []CompressionType{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		require.True(t, typ.Valid(), typ.String())
	}
	require.False(t, CompressionType(0).Valid())
	require.False(t, CompressionType(0x5).Valid())
}
