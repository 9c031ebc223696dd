// Package format defines the shared enums used across minv packages:
// inverse methods, orientation picks, covariance estimators and blob
// compression types.
package format

type (
	// Method selects the post-hoc weighting applied to the minimum-norm
	// solution.
	Method uint8

	// PickOri selects how the three orientation components of a free- or
	// loose-orientation source are pooled.
	PickOri uint8

	// CovMethod selects a noise-covariance estimator.
	CovMethod uint8

	// CompressionType selects the compression codec for blob payloads.
	CompressionType uint8
)

const (
	// MethodMNE is the plain minimum-norm estimate, in source units.
	MethodMNE Method = 0x1
	// MethodDSPM is the noise-normalized (dynamic statistical parametric
	// mapping) estimate, unitless.
	MethodDSPM Method = 0x2
	// MethodSLORETA is the standardized low-resolution estimate,
	// normalized by the resolution projected through the source prior.
	MethodSLORETA Method = 0x3
)

const (
	// PickNone pools free-orientation components by magnitude; fixed
	// orientation passes through signed.
	PickNone PickOri = 0x1
	// PickNormal keeps only the signed cortical-normal component.
	PickNormal PickOri = 0x2
	// PickVector keeps all orientation components.
	PickVector PickOri = 0x3
)

const (
	// CovEmpirical is the unregularized sample covariance.
	CovEmpirical CovMethod = 0x1
	// CovShrunk is Ledoit-Wolf shrinkage toward a scaled identity.
	CovShrunk CovMethod = 0x2
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone stores payloads raw.
	CompressionZstd CompressionType = 0x2 // CompressionZstd uses Zstandard.
	CompressionS2   CompressionType = 0x3 // CompressionS2 uses S2 (Snappy-compatible).
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 uses LZ4 block format.
)

func (m Method) String() string {
	switch m {
	case MethodMNE:
		return "MNE"
	case MethodDSPM:
		return "dSPM"
	case MethodSLORETA:
		return "sLORETA"
	default:
		return "Unknown"
	}
}

// Valid reports whether m is a recognized method value.
func (m Method) Valid() bool {
	return m == MethodMNE || m == MethodDSPM || m == MethodSLORETA
}

func (p PickOri) String() string {
	switch p {
	case PickNone:
		return "None"
	case PickNormal:
		return "Normal"
	case PickVector:
		return "Vector"
	default:
		return "Unknown"
	}
}

// Valid reports whether p is a recognized orientation pick.
func (p PickOri) Valid() bool {
	return p == PickNone || p == PickNormal || p == PickVector
}

func (c CovMethod) String() string {
	switch c {
	case CovEmpirical:
		return "Empirical"
	case CovShrunk:
		return "Shrunk"
	default:
		return "Unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is a recognized compression type.
func (c CompressionType) Valid() bool {
	return c >= CompressionNone && c <= CompressionLZ4
}
