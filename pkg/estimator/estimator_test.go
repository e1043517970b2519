package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExact(t *testing.T) {
	b := Exact(42)
	require.Equal(t, 42.0, b.Estimate)
	for i := 0; i < MaxStdDevs; i++ {
		require.Equal(t, 42.0, b.Upper[i])
		require.Equal(t, 42.0, b.Lower[i])
	}
}

func TestRelativeBoundsWiden(t *testing.T) {
	b := RelativeBounds(1000, 0.05, 0)
	require.InDelta(t, 1050, b.Upper[0], 1e-9)
	require.InDelta(t, 1100, b.Upper[1], 1e-9)
	require.InDelta(t, 1150, b.Upper[2], 1e-9)
	require.InDelta(t, 950, b.Lower[0], 1e-9)
	require.InDelta(t, 850, b.Lower[2], 1e-9)
	for i := 1; i < MaxStdDevs; i++ {
		require.GreaterOrEqual(t, b.Upper[i], b.Upper[i-1])
		require.LessOrEqual(t, b.Lower[i], b.Lower[i-1])
	}
}

func TestRelativeBoundsFloor(t *testing.T) {
	b := RelativeBounds(100, 0.5, 80)
	for i := 0; i < MaxStdDevs; i++ {
		require.GreaterOrEqual(t, b.Lower[i], 80.0)
		require.LessOrEqual(t, b.Lower[i], 100.0)
	}
	empty := RelativeBounds(0, 0.5, 0)
	require.Equal(t, Exact(0), empty)
	nan := RelativeBounds(math.NaN(), 0.5, 3)
	require.Equal(t, Exact(3), nan)
}

func TestRelativeErrors(t *testing.T) {
	require.InDelta(t, 1.04/32, HLLRelativeError(10), 1e-12)
	require.InDelta(t, 0.78/32, PCSARelativeError(10), 1e-12)
	require.Equal(t, 1.0, KMVRelativeError(1))
	require.InDelta(t, 1/math.Sqrt(99), KMVRelativeError(100), 1e-12)
}
