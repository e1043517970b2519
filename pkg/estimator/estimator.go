// Package estimator provides the statistical bound helpers shared by the
// distinct-counting sketch families.
package estimator

import "math"

// MaxStdDevs is the widest bound reported, in standard deviations.
const MaxStdDevs = 3

// Bounds contains an estimate with its 1, 2 and 3 standard deviation bounds.
// Upper[i] and Lower[i] hold the bounds at i+1 standard deviations.
type Bounds struct {
	Estimate float64
	Upper    [MaxStdDevs]float64
	Lower    [MaxStdDevs]float64
}

// Exact returns degenerate bounds for a value known without error.
func Exact(v float64) Bounds {
	b := Bounds{Estimate: v}
	for i := range b.Upper {
		b.Upper[i] = v
		b.Lower[i] = v
	}
	return b
}

// RelativeBounds computes normal-approximation bounds for an estimator with
// relative standard error rse. Lower bounds never drop below floor (the number
// of distinct values the sketch has provably seen) and upper bounds never drop
// below the estimate.
func RelativeBounds(estimate, rse, floor float64) Bounds {
	if estimate <= 0 || math.IsNaN(estimate) {
		return Exact(math.Max(0, floor))
	}
	b := Bounds{Estimate: estimate}
	for i := 0; i < MaxStdDevs; i++ {
		z := float64(i + 1)
		margin := z * rse * estimate
		b.Upper[i] = estimate + margin
		low := estimate - margin
		if low < floor {
			low = floor
		}
		if low > estimate {
			low = estimate
		}
		b.Lower[i] = math.Max(0, low)
	}
	return b
}

// HLLRelativeError returns the relative standard error of a HyperLogLog
// estimator with 2^lgM registers.
func HLLRelativeError(lgM int) float64 {
	return 1.04 / math.Sqrt(float64(uint64(1)<<uint(lgM)))
}

// PCSARelativeError returns the relative standard error of a probabilistic
// counting (PCSA) estimator with 2^lgM bitmaps.
func PCSARelativeError(lgM int) float64 {
	return 0.78 / math.Sqrt(float64(uint64(1)<<uint(lgM)))
}

// KMVRelativeError returns the relative standard error of a k-minimum-values
// estimate built from retained hashes.
func KMVRelativeError(retained int) float64 {
	if retained <= 1 {
		return 1
	}
	return 1 / math.Sqrt(float64(retained-1))
}
