package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// MinNonZero returns a, capped by limit when limit is not zero. A zero limit means unbounded.
func MinNonZero[T constraints.Unsigned](a, limit T) T {
	if limit > 0 && a > limit {
		return limit
	}
	return a
}
