// Package fuzzy holds scalar fuzzy-set primitives. Every function is total:
// non-finite inputs fall back to a documented value instead of propagating.
package fuzzy

import "math"

// Epsilon is the float64 machine epsilon, 2^-52.
const Epsilon = 2.220446049250313e-16

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp01 maps non-finite values to 0 and clamps the rest to [0, 1].
func Clamp01(v float64) float64 {
	if !IsFinite(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func Complement(v float64) float64 {
	return Clamp01(1 - Clamp01(v))
}

// SafeDivide returns def when either operand is non-finite, the denominator
// is within Epsilon of zero or the ratio overflows.
func SafeDivide(num, den, def float64) float64 {
	if !IsFinite(num) || !IsFinite(den) || math.Abs(den) <= Epsilon {
		return def
	}
	r := num / den
	if !IsFinite(r) {
		return def
	}
	return r
}
