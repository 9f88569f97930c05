// Package mathx holds the small numeric guards shared by the statistics code.
//
// Every ratio computed by the scorers and the classifier goes through SafeDiv
// so degenerate statistics (zero variance, empty bins, absent classes) resolve
// to a documented value instead of NaN or Inf.
package mathx

import "math"

// Epsilon is the denominator floor used by the feature scorers.
const Epsilon = 1e-10

// SafeDiv returns num/den, or 0 when |den| <= floor.
func SafeDiv(num, den, floor float64) float64 {
	if math.Abs(den) <= floor || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// FloorLog returns log(max(v, floor)).
func FloorLog(v, floor float64) float64 {
	if v < floor || math.IsNaN(v) {
		v = floor
	}
	return math.Log(v)
}

// ClampInt constrains val to [lo, hi].
func ClampInt(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// Clamp constrains val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// Bin maps v into one of n equal-width bins starting at lo.
// Values below lo land in bin 0 and values at or above the top edge land in
// bin n-1.
func Bin(v, lo, width float64, n int) int {
	return ClampInt(int(math.Floor((v-lo)/width)), 0, n-1)
}
