package textutil

import "math"

// RatioSimilarity compares two non-negative magnitudes: 1.0 when both are
// zero, 0.0 when exactly one is zero, min/max otherwise.
func RatioSimilarity(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1.0
	}
	if a == 0 || b == 0 {
		return 0.0
	}
	if a < 0 || b < 0 {
		return 0.0
	}
	if a < b {
		return a / b
	}
	return b / a
}

// Closeness maps the absolute difference of two values onto [0,1] given
// the scale at which they are considered fully different. A scale of 100
// means values 100 apart score 0.
func Closeness(a, b, scale float64) float64 {
	if scale <= 0 {
		if a == b {
			return 1.0
		}
		return 0.0
	}
	d := math.Abs(a-b) / scale
	if d > 1 {
		return 0.0
	}
	return 1.0 - d
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 { return Clamp(v, 0, 1) }
