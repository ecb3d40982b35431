// Package degrees provides angular arithmetic on ecliptic longitudes.
// All functions operate on degrees and keep results in canonical ranges
// so that downstream comparisons stay reproducible.
package degrees

import "math"

// Normalize maps a longitude into [0, 360).
func Normalize(deg float64) float64 {
	d := math.Mod(deg, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// NormalizeSigned maps an angle into [-180, 180).
func NormalizeSigned(deg float64) float64 {
	// math.Mod keeps the sign of the dividend, so negative inputs need
	// a second wrap before shifting back.
	d := math.Mod(deg+180.0, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d - 180.0
}

// Distance returns the absolute angular separation of two longitudes,
// always in [0, 180].
func Distance(a, b float64) float64 {
	diff := math.Abs(math.Mod(a-b, 360.0))
	return math.Min(diff, 360.0-diff)
}

// AspectDelta returns the signed deviation of the separation between
// lonA and lonB from the given aspect angle. For angles other than the
// conjunction/opposition axis there are two crossings per revolution;
// the nearer one is chosen.
func AspectDelta(lonA, lonB, angle float64) float64 {
	delta := Normalize(lonB - lonA)
	d1 := NormalizeSigned(delta - angle)
	if angle == 0.0 || angle == 180.0 {
		return d1
	}
	d2 := NormalizeSigned(delta - (360.0 - angle))
	if math.Abs(d1) <= math.Abs(d2) {
		return d1
	}
	return d2
}
