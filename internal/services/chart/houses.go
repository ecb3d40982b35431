// Package chart assembles full chart frames from raw ephemeris
// positions, house math and the fixed point formulas.
package chart

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// Supported house systems. Quadrant systems that need an iterative
// solver (Placidus, Koch) come from an external calculator and are out
// of scope here.
const (
	SystemEqual     = "equal"
	SystemWholeSign = "whole_sign"
)

// HouseSet is the resolved house context of one instant and location.
type HouseSet struct {
	System string
	Cusps  [12]float64
	Asc    float64
	Dsc    float64
	MC     float64
	IC     float64
}

// HouseCalculator derives the house context. Implementations must be
// pure: same instant and location, same cusps.
type HouseCalculator interface {
	Houses(at time.Time, loc domain.Location) (HouseSet, error)
	System() string
}

// NewHouseCalculator returns the calculator for a configured system
// name. An unknown system is a fatal configuration error.
func NewHouseCalculator(system string) (HouseCalculator, error) {
	switch system {
	case SystemEqual, "":
		return &ascBasedHouses{system: SystemEqual}, nil
	case SystemWholeSign:
		return &ascBasedHouses{system: SystemWholeSign}, nil
	default:
		return nil, errors.Wrapf(domain.ErrInputInvalid, "unsupported house system %q", system)
	}
}

type ascBasedHouses struct {
	system string
}

func (h *ascBasedHouses) System() string { return h.system }

func (h *ascBasedHouses) Houses(at time.Time, loc domain.Location) (HouseSet, error) {
	if loc.Lat < -90 || loc.Lat > 90 {
		return HouseSet{}, errors.Wrapf(domain.ErrInputInvalid, "latitude %f out of range", loc.Lat)
	}

	asc, mc := ascendantAndMC(at, loc.Lat, loc.Lon)

	set := HouseSet{
		System: h.system,
		Asc:    asc,
		Dsc:    degrees.Normalize(asc + 180),
		MC:     mc,
		IC:     degrees.Normalize(mc + 180),
	}

	first := asc
	if h.system == SystemWholeSign {
		first = math.Floor(asc/30.0) * 30.0
	}
	for i := 0; i < 12; i++ {
		set.Cusps[i] = degrees.Normalize(first + float64(i)*30.0)
	}
	return set, nil
}

// julianDay converts an instant to a Julian day number.
func julianDay(t time.Time) float64 {
	return float64(t.UnixMilli())/86400000.0 + 2440587.5
}

// ascendantAndMC computes the ecliptic longitudes of the ascendant and
// the midheaven from sidereal time, mean obliquity and geographic
// latitude, using the standard spherical formulas.
func ascendantAndMC(at time.Time, lat, lon float64) (asc, mc float64) {
	jd := julianDay(at)
	t := (jd - 2451545.0) / 36525.0

	gmst := 280.46061837 + 360.98564736629*(jd-2451545.0) +
		0.000387933*t*t - t*t*t/38710000.0
	armc := degrees.Normalize(gmst + lon) // east longitudes positive

	eps := (23.439291111 - 0.0130042*t) * math.Pi / 180.0
	armcRad := armc * math.Pi / 180.0
	latRad := lat * math.Pi / 180.0

	mc = degrees.Normalize(math.Atan2(math.Sin(armcRad), math.Cos(armcRad)*math.Cos(eps)) * 180.0 / math.Pi)

	asc = degrees.Normalize(math.Atan2(
		math.Cos(armcRad),
		-(math.Sin(armcRad)*math.Cos(eps) + math.Tan(latRad)*math.Sin(eps)),
	) * 180.0 / math.Pi)

	return asc, mc
}

// between reports whether x lies in the arc [a, b) going zodiacally
// from a to b.
func between(a, b, x float64) bool {
	if a <= b {
		return a <= x && x < b
	}
	return x >= a || x < b
}

// HouseOf assigns a longitude to a house by cusp-interval membership.
func HouseOf(lon float64, cusps [12]float64) int {
	x := degrees.Normalize(lon)
	for i := 0; i < 12; i++ {
		next := cusps[(i+1)%12]
		if between(cusps[i], next, x) {
			return i + 1
		}
	}
	return 1
}
