// Package domain defines the core data structures of the astrology engine.
package domain

// Body identifies a celestial body or derived point.
type Body string

const (
	BodySun     Body = "sun"
	BodyMoon    Body = "moon"
	BodyMercury Body = "mercury"
	BodyVenus   Body = "venus"
	BodyMars    Body = "mars"
	BodyJupiter Body = "jupiter"
	BodySaturn  Body = "saturn"
	BodyUranus  Body = "uranus"
	BodyNeptune Body = "neptune"
	BodyPluto   Body = "pluto"

	BodyCeres          Body = "ceres"
	BodyPallas         Body = "pallas"
	BodyJuno           Body = "juno"
	BodyVesta          Body = "vesta"
	BodyChiron         Body = "chiron"
	BodyLilithAsteroid Body = "lilith_asteroid"

	// PointNorthNode is the true lunar node; the south node is always
	// derived from it and never looked up separately.
	PointNorthNode Body = "nn"
	PointSouthNode Body = "sn"
	PointLilith    Body = "lilith"
)

// Angle identifies a chart angle.
type Angle string

const (
	AngleAsc Angle = "asc"
	AngleDsc Angle = "dsc"
	AngleMC  Angle = "mc"
	AngleIC  Angle = "ic"
)

// PlanetOrder is the canonical planet enumeration. Chart assembly,
// aspect target lists and tie-breaks all follow this order.
var PlanetOrder = []Body{
	BodySun, BodyMoon, BodyMercury, BodyVenus, BodyMars,
	BodyJupiter, BodySaturn, BodyUranus, BodyNeptune, BodyPluto,
}

// AsteroidOrder is the canonical asteroid/centaur enumeration.
var AsteroidOrder = []Body{
	BodyCeres, BodyPallas, BodyJuno, BodyVesta, BodyChiron, BodyLilithAsteroid,
}

// AngleOrder is the canonical angle enumeration.
var AngleOrder = []Angle{AngleAsc, AngleDsc, AngleMC, AngleIC}

// OuterPlanets move too slowly for progressed timelines and are filtered
// out of them before scanning.
var OuterPlanets = map[Body]struct{}{
	BodyUranus:  {},
	BodyNeptune: {},
	BodyPluto:   {},
}

var bodyRank = buildRank()

func buildRank() map[string]int {
	rank := make(map[string]int)
	i := 0
	for _, b := range PlanetOrder {
		rank[string(b)] = i
		i++
	}
	for _, b := range AsteroidOrder {
		rank[string(b)] = i
		i++
	}
	for _, a := range AngleOrder {
		rank[string(a)] = i
		i++
	}
	for _, b := range []Body{PointNorthNode, PointSouthNode, PointLilith} {
		rank[string(b)] = i
		i++
	}
	return rank
}

// Rank returns the position of an identifier in the canonical enumeration,
// used for deterministic tie-breaks. Unknown identifiers (lots, stars)
// sort after every enumerated body.
func Rank(id string) int {
	if r, ok := bodyRank[id]; ok {
		return r
	}
	return len(bodyRank)
}

// IsOuter reports whether the body is one of the slow outer planets.
func IsOuter(b Body) bool {
	_, ok := OuterPlanets[b]
	return ok
}
