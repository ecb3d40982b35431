package domain

import "time"

// ChartType selects how a chart frame is derived.
type ChartType string

const (
	ChartNatal                ChartType = "natal"
	ChartMoment               ChartType = "moment"
	ChartSolarArc             ChartType = "solar_arc"
	ChartSecondaryProgression ChartType = "secondary_progression"
)

// BodyPosition is a fully resolved position of a body or point.
type BodyPosition struct {
	Lon        Deg  `json:"lon"`
	Lat        Deg  `json:"lat"`
	Speed      Deg  `json:"speed"`
	Retrograde bool `json:"retrograde"`
	Sign       Sign `json:"sign"`
	DegInSign  Deg  `json:"deg_in_sign"`
	House      int  `json:"house"`
}

// AnglePosition is a resolved chart angle. Angles carry no speed; for
// aspect matching they are treated as stationary.
type AnglePosition struct {
	Lon       Deg  `json:"lon"`
	Sign      Sign `json:"sign"`
	DegInSign Deg  `json:"deg_in_sign"`
}

// Houses holds the resolved house system and its twelve cusps,
// keyed "1".."12".
type Houses struct {
	System string                   `json:"system"`
	Cusps  map[string]AnglePosition `json:"cusps"`
}

// Lot identifies a Hermetic lot.
type Lot string

const (
	LotFortune   Lot = "fortune"
	LotSpirit    Lot = "spirit"
	LotNecessity Lot = "necessity"
	LotLove      Lot = "love"
	LotCourage   Lot = "courage"
	LotVictory   Lot = "victory"
	LotNemesis   Lot = "nemesis"
)

// LotOrder is the canonical lot enumeration.
var LotOrder = []Lot{
	LotFortune, LotSpirit, LotNecessity, LotLove, LotCourage, LotVictory, LotNemesis,
}

// Points groups the derived chart points. Lilith is nil when its
// ephemeris range is unavailable; the chart then carries a warning and
// no target for it.
type Points struct {
	NorthNode BodyPosition         `json:"nn"`
	SouthNode BodyPosition         `json:"sn"`
	Lilith    *BodyPosition        `json:"lilith,omitempty"`
	Lots      map[Lot]BodyPosition `json:"lots"`
}

// StarHit records a fixed star conjunct a chart target.
type StarHit struct {
	Star      string `json:"star"`
	Target    string `json:"target"`
	Orb       Deg    `json:"orb"`
	StarLon   Deg    `json:"star_lon"`
	StarLat   Deg    `json:"star_lat"`
	TargetLon Deg    `json:"target_lon"`
}

// ChartMeta describes how a frame was derived.
type ChartMeta struct {
	ChartType       ChartType `json:"chart_type"`
	Timestamp       time.Time `json:"timestamp_utc"`
	SourceTimestamp time.Time `json:"source_timestamp_utc,omitzero"`
	TargetTimestamp time.Time `json:"target_timestamp_utc,omitzero"`
	SolarArcSun     string    `json:"solar_arc_sun,omitempty"`
	SolarArcDeg     Deg       `json:"solar_arc_deg,omitempty"`
	Location        Location  `json:"location"`
	IsDayChart      bool      `json:"is_day_chart"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// ChartFrame is one fully assembled chart snapshot. A frame is immutable
// once assembled and owned by the request that created it; maps are
// never written after assembly.
type ChartFrame struct {
	Meta      ChartMeta              `json:"meta"`
	Angles    map[Angle]AnglePosition `json:"angles"`
	Houses    Houses                 `json:"houses"`
	Bodies    map[Body]BodyPosition  `json:"bodies"`
	Asteroids map[Body]BodyPosition  `json:"asteroids"`
	Points    Points                 `json:"points"`
	Aspects   []AspectRecord         `json:"aspects"`
	Stars     []StarHit              `json:"stars"`
}

// Target is a named longitude used by aspect matching and timeline
// scans. Speed is zero for angles and lots.
type Target struct {
	Name  string
	Lon   float64
	Lat   float64
	Speed float64
	House int
	Sign  Sign
}

// Targets returns the frame's aspect targets in the fixed enumeration
// order: planets, asteroids, angles, nodes, lilith. Lots are excluded
// from cross-frame matching and carried separately by the assembler.
func (f *ChartFrame) Targets() []Target {
	targets := make([]Target, 0, len(f.Bodies)+len(f.Asteroids)+8)
	for _, name := range PlanetOrder {
		if pos, ok := f.Bodies[name]; ok {
			targets = append(targets, bodyTarget(string(name), pos))
		}
	}
	for _, name := range AsteroidOrder {
		if pos, ok := f.Asteroids[name]; ok {
			targets = append(targets, bodyTarget(string(name), pos))
		}
	}
	for _, name := range AngleOrder {
		if pos, ok := f.Angles[name]; ok {
			targets = append(targets, Target{
				Name: string(name),
				Lon:  float64(pos.Lon),
				Sign: pos.Sign,
			})
		}
	}
	targets = append(targets,
		bodyTarget(string(PointNorthNode), f.Points.NorthNode),
		bodyTarget(string(PointSouthNode), f.Points.SouthNode),
	)
	if f.Points.Lilith != nil {
		targets = append(targets, bodyTarget(string(PointLilith), *f.Points.Lilith))
	}
	return targets
}

func bodyTarget(name string, pos BodyPosition) Target {
	return Target{
		Name:  name,
		Lon:   float64(pos.Lon),
		Lat:   float64(pos.Lat),
		Speed: float64(pos.Speed),
		House: pos.House,
		Sign:  pos.Sign,
	}
}
