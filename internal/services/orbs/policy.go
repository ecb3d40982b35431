// Package orbs resolves allowed orb widths for aspects, timelines and
// fixed-star conjunctions. The resolved tables are echoed back to
// callers so any result can be reproduced offline.
package orbs

import (
	"sort"
	"strconv"

	"github.com/astarte-labs/stellium/internal/domain"
)

// Defaults. Majors on the conjunction/opposition axis get the widest
// orb, remaining majors slightly less, minors a tight band.
const (
	DefaultAxisOrb  = 8.0
	DefaultMajorOrb = 6.0
	DefaultMinorOrb = 2.0

	DefaultStarOrb        = 2.0
	DefaultProgressionOrb = 2.0
	DefaultNodesOrb       = 2.0
)

// DefaultTransitOrbs maps moving bodies to their transit orb.
var DefaultTransitOrbs = map[domain.Body]float64{
	domain.BodyJupiter: 3.0,
	domain.BodySaturn:  3.0,
	domain.BodyUranus:  4.0,
	domain.BodyNeptune: 4.0,
	domain.BodyPluto:   4.0,
}

// Policy is an immutable orb lookup, built once from configuration.
type Policy struct {
	byAngle     map[float64]float64
	transit     map[domain.Body]float64
	starOrb     float64
	progression float64
}

// Config overrides parts of the default tables. Zero values mean
// "use the default".
type Config struct {
	Aspects     map[float64]float64     `yaml:"aspects"`
	Transits    map[domain.Body]float64 `yaml:"transits"`
	StarOrb     float64                 `yaml:"star_orb"`
	Progression float64                 `yaml:"progression"`
}

// NewPolicy builds the resolved policy from defaults plus overrides.
func NewPolicy(cfg Config) *Policy {
	byAngle := make(map[float64]float64, len(domain.AspectTable))
	for _, def := range domain.AspectTable {
		switch {
		case def.Angle == 0 || def.Angle == 180:
			byAngle[def.Angle] = DefaultAxisOrb
		case def.Class == domain.AspectMajor:
			byAngle[def.Angle] = DefaultMajorOrb
		default:
			byAngle[def.Angle] = DefaultMinorOrb
		}
	}
	for angle, orb := range cfg.Aspects {
		if domain.KnownAngle(angle) && orb > 0 {
			byAngle[angle] = orb
		}
	}

	transit := make(map[domain.Body]float64, len(DefaultTransitOrbs)+2)
	for body, orb := range DefaultTransitOrbs {
		transit[body] = orb
	}
	transit[domain.PointNorthNode] = DefaultNodesOrb
	transit[domain.PointSouthNode] = DefaultNodesOrb
	for body, orb := range cfg.Transits {
		if orb > 0 {
			transit[body] = orb
		}
	}

	starOrb := cfg.StarOrb
	if starOrb <= 0 {
		starOrb = DefaultStarOrb
	}
	progression := cfg.Progression
	if progression <= 0 {
		progression = DefaultProgressionOrb
	}

	return &Policy{
		byAngle:     byAngle,
		transit:     transit,
		starOrb:     starOrb,
		progression: progression,
	}
}

// Max returns the allowed orb for an aspect angle. Unknown angles are
// rejected at the API boundary, so the zero return here only guards
// against programming errors.
func (p *Policy) Max(angle float64) float64 {
	return p.byAngle[angle]
}

// Transit returns the orb for a moving body in transit timelines.
// Bodies without a table entry fall back to the progression default,
// matching how slow pairs are treated.
func (p *Policy) Transit(body domain.Body) float64 {
	if orb, ok := p.transit[body]; ok {
		return orb
	}
	return p.progression
}

// Progression returns the orb for progressed timelines.
func (p *Policy) Progression() float64 { return p.progression }

// StarOrb returns the fixed-star conjunction orb.
func (p *Policy) StarOrb() float64 { return p.starOrb }

// Echo renders the resolved aspect table keyed by integer angle, ready
// for the response envelope.
func (p *Policy) Echo() map[string]float64 {
	out := make(map[string]float64, len(p.byAngle))
	for angle, orb := range p.byAngle {
		out[strconv.Itoa(int(angle))] = orb
	}
	return out
}

// EchoTransits renders the resolved transit orb table.
func (p *Policy) EchoTransits() map[string]float64 {
	out := make(map[string]float64, len(p.transit))
	for body, orb := range p.transit {
		out[string(body)] = orb
	}
	return out
}

// Angles returns the configured aspect angles in ascending order.
func (p *Policy) Angles() []float64 {
	out := make([]float64, 0, len(p.byAngle))
	for angle := range p.byAngle {
		out = append(out, angle)
	}
	sort.Float64s(out)
	return out
}
