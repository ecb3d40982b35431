package orbs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/astarte-labs/stellium/internal/domain"
)

func TestPolicyDefaults(t *testing.T) {
	p := NewPolicy(Config{})

	assert.Equal(t, 8.0, p.Max(0))
	assert.Equal(t, 8.0, p.Max(180))
	assert.Equal(t, 6.0, p.Max(90))
	assert.Equal(t, 6.0, p.Max(120))
	assert.Equal(t, 2.0, p.Max(45))
	assert.Equal(t, 2.0, p.Max(144))
	assert.Zero(t, p.Max(33), "angles outside the table have no orb")

	assert.Equal(t, 3.0, p.Transit(domain.BodyJupiter))
	assert.Equal(t, 4.0, p.Transit(domain.BodyPluto))
	assert.Equal(t, 2.0, p.Transit(domain.PointNorthNode))
	assert.Equal(t, 2.0, p.Transit(domain.PointSouthNode))
	assert.Equal(t, 2.0, p.Transit(domain.BodyMars), "unlisted bodies use the progression default")

	assert.Equal(t, 2.0, p.StarOrb())
	assert.Equal(t, 2.0, p.Progression())
}

func TestPolicyOverrides(t *testing.T) {
	p := NewPolicy(Config{
		Aspects: map[float64]float64{90: 7.5, 33: 1.0},
		Transits: map[domain.Body]float64{
			domain.BodySaturn:     2.5,
			domain.PointNorthNode: 1.25,
		},
		StarOrb:     1.0,
		Progression: 1.5,
	})

	assert.Equal(t, 7.5, p.Max(90))
	assert.Zero(t, p.Max(33), "override for unknown angle is ignored")
	assert.Equal(t, 2.5, p.Transit(domain.BodySaturn))
	assert.Equal(t, 1.25, p.Transit(domain.PointNorthNode))
	assert.Equal(t, 2.0, p.Transit(domain.PointSouthNode), "south node keeps its own entry")
	assert.Equal(t, 1.0, p.StarOrb())
	assert.Equal(t, 1.5, p.Progression())

	transits := p.EchoTransits()
	assert.Equal(t, 1.25, transits["nn"], "echo reflects the resolved table")
	assert.Equal(t, 2.5, transits["saturn"])
}

func TestPolicyEcho(t *testing.T) {
	p := NewPolicy(Config{})

	echo := p.Echo()
	assert.Len(t, echo, len(domain.AspectTable))
	assert.Equal(t, 8.0, echo["0"])
	assert.Equal(t, 2.0, echo["150"])

	angles := p.Angles()
	assert.Equal(t, []float64{0, 30, 45, 60, 72, 90, 120, 135, 144, 150, 180}, angles)

	transits := p.EchoTransits()
	assert.Equal(t, 2.0, transits["nn"])
	assert.Equal(t, 2.0, transits["sn"])
}
