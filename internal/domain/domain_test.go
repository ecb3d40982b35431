package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignFor(t *testing.T) {
	tests := []struct {
		name      string
		lon       float64
		sign      Sign
		degInSign float64
	}{
		{name: "start of zodiac", lon: 0, sign: "Aries", degInSign: 0},
		{name: "mid taurus", lon: 45.5, sign: "Taurus", degInSign: 15.5},
		{name: "last degree", lon: 359.99, sign: "Pisces", degInSign: 29.99},
		{name: "wraps", lon: 360.0, sign: "Aries", degInSign: 0},
		{name: "negative input", lon: -10, sign: "Pisces", degInSign: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sign, deg := SignFor(tt.lon)
			assert.Equal(t, tt.sign, sign)
			assert.InDelta(t, tt.degInSign, deg, 1e-9)
		})
	}
}

func TestRankFollowsEnumeration(t *testing.T) {
	assert.Less(t, Rank("sun"), Rank("moon"))
	assert.Less(t, Rank("pluto"), Rank("ceres"))
	assert.Less(t, Rank("lilith_asteroid"), Rank("asc"))
	assert.Less(t, Rank("ic"), Rank("nn"))
	assert.Less(t, Rank("nn"), Rank("sn"))
	// unknown identifiers sort last
	assert.Greater(t, Rank("lot_fortune"), Rank("lilith"))
}

func TestDegMarshalRoundsToTwoDecimals(t *testing.T) {
	tests := []struct {
		name     string
		in       Deg
		expected string
	}{
		{name: "plain", in: 123.456, expected: "123.46"},
		{name: "half rounds away from zero", in: 0.125, expected: "0.13"},
		{name: "negative", in: -0.005, expected: "-0.01"},
		{name: "integer stays short", in: 95, expected: "95"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(raw))
		})
	}
}

func TestContactEventOrdering(t *testing.T) {
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}

	early := &ContactEvent{
		Moving: BodyPluto,
		Target: "moon",
		Angle:  180,
		Exact:  PhasePoint{Phase: PhaseExact, Timestamp: at("2026-01-01T00:00:00Z")},
	}
	late := &ContactEvent{
		Moving: BodySun,
		Target: "sun",
		Angle:  0,
		Exact:  PhasePoint{Phase: PhaseExact, Timestamp: at("2026-06-01T00:00:00Z")},
	}
	// chronological order wins over body enumeration order
	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))

	// simultaneous events fall back to body rank, then angle
	tieA := &ContactEvent{Moving: BodySun, Target: "moon", Angle: 90, Exact: early.Exact}
	tieB := &ContactEvent{Moving: BodyMoon, Target: "moon", Angle: 0, Exact: early.Exact}
	assert.True(t, tieA.Before(tieB))

	tieC := &ContactEvent{Moving: BodySun, Target: "moon", Angle: 120, Exact: early.Exact}
	assert.True(t, tieA.Before(tieC))
}
