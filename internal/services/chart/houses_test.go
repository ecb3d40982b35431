package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

var testLoc = domain.Location{Lat: 52.52, Lon: 13.405, Place: "Berlin"}

func TestNewHouseCalculator(t *testing.T) {
	for _, system := range []string{SystemEqual, SystemWholeSign, ""} {
		calc, err := NewHouseCalculator(system)
		require.NoError(t, err)
		require.NotNil(t, calc)
	}

	_, err := NewHouseCalculator("placidus")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInputInvalid)
}

func TestEqualHousesInvariants(t *testing.T) {
	calc, err := NewHouseCalculator(SystemEqual)
	require.NoError(t, err)

	at := time.Date(1990, 1, 1, 12, 0, 0, 0, time.UTC)
	set, err := calc.Houses(at, testLoc)
	require.NoError(t, err)

	assert.InDelta(t, degrees.Normalize(set.Asc+180), set.Dsc, 1e-9)
	assert.InDelta(t, degrees.Normalize(set.MC+180), set.IC, 1e-9)
	assert.InDelta(t, set.Asc, set.Cusps[0], 1e-9, "first cusp is the ascendant")
	for i := 0; i < 12; i++ {
		gap := degrees.Distance(set.Cusps[i], set.Cusps[(i+1)%12])
		assert.InDelta(t, 30.0, gap, 1e-9, "equal cusps are 30 degrees apart")
	}
}

func TestWholeSignHousesStartOnSignBoundary(t *testing.T) {
	calc, err := NewHouseCalculator(SystemWholeSign)
	require.NoError(t, err)

	at := time.Date(1990, 1, 1, 12, 0, 0, 0, time.UTC)
	set, err := calc.Houses(at, testLoc)
	require.NoError(t, err)

	assert.Zero(t, float64(int(set.Cusps[0])%30), "whole-sign cusps sit on sign boundaries")
	sign, _ := domain.SignFor(set.Asc)
	firstSign, _ := domain.SignFor(set.Cusps[0])
	assert.Equal(t, sign, firstSign)
}

func TestHousesDeterministic(t *testing.T) {
	calc, err := NewHouseCalculator(SystemEqual)
	require.NoError(t, err)

	at := time.Date(2026, 3, 20, 6, 30, 0, 0, time.UTC)
	first, err := calc.Houses(at, testLoc)
	require.NoError(t, err)
	second, err := calc.Houses(at, testLoc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHousesRejectsBadLatitude(t *testing.T) {
	calc, err := NewHouseCalculator(SystemEqual)
	require.NoError(t, err)

	_, err = calc.Houses(time.Now(), domain.Location{Lat: 91})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInputInvalid)
}

func TestHouseOf(t *testing.T) {
	var cusps [12]float64
	for i := range cusps {
		cusps[i] = degrees.Normalize(350 + float64(i)*30)
	}

	tests := []struct {
		name     string
		lon      float64
		expected int
	}{
		{name: "on first cusp", lon: 350, expected: 1},
		{name: "inside first house across zero", lon: 5, expected: 1},
		{name: "on second cusp", lon: 20, expected: 2},
		{name: "last house", lon: 340, expected: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HouseOf(tt.lon, cusps))
		})
	}
}
