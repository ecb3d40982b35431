package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astarte-labs/stellium/internal/domain"
)

const sampleCatalog = `name,lon,lat
Regulus,149.83,0.46
Spica,203.83,-2.06
Broken,not-a-number,1.0
`

func TestReadStarCatalog(t *testing.T) {
	catalog, err := ReadStarCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, catalog.stars, 3)
	assert.False(t, catalog.stars[0].invalid)
	assert.True(t, catalog.stars[2].invalid)
}

func TestReadStarCatalogEmpty(t *testing.T) {
	_, err := ReadStarCatalog(strings.NewReader("name,lon,lat\n"))
	require.Error(t, err)
}

func TestConjunctionsAtEpoch(t *testing.T) {
	catalog, err := ReadStarCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	targets := []domain.Target{
		{Name: "sun", Lon: 150.5},  // 0.67 deg from Regulus
		{Name: "moon", Lon: 300.0}, // nowhere near either star
	}
	hits, warnings := catalog.Conjunctions(j2000, targets, 2)

	require.Len(t, hits, 1)
	assert.Equal(t, "Regulus", hits[0].Star)
	assert.Equal(t, "sun", hits[0].Target)
	assert.InDelta(t, 0.67, float64(hits[0].Orb), 1e-9)

	require.Len(t, warnings, 1)
	assert.Equal(t, "star_unresolved:Broken", warnings[0])
}

func TestConjunctionsPrecession(t *testing.T) {
	catalog := &StarCatalog{stars: []Star{{Name: "Regulus", Lon: 149.83}}}

	// ~72 years of precession moves the star about one degree forward.
	later := j2000.AddDate(72, 0, 0)
	targets := []domain.Target{{Name: "mc", Lon: 149.83}}

	hits, _ := catalog.Conjunctions(later, targets, 2)
	require.Len(t, hits, 1)
	drift := float64(hits[0].StarLon) - 149.83
	assert.InDelta(t, 1.0, drift, 0.05)
	assert.InDelta(t, drift, float64(hits[0].Orb), 1e-9)
}

func TestConjunctionsOrbBoundaryInclusive(t *testing.T) {
	catalog := &StarCatalog{stars: []Star{{Name: "Spica", Lon: 203.5}}}

	hits, _ := catalog.Conjunctions(j2000, []domain.Target{{Name: "asc", Lon: 205.5}}, 2)
	require.Len(t, hits, 1, "a target exactly at the star orb still registers")

	hits, _ = catalog.Conjunctions(j2000, []domain.Target{{Name: "asc", Lon: 205.75}}, 2)
	assert.Empty(t, hits)
}

func TestConjunctionsOrderIsCatalogThenTarget(t *testing.T) {
	catalog := &StarCatalog{stars: []Star{
		{Name: "Vega", Lon: 285.32},
		{Name: "Antares", Lon: 249.76},
	}}
	targets := []domain.Target{
		{Name: "sun", Lon: 285.0},
		{Name: "moon", Lon: 250.0},
	}

	for range 3 {
		hits, _ := catalog.Conjunctions(j2000, targets, 2)
		require.Len(t, hits, 2)
		assert.Equal(t, "Vega", hits[0].Star)
		assert.Equal(t, "Antares", hits[1].Star)
	}
}
