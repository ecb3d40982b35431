package chart

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/pkg/degrees"
)

// precessionDegPerYear is the general precession in ecliptic longitude
// applied to catalog positions (catalog epoch J2000).
const precessionDegPerYear = 360.0 / 25772.0

var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

// Star is one catalog entry with J2000 ecliptic coordinates. An entry
// that failed to parse keeps its name and is reported as a warning on
// every chart instead of aborting anything.
type Star struct {
	Name    string
	Lon     float64
	Lat     float64
	invalid bool
}

// StarCatalog is the static fixed-star dataset, loaded once at startup
// and never mutated.
type StarCatalog struct {
	stars []Star
}

// DefaultStarCatalog returns the built-in ten-star catalog used when no
// dataset path is configured.
func DefaultStarCatalog() *StarCatalog {
	return &StarCatalog{stars: []Star{
		{Name: "Regulus", Lon: 149.83, Lat: 0.46},
		{Name: "Spica", Lon: 203.83, Lat: -2.06},
		{Name: "Aldebaran", Lon: 69.78, Lat: -5.47},
		{Name: "Antares", Lon: 249.76, Lat: -4.57},
		{Name: "Fomalhaut", Lon: 333.87, Lat: -21.14},
		{Name: "Sirius", Lon: 104.08, Lat: -39.61},
		{Name: "Betelgeuse", Lon: 88.75, Lat: -16.03},
		{Name: "Rigel", Lon: 76.83, Lat: -31.13},
		{Name: "Procyon", Lon: 105.68, Lat: -16.02},
		{Name: "Vega", Lon: 285.32, Lat: 61.73},
	}}
}

// LoadStarCatalog reads a catalog (CSV: name,lon,lat, J2000) from path.
// Rows with unparsable coordinates are kept as unresolvable entries so
// their warnings show up deterministically in chart output.
func LoadStarCatalog(path string) (*StarCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open star catalog")
	}
	defer f.Close()
	return ReadStarCatalog(f)
}

// ReadStarCatalog parses a catalog from r. The first row is a header.
func ReadStarCatalog(r io.Reader) (*StarCatalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read star catalog")
	}
	if len(rows) < 2 {
		return nil, errors.New("star catalog has no entries")
	}

	stars := make([]Star, 0, len(rows)-1)
	for _, row := range rows[1:] {
		star := Star{Name: row[0]}
		lon, lonErr := strconv.ParseFloat(row[1], 64)
		lat, latErr := strconv.ParseFloat(row[2], 64)
		if lonErr != nil || latErr != nil || math.IsNaN(lon) || math.IsNaN(lat) {
			star.invalid = true
		} else {
			star.Lon = degrees.Normalize(lon)
			star.Lat = lat
		}
		stars = append(stars, star)
	}
	return &StarCatalog{stars: stars}, nil
}

// Conjunctions scans the catalog against the targets and returns every
// star within starOrb of a target longitude, plus warnings for catalog
// entries that could not be resolved. The scan order (catalog order,
// then target order) fixes the output order.
func (c *StarCatalog) Conjunctions(at time.Time, targets []domain.Target, starOrb float64) ([]domain.StarHit, []string) {
	years := at.Sub(j2000).Hours() / 24.0 / 365.25

	var hits []domain.StarHit
	var warnings []string
	for _, star := range c.stars {
		if star.invalid {
			warnings = append(warnings, fmt.Sprintf("star_unresolved:%s", star.Name))
			continue
		}
		starLon := degrees.Normalize(star.Lon + years*precessionDegPerYear)
		for _, target := range targets {
			orb := degrees.Distance(starLon, target.Lon)
			if orb > starOrb {
				continue
			}
			hits = append(hits, domain.StarHit{
				Star:      star.Name,
				Target:    target.Name,
				Orb:       domain.Deg(orb),
				StarLon:   domain.Deg(starLon),
				StarLat:   domain.Deg(star.Lat),
				TargetLon: domain.Deg(target.Lon),
			})
		}
	}
	return hits, warnings
}
