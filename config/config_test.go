package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFromFile(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
ephemeris_path: /data/ephemeris.csv
lunation_path: /data/lunations.csv
house_system: whole_sign
request_timeout: 10s
geocode:
  provider: static
  lat: 52.52
  lon: 13.405
  place: Berlin
orbs:
  aspects:
    90: 7
  star_orb: 1.5
`)

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "whole_sign", cfg.HouseSystem)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "static", cfg.Geocode.Provider)
	assert.InDelta(t, 52.52, cfg.Geocode.Lat, 1e-9)
	assert.InDelta(t, 7.0, cfg.Orbs.Aspects[90], 1e-9)
	assert.InDelta(t, 1.5, cfg.Orbs.StarOrb, 1e-9)
}

func TestFromFileDefaults(t *testing.T) {
	cfg, err := FromFile(writeConfig(t, "ephemeris_path: /data/ephemeris.csv\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultHouseSystem, cfg.HouseSystem)
	assert.Equal(t, "nominatim", cfg.Geocode.Provider)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestValidation(t *testing.T) {
	_, err := FromFile(writeConfig(t, "listen_addr: ':8080'\n"))
	require.Error(t, err, "missing ephemeris path is fatal")

	_, err = FromFile(writeConfig(t, "ephemeris_path: /e.csv\nhouse_system: placidus\n"))
	require.Error(t, err)

	_, err = FromFile(writeConfig(t, "ephemeris_path: /e.csv\ngeocode:\n  provider: static\n"))
	require.Error(t, err, "static provider without coordinates")

	_, err = FromFile(writeConfig(t, "ephemeris_path: /e.csv\ngeocode:\n  provider: magic\n"))
	require.Error(t, err)
}
