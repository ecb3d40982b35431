// Package config loads the service configuration from a YAML file or
// from command-line flags. The resolved configuration, orb tables
// included, is echoed on the /v1/config endpoint so any result can be
// reproduced offline.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/orbs"
)

const (
	DefaultListenAddr  = ":8080"
	DefaultHouseSystem = "equal"
)

// Geocode selects and parameterizes the location resolver.
type Geocode struct {
	// Provider is nominatim, geoip or static.
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url,omitempty"`

	// Static coordinates, used when Provider is static.
	Lat   float64 `yaml:"lat,omitempty"`
	Lon   float64 `yaml:"lon,omitempty"`
	Place string  `yaml:"place,omitempty"`
}

// StaticLocation builds the fixed location used by the static provider.
func (g Geocode) StaticLocation() domain.Location {
	return domain.Location{Lat: g.Lat, Lon: g.Lon, Place: g.Place}
}

// Config is the full service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// TLSDomain enables automatic certificates for the domain when set.
	TLSDomain string `yaml:"tls_domain,omitempty"`

	// EphemerisPath points at the CSV position dataset.
	EphemerisPath string `yaml:"ephemeris_path"`

	// StarCatalogPath overrides the built-in fixed-star catalog.
	StarCatalogPath string `yaml:"star_catalog_path,omitempty"`

	// LunationPath points at the static lunation dataset.
	LunationPath string `yaml:"lunation_path,omitempty"`

	// JournalDir holds the determinism audit WAL. Empty disables it.
	JournalDir string `yaml:"journal_dir,omitempty"`

	HouseSystem string `yaml:"house_system"`

	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`

	Geocode Geocode     `yaml:"geocode"`
	Orbs    orbs.Config `yaml:"orbs"`
}

// Get resolves configuration: a --config YAML file wins, otherwise the
// individual flags fill a default config.
func Get() (*Config, error) {
	path := flag.String("config", "", "path to yaml config")
	listen := flag.String("listen", DefaultListenAddr, "listen address, example: :8080")
	ephemeris := flag.String("ephemeris", "", "path to the ephemeris CSV dataset")
	houses := flag.String("houses", DefaultHouseSystem, "house system: equal or whole_sign")
	flag.Parse()

	if *path != "" {
		return FromFile(*path)
	}

	cfg := &Config{
		ListenAddr:    *listen,
		EphemerisPath: *ephemeris,
		HouseSystem:   *houses,
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

// FromFile loads and validates a YAML config.
func FromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.HouseSystem == "" {
		c.HouseSystem = DefaultHouseSystem
	}
	if c.Geocode.Provider == "" {
		c.Geocode.Provider = "nominatim"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.EphemerisPath == "" {
		return errors.New("ephemeris path is required")
	}
	switch c.HouseSystem {
	case "equal", "whole_sign":
	default:
		return errors.Errorf("unknown house system %q", c.HouseSystem)
	}
	switch c.Geocode.Provider {
	case "nominatim", "geoip":
	case "static":
		if c.Geocode.Lat == 0 && c.Geocode.Lon == 0 && c.Geocode.Place == "" {
			return errors.New("static geocode provider needs coordinates")
		}
	default:
		return errors.Errorf("unknown geocode provider %q", c.Geocode.Provider)
	}
	return nil
}
