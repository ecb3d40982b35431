// Command stellium serves deterministic astrological charts, transits
// and contact timelines over HTTP.
//
// Usage:
//
//	stellium --config config.yaml
//	stellium --ephemeris ephemeris.csv (uses CLI arguments)
//	stellium setup (interactive configuration wizard)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/astarte-labs/stellium/config"
	"github.com/astarte-labs/stellium/internal/services/aspects"
	"github.com/astarte-labs/stellium/internal/services/chart"
	"github.com/astarte-labs/stellium/internal/services/ephemeris"
	"github.com/astarte-labs/stellium/internal/services/geocode"
	"github.com/astarte-labs/stellium/internal/services/lunations"
	"github.com/astarte-labs/stellium/internal/services/orbs"
	"github.com/astarte-labs/stellium/internal/services/progression"
	"github.com/astarte-labs/stellium/internal/services/timeline"
	"github.com/astarte-labs/stellium/internal/setup"
	"github.com/astarte-labs/stellium/internal/storage/journal"
	"github.com/astarte-labs/stellium/internal/web"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	engine, cleanup, err := buildEngine(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build engine", zap.Error(err))
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg, engine, logger)
	if err := server.Start(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			return nil, err
		}
		return config.FromFile("config.gen.yaml")
	}
	return config.Get()
}

func buildEngine(cfg *config.Config, logger *zap.Logger) (web.Engine, func(), error) {
	cleanup := func() {}

	provider, err := ephemeris.LoadTable(cfg.EphemerisPath)
	if err != nil {
		return web.Engine{}, cleanup, err
	}

	houses, err := chart.NewHouseCalculator(cfg.HouseSystem)
	if err != nil {
		return web.Engine{}, cleanup, err
	}

	stars := chart.DefaultStarCatalog()
	if cfg.StarCatalogPath != "" {
		if stars, err = chart.LoadStarCatalog(cfg.StarCatalogPath); err != nil {
			return web.Engine{}, cleanup, err
		}
	}

	policy := orbs.NewPolicy(cfg.Orbs)
	assembler := chart.NewAssembler(provider, houses, policy, stars, logger)

	engine := web.Engine{
		Assembler: assembler,
		Mapper:    progression.NewMapper(provider, assembler, policy, logger),
		Scanner:   timeline.NewScanner(provider, policy, logger),
		Matcher:   aspects.NewMatcher(policy),
		Policy:    policy,
	}

	if cfg.LunationPath != "" {
		if engine.Lunations, err = lunations.Load(cfg.LunationPath); err != nil {
			return web.Engine{}, cleanup, err
		}
	}

	client := &http.Client{Timeout: cfg.RequestTimeout}
	switch cfg.Geocode.Provider {
	case "geoip":
		engine.Resolver = geocode.NewGeoIP(cfg.Geocode.BaseURL, client, logger)
	case "static":
		engine.Resolver = geocode.Static{Location: cfg.Geocode.StaticLocation()}
	default:
		engine.Resolver = geocode.NewNominatim(cfg.Geocode.BaseURL, client, logger)
	}

	if cfg.JournalDir != "" {
		store, err := journal.NewWALStore(cfg.JournalDir)
		if err != nil {
			return web.Engine{}, cleanup, err
		}
		engine.Journal = store
		cleanup = func() { store.Close() }
	}

	return engine, cleanup, nil
}
