// Package web is the thin HTTP surface over the engine. Handlers
// validate input, call the services and wrap results in the response
// envelope; they never reorder or re-round engine output.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/astarte-labs/stellium/config"
	"github.com/astarte-labs/stellium/internal/domain"
	"github.com/astarte-labs/stellium/internal/services/aspects"
	"github.com/astarte-labs/stellium/internal/services/chart"
	"github.com/astarte-labs/stellium/internal/services/geocode"
	"github.com/astarte-labs/stellium/internal/services/lunations"
	"github.com/astarte-labs/stellium/internal/services/orbs"
	"github.com/astarte-labs/stellium/internal/services/progression"
	"github.com/astarte-labs/stellium/internal/services/timeline"
	"github.com/astarte-labs/stellium/internal/storage/journal"
)

// Engine bundles the services the handlers dispatch to.
type Engine struct {
	Assembler *chart.Assembler
	Mapper    *progression.Mapper
	Scanner   *timeline.Scanner
	Matcher   *aspects.Matcher
	Policy    *orbs.Policy
	Lunations *lunations.Catalog
	Resolver  geocode.Resolver
	Journal   *journal.WALStore
}

// Server exposes the engine over HTTP.
type Server struct {
	cfg    *config.Config
	engine Engine
	log    *zap.Logger
}

func NewServer(cfg *config.Config, engine Engine, log *zap.Logger) *Server {
	return &Server{cfg: cfg, engine: engine, log: log}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/config", s.handleConfig)
	mux.HandleFunc("POST /v1/chart", s.handleChart)
	mux.HandleFunc("POST /v1/transit", s.handleTransit)
	mux.HandleFunc("POST /v1/timeline", s.handleTimeline)
	mux.HandleFunc("GET /v1/lunations", s.handleLunations)
	return mux
}

// Start runs the server until ctx is cancelled. With a TLS domain
// configured, certificates come from Let's Encrypt automatically.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var err error
	if s.cfg.TLSDomain != "" {
		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(s.cfg.TLSDomain),
			Cache:      autocert.DirCache("certs"),
		}
		server.TLSConfig = manager.TLSConfig()
		s.log.Info("serving with TLS", zap.String("domain", s.cfg.TLSDomain), zap.String("addr", s.cfg.ListenAddr))
		err = server.ListenAndServeTLS("", "")
	} else {
		s.log.Info("serving", zap.String("addr", s.cfg.ListenAddr))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// settings builds the configuration echo shared by every handler.
func (s *Server) settings() *Settings {
	return &Settings{
		HouseSystem:  s.cfg.HouseSystem,
		AspectAngles: s.engine.Policy.Angles(),
		Orbs:         s.engine.Policy.Echo(),
		TransitOrbs:  s.engine.Policy.EchoTransits(),
		StarOrb:      domain.Deg(s.engine.Policy.StarOrb()),
		Progression:  domain.Deg(s.engine.Policy.Progression()),
	}
}
