// Package server exposes the arena over an HTTP JSON API. All routes
// under /v1 require a bearer token; /healthz answers without one.
package server

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/louisbranch/emberforge/internal/arena/service"
	"github.com/louisbranch/emberforge/internal/auth"
	"github.com/louisbranch/emberforge/internal/platform/timeouts"
)

// Version identifies the arena build reported by the version endpoint.
const Version = "1.0.0"

// Server handles HTTP requests.
type Server struct {
	arena    *service.Service
	verifier auth.Verifier
	logger   *log.Logger
}

// New creates an API server. A nil logger falls back to stdout.
func New(arena *service.Service, verifier auth.Verifier, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[API] ", log.LstdFlags)
	}
	return &Server{arena: arena, verifier: verifier, logger: logger}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeouts.Request))
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/cards", s.handleMintCard)
		r.Get("/cards", s.handleListCards)
		r.Post("/cards/fuse", s.handleFuseCards)
		r.Get("/cards/{cardID}", s.handleGetCard)
		r.Post("/cards/{cardID}/transfer", s.handleTransferCard)

		r.Post("/battles", s.handleCreateBattle)
		r.Get("/battles", s.handleListBattles)
		r.Get("/battles/{battleID}", s.handleGetBattle)
		r.Post("/battles/{battleID}/join", s.handleJoinBattle)
		r.Post("/battles/{battleID}/reveal", s.handleRevealRound)
		r.Post("/battles/{battleID}/claim", s.handleClaimPrize)
		r.Post("/battles/{battleID}/cancel", s.handleCancelBattle)

		r.Get("/stats", s.handleStats)
	})

	return r
}
