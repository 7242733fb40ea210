// Package server exposes the marketplace over HTTP: catalog views, purchase
// settlement, certificates, auth, uploads, and the map layer.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/aquanexus/credits-cli/internal/auth"
	"github.com/aquanexus/credits-cli/internal/market"
	"github.com/aquanexus/credits-cli/internal/media"
	"github.com/aquanexus/credits-cli/internal/satellite"
	"github.com/aquanexus/credits-cli/internal/store"
)

// Server wires the domain services behind the HTTP API.
type Server struct {
	store    store.Store
	market   *market.Market
	auth     *auth.Service
	limiter  *auth.LoginLimiter
	uploader *media.Uploader
	analyzer *satellite.Analyzer
	mapToken string
}

// Options carries the dependencies for New. Uploader may be nil, in which
// case the upload endpoint reports the feature as unavailable.
type Options struct {
	Store    store.Store
	Market   *market.Market
	Auth     *auth.Service
	Limiter  *auth.LoginLimiter
	Uploader *media.Uploader
	Analyzer *satellite.Analyzer
	MapToken string
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Limiter == nil {
		opts.Limiter = auth.NewLoginLimiter(0, 0)
	}
	return &Server{
		store:    opts.Store,
		market:   opts.Market,
		auth:     opts.Auth,
		limiter:  opts.Limiter,
		uploader: opts.Uploader,
		analyzer: opts.Analyzer,
		mapToken: opts.MapToken,
	}
}

// Router builds the chi router with CORS for the SPA origins.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.limiter.Wrap(s.handleRegister))
		r.Post("/auth/login", s.limiter.Wrap(s.handleLogin))
		r.Post("/auth/logout", s.handleLogout)

		r.Get("/projects", s.handleListProjects)
		r.Get("/projects/{id}", s.handleGetProject)
		r.Get("/projects/{id}/audit", s.handleAuditProject)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/companies", s.handleListCompanies)
		r.Get("/companies/{id}", s.handleGetCompany)
		r.Get("/certificates", s.handleListCertificates)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/map/features", s.handleMapFeatures)
		r.Get("/map/config", s.handleMapConfig)
		r.Get("/dashboard", s.handleDashboard)

		// Mutations require a session.
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Get("/auth/me", s.handleMe)
			r.Post("/projects", s.handleCreateProject)
			r.Post("/buy-credits", s.handleBuyCredits)
			r.Post("/uploads", s.handleUpload)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
