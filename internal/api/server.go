// Package api provides the HTTP server for Dragonfall.
// It exposes the postback ingestion surface for the game server, the
// public fetch surface for the game client, and an operator admin API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dragonfall-gg/dragonfall/internal/app/engine"
	"github.com/dragonfall-gg/dragonfall/internal/domain"
)

// Server is the Dragonfall HTTP API server.
type Server struct {
	engine          *engine.Engine
	store           Store
	recorder        domain.Recorder
	alerter         domain.Alerter
	postbackLimiter domain.Limiter
	apiLimiter      domain.Limiter
	postbackKey     string
	adminToken      string
	metricsEnabled  bool
	logger          *slog.Logger
}

// Store is the persistence surface the read paths (fetch, admin) use.
// The engine owns every write on the postback path.
type Store interface {
	domain.LedgerStore
	domain.HouseStore
	domain.BountyStore
	domain.AuditStore
	domain.SnapshotStore
	ListCatalogItems(ctx context.Context) ([]domain.CatalogItem, error)
}

// Options configures a Server.
type Options struct {
	Engine          *engine.Engine
	Store           Store
	Recorder        domain.Recorder
	Alerter         domain.Alerter
	PostbackLimiter domain.Limiter
	APILimiter      domain.Limiter
	PostbackKey     string
	AdminToken      string
	Logger          *slog.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:          opts.Engine,
		store:           opts.Store,
		recorder:        opts.Recorder,
		alerter:         opts.Alerter,
		postbackLimiter: opts.PostbackLimiter,
		apiLimiter:      opts.APILimiter,
		postbackKey:     opts.PostbackKey,
		adminToken:      opts.AdminToken,
		logger:          logger,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Game-server postback surface
	r.Route("/api/postbacks", func(r chi.Router) {
		r.Post("/{slug}/postback", s.handlePostback)
		r.Get("/{slug}/fetch", s.handleFetch)
	})

	// Public read endpoints (best effort, rate limited)
	r.Get("/api/player-count/latest", s.handleLatestPlayerCount)
	r.Get("/api/houses", s.handleListHouses)

	// Operator admin surface
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Post("/players", s.handleAdminRegisterPlayer)
		r.Put("/players/{userID}/balance", s.handleAdminSetBalance)
		r.Get("/bounties", s.handleAdminListBounties)
		r.Post("/bounties", s.handleAdminCreateBounty)
		r.Delete("/bounties/{bountyID}", s.handleAdminCancelBounty)
		r.Get("/logs", s.handleAdminListLogs)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Request Helpers ────────────────────────────────────────────────────────

// clientIP is the rate-limit identity of the caller. middleware.RealIP has
// already folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}

// authenticate compares the ?key= credential against the configured
// postback secret. No secret configured means permanent rejection.
func (s *Server) authenticate(r *http.Request) bool {
	if s.postbackKey == "" {
		return false
	}
	return r.URL.Query().Get("key") == s.postbackKey
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
