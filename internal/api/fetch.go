package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
	"github.com/dragonfall-gg/dragonfall/internal/infra/observability"
)

// ─── Fetch Surface ──────────────────────────────────────────────────────────
// GET /api/postbacks/{slug}/fetch
//
// Read-only companion for the game client: no auth key, rate limited,
// no mutation. These are best-effort display surfaces: an unexpected
// store failure degrades to an empty result set, never an error page.

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	if !s.apiLimiter.Allow("fetch-ip:" + clientIP(r)) {
		observability.RateLimited.WithLabelValues("fetch").Inc()
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	slug := chi.URLParam(r, "slug")
	switch {
	case strings.HasPrefix(slug, "bounties"):
		s.fetchBounties(w, r)
	case strings.HasPrefix(slug, "catalog"):
		s.fetchCatalog(w, r)
	default:
		writeError(w, http.StatusNotFound, "Unknown fetch type")
	}
}

func (s *Server) fetchBounties(w http.ResponseWriter, r *http.Request) {
	type bountyItem struct {
		TargetRobloxUserID string `json:"target_roblox_userid"`
		Amount             int64  `json:"amount"`
	}

	bounties, err := s.store.ListBounties(r.Context(), domain.BountyActive)
	if err != nil {
		s.logger.Error("list bounties", "error", err)
		bounties = nil
	}
	out := make([]bountyItem, 0, len(bounties))
	for _, b := range bounties {
		out = append(out, bountyItem{TargetRobloxUserID: b.TargetRobloxUserID, Amount: b.Amount})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) fetchCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListCatalogItems(r.Context())
	if err != nil {
		s.logger.Error("list catalog", "error", err)
		items = nil
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ─── Public Read Endpoints ──────────────────────────────────────────────────

func (s *Server) handleLatestPlayerCount(w http.ResponseWriter, r *http.Request) {
	if !s.apiLimiter.Allow("api-ip:" + clientIP(r)) {
		observability.RateLimited.WithLabelValues("api").Inc()
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}
	snap, err := s.store.LatestPlayerCount(r.Context())
	if err != nil {
		s.logger.Error("latest player count", "error", err)
	}
	if snap == nil {
		writeJSON(w, http.StatusOK, map[string]any{"playerCount": 0})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playerCount": snap.PlayerCount,
		"observedAt":  snap.CreatedAt,
	})
}

func (s *Server) handleListHouses(w http.ResponseWriter, r *http.Request) {
	if !s.apiLimiter.Allow("api-ip:" + clientIP(r)) {
		observability.RateLimited.WithLabelValues("api").Inc()
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}
	houses, err := s.store.ListHouses(r.Context())
	if err != nil {
		s.logger.Error("list houses", "error", err)
	}
	if houses == nil {
		houses = []domain.House{}
	}
	writeJSON(w, http.StatusOK, houses)
}
