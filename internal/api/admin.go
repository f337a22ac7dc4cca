package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
)

// ─── Admin Surface ──────────────────────────────────────────────────────────
// Operator actions behind a static bearer token: player registration,
// balance overrides, bounty lifecycle, and audit log access. Every
// mutation here records an audit event with the operator as actor.

// requireAdmin gates the admin routes on the configured bearer token.
// No token configured means the surface is disabled outright.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAdminRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RobloxUserID   string `json:"roblox_user_id"`
		RobloxUsername string `json:"roblox_username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RobloxUserID == "" {
		writeError(w, http.StatusBadRequest, "roblox_user_id required")
		return
	}
	if err := s.store.RegisterPlayer(r.Context(), body.RobloxUserID, body.RobloxUsername); err != nil {
		s.logger.Error("register player", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.recorder.Record("admin_register_player", "", map[string]any{
		"roblox_user_id": body.RobloxUserID,
	}, "admin")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAdminSetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body struct {
		Balance int64 `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Balance < 0 {
		writeError(w, http.StatusBadRequest, "balance must be a non-negative integer")
		return
	}
	if err := s.store.SetBalance(r.Context(), userID, body.Balance); err != nil {
		s.logger.Error("set balance", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.recorder.Record("admin_set_balance", "", map[string]any{
		"roblox_user_id": userID,
		"balance":        body.Balance,
	}, "admin")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAdminListBounties(w http.ResponseWriter, r *http.Request) {
	status := domain.BountyStatus(r.URL.Query().Get("status"))
	bounties, err := s.store.ListBounties(r.Context(), status)
	if err != nil {
		s.logger.Error("list bounties", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if bounties == nil {
		bounties = []domain.Bounty{}
	}
	writeJSON(w, http.StatusOK, bounties)
}

func (s *Server) handleAdminCreateBounty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetRobloxUserID string `json:"targetRobloxUserId"`
		Amount             int64  `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil ||
		body.TargetRobloxUserID == "" || body.Amount < 0 {
		writeError(w, http.StatusBadRequest, "targetRobloxUserId and non-negative amount required")
		return
	}
	bounty, err := s.store.CreateBounty(r.Context(), body.TargetRobloxUserID, body.Amount)
	if err != nil {
		s.logger.Error("create bounty", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	s.recorder.Record("admin_create_bounty", "", map[string]any{
		"bounty_id":             bounty.ID,
		"target_roblox_user_id": bounty.TargetRobloxUserID,
		"amount":                bounty.Amount,
	}, "admin")
	writeJSON(w, http.StatusOK, bounty)
}

func (s *Server) handleAdminCancelBounty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bountyID")
	switch err := s.store.CancelBounty(r.Context(), id); {
	case err == nil:
		s.recorder.Record("admin_cancel_bounty", "", map[string]any{"bounty_id": id}, "admin")
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Bounty not found")
	case errors.Is(err, domain.ErrBountyTerminal):
		writeError(w, http.StatusConflict, "Bounty is not active")
	default:
		s.logger.Error("cancel bounty", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func (s *Server) handleAdminListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	events, err := s.store.ListAuditEvents(r.Context(), limit)
	if err != nil {
		s.logger.Error("list audit events", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
