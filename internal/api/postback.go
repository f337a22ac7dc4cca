package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
	"github.com/dragonfall-gg/dragonfall/internal/infra/alert"
	"github.com/dragonfall-gg/dragonfall/internal/infra/observability"
	"github.com/dragonfall-gg/dragonfall/internal/infra/suspicion"
)

// ─── Postback Pipeline ──────────────────────────────────────────────────────
// POST /api/postbacks/{slug}/postback?key=SECRET
//
// Authenticate → rate limit → resolve kind → validate → score → mutate →
// audit → respond. Rejections before the engine never leave partial state;
// business rejections (not registered, insufficient funds, bounty lost)
// map to distinct status codes so the game server can branch without
// retrying a claim that lost its race.

// postbackHandler runs one validated kind end to end.
type postbackHandler func(ctx context.Context, s *Server, w http.ResponseWriter, slug string, raw map[string]any)

// handlers is the dispatch table, one entry per postback kind.
var handlers = map[domain.PostbackKind]postbackHandler{
	domain.KindActivityPoints: handleActivityPoints,
	domain.KindSpendDrogons:   handleSpendDrogons,
	domain.KindLootChests:     chestHandler(domain.KindLootChests),
	domain.KindFortLootChests: chestHandler(domain.KindFortLootChests),
	domain.KindFarmChest:      chestHandler(domain.KindFarmChest),
	domain.KindCollectBounty:  handleCollectBounty,
	domain.KindPlayerCount:    handlePlayerCount,
}

func (s *Server) handlePostback(w http.ResponseWriter, r *http.Request) {
	if !s.authenticate(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ip := clientIP(r)
	if !s.postbackLimiter.Allow("postback-ip:" + ip) {
		observability.RateLimited.WithLabelValues("postback").Inc()
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	slug := chi.URLParam(r, "slug")
	kind, ok := domain.KindFromSlug(slug)
	if !ok {
		observability.PostbacksTotal.WithLabelValues("unknown", "unknown_kind").Inc()
		writeError(w, http.StatusNotFound, "Unknown postback type")
		return
	}

	// A body that is not a JSON object decodes to nil, which every parser
	// treats as missing fields; the game server owes us an object.
	var raw map[string]any
	_ = json.NewDecoder(r.Body).Decode(&raw)

	ctx := r.Context()
	defer func() {
		if rec := recover(); rec != nil {
			s.handlerError(ctx, w, slug, fmt.Errorf("panic: %v", rec))
		}
	}()

	handlers[kind](ctx, s, w, slug, raw)
}

// handlerError is the InternalError path: audit, alert, log, and reply
// with a generic body that leaks nothing.
func (s *Server) handlerError(ctx context.Context, w http.ResponseWriter, slug string, err error) {
	s.logger.Error("postback handler error", "slug", slug, "error", err)
	observability.PostbacksTotal.WithLabelValues(slug, "internal_error").Inc()
	s.recorder.Record("postback_error", "Postback handler error", map[string]any{
		"slug":  slug,
		"error": err.Error(),
	}, "")
	s.alerter.Alert(ctx, domain.AlertEvent{
		Type:    alert.TypeSuspicious,
		Message: "Postback handler error",
		Details: map[string]any{"slug": slug, "error": err.Error()},
	})
	writeError(w, http.StatusInternalServerError, "Internal error")
}

// rejectParseFailure records a shape mismatch as a suspicion incident.
// Every parse failure carries a non-zero score; the per-field detail rides
// along in the audit payload.
func (s *Server) rejectParseFailure(ctx context.Context, w http.ResponseWriter, kind domain.PostbackKind, slug string, raw map[string]any, failure *domain.ValidationFailure) {
	s.rejectSuspicious(ctx, w, kind, slug, raw, suspicion.OnParseFailure(kind, raw), failure.Fields)
}

// rejectSuspicious records the incident, alerts, and replies 400 with the
// generic suspicious-payload code. fields carries per-field validation
// detail when the rejection came from a parse failure.
func (s *Server) rejectSuspicious(ctx context.Context, w http.ResponseWriter, kind domain.PostbackKind, slug string, raw map[string]any, assessment suspicion.Assessment, fields map[string]string) {
	observability.PostbacksTotal.WithLabelValues(string(kind), "suspicious").Inc()
	observability.SuspicionScore.Observe(float64(assessment.Score))

	payload := map[string]any{
		"slug":           slug,
		"suspicionScore": assessment.Score,
		"reasons":        assessment.ReasonStrings(),
		"body":           sanitizeForLog(raw),
	}
	if len(fields) > 0 {
		payload["fields"] = fields
	}
	s.recorder.Record("suspicious_payload",
		"Suspicious postback rejected: "+strings.Join(assessment.ReasonStrings(), ", "),
		payload, "")
	s.alerter.Alert(ctx, domain.AlertEvent{
		Type:    alert.TypeSuspicious,
		Message: fmt.Sprintf("Suspicious postback rejected (score %d)", assessment.Score),
		Details: map[string]any{
			"slug":           slug,
			"suspicionScore": assessment.Score,
			"reasons":        assessment.ReasonStrings(),
		},
	})
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": "Invalid request",
		"code":  "suspicious_payload",
	})
}

func accepted(w http.ResponseWriter, kind domain.PostbackKind) {
	observability.PostbacksTotal.WithLabelValues(string(kind), "accepted").Inc()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ─── Per-Kind Handlers ──────────────────────────────────────────────────────

func handleActivityPoints(ctx context.Context, s *Server, w http.ResponseWriter, slug string, raw map[string]any) {
	p, failure := domain.ParseActivityPoints(raw)
	if failure != nil {
		s.rejectParseFailure(ctx, w, domain.KindActivityPoints, slug, raw, failure)
		return
	}
	if a := suspicion.CheckParsedAmount(domain.KindActivityPoints, p.ActivityPoints); a != nil {
		s.rejectSuspicious(ctx, w, domain.KindActivityPoints, slug, raw, *a, nil)
		return
	}
	if _, err := s.engine.UpdateHouseActivity(ctx, p); err != nil {
		s.handlerError(ctx, w, slug, err)
		return
	}
	accepted(w, domain.KindActivityPoints)
}

func handleSpendDrogons(ctx context.Context, s *Server, w http.ResponseWriter, slug string, raw map[string]any) {
	p, failure := domain.ParseSpendDrogons(raw)
	if failure != nil {
		s.rejectParseFailure(ctx, w, domain.KindSpendDrogons, slug, raw, failure)
		return
	}
	if a := suspicion.CheckParsedAmount(domain.KindSpendDrogons, p.Amount); a != nil {
		s.rejectSuspicious(ctx, w, domain.KindSpendDrogons, slug, raw, *a, nil)
		return
	}
	switch err := s.engine.Spend(ctx, p); {
	case err == nil:
		accepted(w, domain.KindSpendDrogons)
	case errors.Is(err, domain.ErrNotRegistered):
		observability.PostbacksTotal.WithLabelValues(string(domain.KindSpendDrogons), "not_registered").Inc()
		writeError(w, http.StatusBadRequest, "User not registered")
	case errors.Is(err, domain.ErrInsufficientFunds):
		observability.PostbacksTotal.WithLabelValues(string(domain.KindSpendDrogons), "insufficient_funds").Inc()
		writeError(w, http.StatusMultiStatus, "Insufficient Drogons")
	default:
		s.handlerError(ctx, w, slug, err)
	}
}

// chestHandler builds the shared credit handler for the three chest kinds.
func chestHandler(kind domain.PostbackKind) postbackHandler {
	return func(ctx context.Context, s *Server, w http.ResponseWriter, slug string, raw map[string]any) {
		p, failure := domain.ParseChest(raw)
		if failure != nil {
			s.rejectParseFailure(ctx, w, kind, slug, raw, failure)
			return
		}
		if a := suspicion.CheckParsedAmount(kind, p.Amount); a != nil {
			s.rejectSuspicious(ctx, w, kind, slug, raw, *a, nil)
			return
		}
		switch err := s.engine.Credit(ctx, kind, p); {
		case err == nil:
			accepted(w, kind)
		case errors.Is(err, domain.ErrNotRegistered):
			observability.PostbacksTotal.WithLabelValues(string(kind), "not_registered").Inc()
			writeError(w, http.StatusBadRequest, "User not registered")
		default:
			s.handlerError(ctx, w, slug, err)
		}
	}
}

func handleCollectBounty(ctx context.Context, s *Server, w http.ResponseWriter, slug string, raw map[string]any) {
	p, failure := domain.ParseCollectBounty(raw)
	if failure != nil {
		s.rejectParseFailure(ctx, w, domain.KindCollectBounty, slug, raw, failure)
		return
	}
	switch _, err := s.engine.ClaimBounty(ctx, p); {
	case err == nil:
		accepted(w, domain.KindCollectBounty)
	case errors.Is(err, domain.ErrNotRegistered):
		observability.PostbacksTotal.WithLabelValues(string(domain.KindCollectBounty), "not_registered").Inc()
		writeError(w, http.StatusBadRequest, "Claimant not registered")
	case errors.Is(err, domain.ErrBountyUnavailable):
		observability.PostbacksTotal.WithLabelValues(string(domain.KindCollectBounty), "bounty_unavailable").Inc()
		writeError(w, http.StatusAlreadyReported, "Bounty already claimed or not found")
	default:
		s.handlerError(ctx, w, slug, err)
	}
}

func handlePlayerCount(ctx context.Context, s *Server, w http.ResponseWriter, slug string, raw map[string]any) {
	p, failure := domain.ParsePlayerCount(raw)
	if failure != nil {
		s.rejectParseFailure(ctx, w, domain.KindPlayerCount, slug, raw, failure)
		return
	}
	if a := suspicion.CheckParsedAmount(domain.KindPlayerCount, p.PlayerCount); a != nil {
		s.rejectSuspicious(ctx, w, domain.KindPlayerCount, slug, raw, *a, nil)
		return
	}
	if err := s.engine.RecordPlayerCount(ctx, p); err != nil {
		s.handlerError(ctx, w, slug, err)
		return
	}
	accepted(w, domain.KindPlayerCount)
}

// ─── Log Sanitizer ──────────────────────────────────────────────────────────

// sanitizeForLog bounds what a rejected body can drag into the audit log:
// scalars pass through, arrays are truncated, nested objects are elided.
func sanitizeForLog(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string, float64, bool, nil:
			out[k] = t
		case []any:
			if len(t) > 5 {
				t = t[:5]
			}
			out[k] = t
		default:
			out[k] = "[object]"
		}
	}
	return out
}
