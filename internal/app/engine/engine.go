// Package engine applies economy mutations for validated postbacks.
//
// The engine is the sole writer of ledger balances and bounty status; the
// handlers and background jobs only read or emit audit records. It relies
// on the store's atomic primitives (upsert-increment, conditional
// decrement, and the single-transaction bounty claim) instead of
// engine-level locks, so concurrent mutations against one balance compose
// to the algebraic sum of the applied deltas.
//
// Each operation audits its outcome; only large movements, bounty claims,
// and errors additionally alert.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
	"github.com/dragonfall-gg/dragonfall/internal/infra/alert"
	"github.com/dragonfall-gg/dragonfall/internal/infra/observability"
)

// ─── Config ─────────────────────────────────────────────────────────────────

// Config holds the alerting thresholds.
type Config struct {
	LargeSpendThreshold int64 // spend amount that triggers a large-purchase alert
	HighLootThreshold   int64 // credit amount that triggers an unusually-high-loot alert
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		LargeSpendThreshold: 5000,
		HighLootThreshold:   5000,
	}
}

// Store is the persistence surface the engine mutates.
type Store interface {
	domain.LedgerStore
	domain.HouseStore
	domain.BountyStore
	domain.SnapshotStore
}

// Engine applies balance, house, bounty, and snapshot mutations.
type Engine struct {
	store    Store
	recorder domain.Recorder
	alerter  domain.Alerter
	cfg      Config
	logger   *slog.Logger
}

// New creates an engine.
func New(store Store, recorder domain.Recorder, alerter domain.Alerter, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		recorder: recorder,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger,
	}
}

// AuditType maps a postback kind to its audit event type tag.
// spend-drogons and collect-bounty keep their historical names.
func AuditType(kind domain.PostbackKind) string {
	switch kind {
	case domain.KindSpendDrogons:
		return "spend_drogons"
	case domain.KindCollectBounty:
		return "collect_bounty"
	default:
		return "postback_" + strings.ReplaceAll(string(kind), "-", "_")
	}
}

// ─── Credit ─────────────────────────────────────────────────────────────────

// Credit applies a chest credit (loot, fort loot, farm chest) to a
// registered player. Unregistered targets are a business rejection, not a
// server error.
func (e *Engine) Credit(ctx context.Context, kind domain.PostbackKind, p domain.ChestPayload) error {
	if _, err := e.store.GetPlayer(ctx, p.RobloxUserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotRegistered
		}
		return fmt.Errorf("lookup player: %w", err)
	}

	if err := e.store.AddDrogons(ctx, p.RobloxUserID, p.Amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	observability.DrogonsCredited.WithLabelValues(string(kind)).Add(float64(p.Amount))
	e.recorder.Record(AuditType(kind), "", map[string]any{
		"roblox_userid": p.RobloxUserID,
		"amount":        p.Amount,
	}, "")

	if p.Amount >= e.cfg.HighLootThreshold {
		e.alerter.Alert(ctx, domain.AlertEvent{
			Type:    alert.TypeSuspicious,
			Message: "Unusually high " + strings.ReplaceAll(string(kind), "-", " ") + " amount",
			Details: map[string]any{"roblox_userid": p.RobloxUserID, "amount": p.Amount},
		})
	}
	return nil
}

// ─── Debit ──────────────────────────────────────────────────────────────────

// Spend debits a registered player's balance. The decrement is conditional
// at the storage layer, so the balance can never be driven negative even
// under concurrent spends; a short balance returns ErrInsufficientFunds.
func (e *Engine) Spend(ctx context.Context, p domain.SpendDrogonsPayload) error {
	player, err := e.store.GetPlayer(ctx, p.RobloxUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotRegistered
		}
		return fmt.Errorf("lookup player: %w", err)
	}

	if err := e.store.SpendDrogons(ctx, p.RobloxUserID, p.Amount); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return domain.ErrInsufficientFunds
		}
		return fmt.Errorf("debit balance: %w", err)
	}

	observability.DrogonsDebited.Add(float64(p.Amount))
	e.recorder.Record(AuditType(domain.KindSpendDrogons), p.Reason, map[string]any{
		"amount": p.Amount,
		"reason": p.Reason,
	}, p.RobloxUserID)

	if p.Amount >= e.cfg.LargeSpendThreshold {
		e.alerter.Alert(ctx, domain.AlertEvent{
			Type:     alert.TypeLargePurchase,
			UserID:   player.RobloxUserID,
			Username: player.RobloxUsername,
			Amount:   p.Amount,
			Reason:   p.Reason,
		})
	}
	return nil
}

// ─── House Activity ─────────────────────────────────────────────────────────

// UpdateHouseActivity upserts the house by normalized name and sets its
// activity-points counter. Last write wins. Returns the canonical name.
func (e *Engine) UpdateHouseActivity(ctx context.Context, p domain.ActivityPointsPayload) (string, error) {
	houseName := domain.NormalizeHouseName(p.GroupName)
	if err := e.store.UpsertHouseActivity(ctx, houseName, p.ActivityPoints); err != nil {
		return "", fmt.Errorf("upsert house: %w", err)
	}

	e.recorder.Record(AuditType(domain.KindActivityPoints),
		houseName+" activity points", map[string]any{
			"groupName":      houseName,
			"activityPoints": p.ActivityPoints,
		}, "")
	return houseName, nil
}

// ─── Bounty Claim ───────────────────────────────────────────────────────────

// ClaimBounty claims the target's most recent ACTIVE bounty for a
// registered claimant. The store executes the whole
// read-check-transition-transfer sequence in one transaction; when several
// claims race, exactly one wins and the rest see ErrBountyUnavailable.
func (e *Engine) ClaimBounty(ctx context.Context, p domain.CollectBountyPayload) (*domain.Bounty, error) {
	if _, err := e.store.GetPlayer(ctx, p.ClaimedRobloxUserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotRegistered
		}
		return nil, fmt.Errorf("lookup claimant: %w", err)
	}

	bounty, err := e.store.ClaimBounty(ctx, p.TargetRobloxUserID, p.ClaimedRobloxUserID, p.ClaimedUsername)
	if err != nil {
		if errors.Is(err, domain.ErrBountyUnavailable) {
			observability.BountyClaims.WithLabelValues("lost").Inc()
			return nil, domain.ErrBountyUnavailable
		}
		return nil, fmt.Errorf("claim bounty: %w", err)
	}
	observability.BountyClaims.WithLabelValues("won").Inc()

	e.recorder.Record(AuditType(domain.KindCollectBounty),
		fmt.Sprintf("Bounty claimed by %s", p.ClaimedUsername), map[string]any{
			"targetRobloxUserId": p.TargetRobloxUserID,
			"claimedBy":          p.ClaimedRobloxUserID,
			"amount":             bounty.Amount,
		}, "")

	targetUsername := p.TargetRobloxUserID
	if target, err := e.store.GetPlayer(ctx, p.TargetRobloxUserID); err == nil && target.RobloxUsername != "" {
		targetUsername = target.RobloxUsername
	}
	e.alerter.Alert(ctx, domain.AlertEvent{
		Type:           alert.TypeBountyClaimed,
		TargetUserID:   p.TargetRobloxUserID,
		TargetUsername: targetUsername,
		ClaimedBy:      p.ClaimedUsername,
		Amount:         bounty.Amount,
	})
	return bounty, nil
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

// RecordPlayerCount appends an observed player count. No balance is
// touched.
func (e *Engine) RecordPlayerCount(ctx context.Context, p domain.PlayerCountPayload) error {
	if err := e.store.InsertPlayerCount(ctx, p.PlayerCount); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	e.recorder.Record(AuditType(domain.KindPlayerCount), "", map[string]any{
		"playerCount": p.PlayerCount,
	}, "")
	return nil
}
