package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LedgerStore abstracts player registration and balance arithmetic.
// Increment and ConditionalDecrement are the only balance mutations; both
// are atomic at the storage layer so concurrent deltas compose correctly.
type LedgerStore interface {
	// RegisterPlayer creates a player record (idempotent upsert).
	RegisterPlayer(ctx context.Context, robloxUserID, username string) error

	// GetPlayer returns ErrNotFound for unknown ids.
	GetPlayer(ctx context.Context, robloxUserID string) (*Player, error)

	// GetBalance returns a zero balance for players with no ledger row yet.
	GetBalance(ctx context.Context, robloxUserID string) (*PlayerBalance, error)

	// AddDrogons atomically credits a balance, creating the ledger row on
	// first credit.
	AddDrogons(ctx context.Context, robloxUserID string, amount int64) error

	// SpendDrogons atomically decrements a balance only if the result stays
	// non-negative; returns ErrInsufficientFunds otherwise.
	SpendDrogons(ctx context.Context, robloxUserID string, amount int64) error

	// SetBalance overwrites a balance (operator action only).
	SetBalance(ctx context.Context, robloxUserID string, balance int64) error
}

// HouseStore abstracts house upserts and activity-point writes.
type HouseStore interface {
	// UpsertHouseActivity creates the house if needed and sets (not adds)
	// its activity-points counter.
	UpsertHouseActivity(ctx context.Context, name string, activityPoints int64) error
	ListHouses(ctx context.Context) ([]House, error)
}

// BountyStore abstracts bounty lifecycle and the claim transaction.
type BountyStore interface {
	CreateBounty(ctx context.Context, targetRobloxUserID string, amount int64) (*Bounty, error)
	CancelBounty(ctx context.Context, id string) error
	ListBounties(ctx context.Context, status BountyStatus) ([]Bounty, error)

	// ClaimBounty atomically selects the target's most recent ACTIVE bounty,
	// transitions it to CLAIMED, debits the target (possibly below zero) and
	// credits the claimant, all in one transaction. Exactly one concurrent
	// claim attempt can win; losers get ErrBountyUnavailable.
	ClaimBounty(ctx context.Context, targetRobloxUserID, claimantRobloxUserID, claimantUsername string) (*Bounty, error)
}

// AuditStore persists append-only audit events.
type AuditStore interface {
	InsertAuditEvent(ctx context.Context, ev AuditEvent) error
	ListAuditEvents(ctx context.Context, limit int) ([]AuditEvent, error)
}

// SnapshotStore persists player-count observations.
type SnapshotStore interface {
	InsertPlayerCount(ctx context.Context, count int64) error
	LatestPlayerCount(ctx context.Context) (*PlayerCountSnapshot, error)
}

// Limiter is an injected admission-control capability. Implementations own
// their window state; callers never touch it directly.
type Limiter interface {
	// Allow reports whether the identifier may proceed, incrementing its
	// window counter either way.
	Allow(identifier string) bool
}

// Recorder is the fire-and-forget audit sink. Record must never block or
// fail the triggering request, even when the backing store is degraded.
type Recorder interface {
	Record(eventType, message string, payload map[string]any, actor string)
}

// Alerter forwards high-severity events to an external channel when one is
// configured. Failures are swallowed.
type Alerter interface {
	Alert(ctx context.Context, event AlertEvent)
}

// AlertEvent is a compact summary for the external notification channel.
type AlertEvent struct {
	Type           string
	Message        string
	TargetUserID   string
	TargetUsername string
	ClaimedBy      string
	UserID         string
	Username       string
	Amount         int64
	Reason         string
	Details        map[string]any
}
