// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture; it depends on nothing.
package domain

import (
	"strings"
	"time"
)

// ─── Player Types ───────────────────────────────────────────────────────────

// Player is a registered account, keyed by the external Roblox user id.
// Registration happens outside the postback path (sign-in or operator
// action); postbacks that reference an unregistered player are rejected.
type Player struct {
	RobloxUserID   string    `json:"roblox_user_id"`
	RobloxUsername string    `json:"roblox_username,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PlayerBalance is a player's Drogons ledger entry. Created lazily on first
// credit; mutated only via the store's atomic increment and conditional
// decrement; never deleted.
//
// Balance is non-negative as observed by any committed read, with one
// deliberate exception: the bounty-claim debit may drive the target
// negative, because the target already carried the liability.
type PlayerBalance struct {
	RobloxUserID string    `json:"roblox_user_id"`
	Balance      int64     `json:"balance"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ─── House Types ────────────────────────────────────────────────────────────

// House is a named group with its own currency balance and an
// activity-points counter. ActivityPoints is last-write-wins, not additive:
// the game server reports the current total, not a delta.
type House struct {
	Name           string    `json:"name"`
	Balance        int64     `json:"balance"`
	ActivityPoints int64     `json:"activity_points"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NormalizeHouseName maps a raw group name to its canonical house name:
// trimmed, prefixed with "House " unless it already starts with it.
func NormalizeHouseName(groupName string) string {
	trimmed := strings.TrimSpace(groupName)
	if trimmed == "" {
		return "House Unknown"
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "house ") {
		return trimmed
	}
	return "House " + trimmed
}

// ─── Bounty Types ───────────────────────────────────────────────────────────

// BountyStatus is the bounty lifecycle state.
// CLAIMED and CANCELLED are terminal; no transition leaves them.
type BountyStatus string

const (
	BountyActive    BountyStatus = "ACTIVE"
	BountyClaimed   BountyStatus = "CLAIMED"
	BountyCancelled BountyStatus = "CANCELLED"
)

// Bounty is a claimable reward on a target player. Claim metadata is
// populated exactly once, by the claim transaction.
type Bounty struct {
	ID                 string       `json:"id"`
	TargetRobloxUserID string       `json:"target_roblox_user_id"`
	Amount             int64        `json:"amount"`
	Status             BountyStatus `json:"status"`
	ClaimedByUserID    string       `json:"claimed_by_user_id,omitempty"`
	ClaimedByUsername  string       `json:"claimed_by_username,omitempty"`
	ClaimedAt          *time.Time   `json:"claimed_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
}

// ─── Audit Types ────────────────────────────────────────────────────────────

// AuditEvent is an append-only record of an accepted, rejected, or erroring
// economic event. Immutable once written.
type AuditEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ─── Snapshot Types ─────────────────────────────────────────────────────────

// PlayerCountSnapshot is an observed concurrent-player count. Append-only;
// never mutates any balance.
type PlayerCountSnapshot struct {
	ID          int64     `json:"id"`
	PlayerCount int64     `json:"player_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ─── Catalog Types ──────────────────────────────────────────────────────────

// CatalogItem is a game-client catalog entry exposed on the public fetch
// surface. The postback engine never writes these.
type CatalogItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AssetID   string    `json:"asset_id"`
	Price     int64     `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}
