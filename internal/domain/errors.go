package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure, with no infrastructure dependency.

var (
	// Player errors
	ErrNotRegistered = errors.New("player not registered")
	ErrNotFound      = errors.New("record not found")

	// Ledger errors
	ErrInsufficientFunds = errors.New("insufficient drogons")
	ErrNegativeAmount    = errors.New("amount must be non-negative")

	// Bounty errors
	ErrBountyUnavailable = errors.New("bounty already claimed or not found")
	ErrBountyTerminal    = errors.New("bounty is in a terminal state")

	// Postback errors
	ErrUnknownKind = errors.New("unknown postback kind")
)
