package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ─── Postback Kinds ─────────────────────────────────────────────────────────
// Each inbound postback kind is a closed enum member with its own payload
// type and parser. Dispatch is by lookup table, never by ad-hoc string
// matching in handlers.

// PostbackKind identifies one kind of server-to-server economic event.
type PostbackKind string

const (
	KindActivityPoints PostbackKind = "activity-points"
	KindSpendDrogons   PostbackKind = "spend-drogons"
	KindLootChests     PostbackKind = "loot-chests"
	KindFortLootChests PostbackKind = "fort-loot-chests"
	KindFarmChest      PostbackKind = "farm-chest"
	KindCollectBounty  PostbackKind = "collect-bounty"
	KindPlayerCount    PostbackKind = "player-count"
)

// AllKinds returns every postback kind, longest slug first so that prefix
// resolution never shadows a more specific kind.
func AllKinds() []PostbackKind {
	kinds := []PostbackKind{
		KindActivityPoints,
		KindSpendDrogons,
		KindLootChests,
		KindFortLootChests,
		KindFarmChest,
		KindCollectBounty,
		KindPlayerCount,
	}
	sort.Slice(kinds, func(i, j int) bool { return len(kinds[i]) > len(kinds[j]) })
	return kinds
}

// KindFromSlug resolves a URL slug to its postback kind by prefix match.
// The game server appends version suffixes to slugs ("loot-chests-v2"),
// so an exact match is not required.
func KindFromSlug(slug string) (PostbackKind, bool) {
	for _, k := range AllKinds() {
		if strings.HasPrefix(slug, string(k)) {
			return k, true
		}
	}
	return "", false
}

// AmountKey returns the numeric field carrying this kind's amount or count,
// or "" if the kind has none. Used for suspicion peeks on unparseable bodies.
func (k PostbackKind) AmountKey() string {
	switch k {
	case KindSpendDrogons, KindLootChests, KindFortLootChests, KindFarmChest:
		return "amount"
	case KindActivityPoints:
		return "activityPoints"
	case KindPlayerCount:
		return "playerCount"
	default:
		return ""
	}
}

// ─── Payload Types ──────────────────────────────────────────────────────────

// ActivityPointsPayload reports a group's current activity-point total.
type ActivityPointsPayload struct {
	GroupName      string
	ActivityPoints int64
}

// SpendDrogonsPayload debits a player's balance.
type SpendDrogonsPayload struct {
	RobloxUserID string
	Amount       int64
	Reason       string
}

// ChestPayload credits a player's balance (loot, fort loot, farm chest).
type ChestPayload struct {
	RobloxUserID string
	Amount       int64
}

// CollectBountyPayload claims the target's most recent active bounty.
type CollectBountyPayload struct {
	TargetRobloxUserID  string
	ClaimedRobloxUserID string
	ClaimedUsername     string
}

// PlayerCountPayload reports an observed concurrent-player count.
type PlayerCountPayload struct {
	PlayerCount int64
}

// ─── Validation ─────────────────────────────────────────────────────────────

// ValidationFailure enumerates the offending fields of a malformed payload.
// It is a value, not a panic: every shape mismatch ends up here.
type ValidationFailure struct {
	Fields map[string]string `json:"fields"`
}

// Error implements error with a stable field ordering.
func (v *ValidationFailure) Error() string {
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+v.Fields[name])
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

func (v *ValidationFailure) add(field, problem string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	v.Fields[field] = problem
}

func (v *ValidationFailure) orNil() *ValidationFailure {
	if len(v.Fields) == 0 {
		return nil
	}
	return v
}

// userID coerces a player identifier that may arrive as a JSON string or
// number. Numbers are normalized to their integer decimal form.
func (v *ValidationFailure) userID(raw map[string]any, field string) string {
	val, ok := raw[field]
	if !ok {
		v.add(field, "required")
		return ""
	}
	switch t := val.(type) {
	case string:
		if t == "" {
			v.add(field, "must not be empty")
			return ""
		}
		return t
	case float64:
		if t != math.Trunc(t) {
			v.add(field, "must be an integer id")
			return ""
		}
		return strconv.FormatInt(int64(t), 10)
	default:
		v.add(field, fmt.Sprintf("expected string or number, got %T", val))
		return ""
	}
}

// nonNegInt coerces a count or amount: a JSON number that is integral,
// non-negative, and within int64 range. Anything else is a shape failure,
// never a runtime error.
func (v *ValidationFailure) nonNegInt(raw map[string]any, field string) int64 {
	val, ok := raw[field]
	if !ok {
		v.add(field, "required")
		return 0
	}
	f, ok := val.(float64)
	if !ok {
		v.add(field, fmt.Sprintf("expected number, got %T", val))
		return 0
	}
	if f != math.Trunc(f) {
		v.add(field, "must be an integer")
		return 0
	}
	if f < 0 {
		v.add(field, "must be non-negative")
		return 0
	}
	if f > math.MaxInt64 {
		v.add(field, "out of range")
		return 0
	}
	return int64(f)
}

func (v *ValidationFailure) requiredString(raw map[string]any, field string) string {
	val, ok := raw[field]
	if !ok {
		v.add(field, "required")
		return ""
	}
	s, ok := val.(string)
	if !ok {
		v.add(field, fmt.Sprintf("expected string, got %T", val))
		return ""
	}
	if s == "" {
		v.add(field, "must not be empty")
		return ""
	}
	return s
}

func (v *ValidationFailure) optionalString(raw map[string]any, field string) string {
	val, ok := raw[field]
	if !ok || val == nil {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		v.add(field, fmt.Sprintf("expected string, got %T", val))
		return ""
	}
	return s
}

// ─── Per-Kind Parsers ───────────────────────────────────────────────────────

// ParseActivityPoints validates an activity-points postback body.
func ParseActivityPoints(raw map[string]any) (ActivityPointsPayload, *ValidationFailure) {
	var f ValidationFailure
	p := ActivityPointsPayload{
		GroupName:      f.requiredString(raw, "groupName"),
		ActivityPoints: f.nonNegInt(raw, "activityPoints"),
	}
	return p, f.orNil()
}

// ParseSpendDrogons validates a spend-drogons postback body.
func ParseSpendDrogons(raw map[string]any) (SpendDrogonsPayload, *ValidationFailure) {
	var f ValidationFailure
	p := SpendDrogonsPayload{
		RobloxUserID: f.userID(raw, "roblox_userid"),
		Amount:       f.nonNegInt(raw, "amount"),
		Reason:       f.optionalString(raw, "reason"),
	}
	return p, f.orNil()
}

// ParseChest validates a loot-chests, fort-loot-chests, or farm-chest body.
// The three chest kinds share one schema.
func ParseChest(raw map[string]any) (ChestPayload, *ValidationFailure) {
	var f ValidationFailure
	p := ChestPayload{
		RobloxUserID: f.userID(raw, "roblox_userid"),
		Amount:       f.nonNegInt(raw, "amount"),
	}
	return p, f.orNil()
}

// ParseCollectBounty validates a collect-bounty postback body.
func ParseCollectBounty(raw map[string]any) (CollectBountyPayload, *ValidationFailure) {
	var f ValidationFailure
	p := CollectBountyPayload{
		TargetRobloxUserID:  f.userID(raw, "target_roblox_userid"),
		ClaimedRobloxUserID: f.userID(raw, "claimed_roblox_userid"),
		ClaimedUsername:     f.requiredString(raw, "claimed_roblox_username"),
	}
	return p, f.orNil()
}

// ParsePlayerCount validates a player-count postback body.
func ParsePlayerCount(raw map[string]any) (PlayerCountPayload, *ValidationFailure) {
	var f ValidationFailure
	p := PlayerCountPayload{
		PlayerCount: f.nonNegInt(raw, "playerCount"),
	}
	return p, f.orNil()
}
