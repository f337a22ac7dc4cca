package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

func parseStoredTime(s string) time.Time {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// ─── Player Operations ──────────────────────────────────────────────────────

// RegisterPlayer creates or refreshes a player record. Idempotent.
func (db *DB) RegisterPlayer(ctx context.Context, robloxUserID, username string) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO players (roblox_user_id, roblox_username)
		VALUES (?, ?)
		ON CONFLICT(roblox_user_id) DO UPDATE SET
			roblox_username = excluded.roblox_username
	`, robloxUserID, username)
	return err
}

// GetPlayer retrieves a registered player, or domain.ErrNotFound.
func (db *DB) GetPlayer(ctx context.Context, robloxUserID string) (*domain.Player, error) {
	var p domain.Player
	var createdStr string
	err := db.db.QueryRowContext(ctx, `
		SELECT roblox_user_id, roblox_username, created_at
		FROM players WHERE roblox_user_id = ?
	`, robloxUserID).Scan(&p.RobloxUserID, &p.RobloxUsername, &createdStr)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseStoredTime(createdStr)
	return &p, nil
}

// ─── Ledger Operations ──────────────────────────────────────────────────────

// GetBalance returns the player's ledger entry, zero-valued when no credit
// has created the row yet.
func (db *DB) GetBalance(ctx context.Context, robloxUserID string) (*domain.PlayerBalance, error) {
	var b domain.PlayerBalance
	var updatedStr string
	err := db.db.QueryRowContext(ctx, `
		SELECT roblox_user_id, balance, updated_at
		FROM player_balances WHERE roblox_user_id = ?
	`, robloxUserID).Scan(&b.RobloxUserID, &b.Balance, &updatedStr)
	if err == sql.ErrNoRows {
		return &domain.PlayerBalance{RobloxUserID: robloxUserID}, nil
	}
	if err != nil {
		return nil, err
	}
	b.UpdatedAt = parseStoredTime(updatedStr)
	return &b, nil
}

// AddDrogons atomically credits a balance, creating the ledger row on first
// credit. The increment happens inside the upsert, so concurrent credits
// compose without lost updates.
func (db *DB) AddDrogons(ctx context.Context, robloxUserID string, amount int64) error {
	if amount < 0 {
		return domain.ErrNegativeAmount
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO player_balances (roblox_user_id, balance, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(roblox_user_id) DO UPDATE SET
			balance    = balance + excluded.balance,
			updated_at = datetime('now')
	`, robloxUserID, amount)
	return err
}

// SpendDrogons decrements a balance only if the result stays non-negative.
// The check and the write are one conditional UPDATE, closing the
// read-modify-write race: of any set of concurrent debits, exactly those
// whose running sum fits the balance succeed.
func (db *DB) SpendDrogons(ctx context.Context, robloxUserID string, amount int64) error {
	if amount < 0 {
		return domain.ErrNegativeAmount
	}
	res, err := db.db.ExecContext(ctx, `
		UPDATE player_balances
		SET balance = balance - ?, updated_at = datetime('now')
		WHERE roblox_user_id = ? AND balance >= ?
	`, amount, robloxUserID, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Missing ledger row and short balance look the same here; both
		// mean the player cannot cover the spend.
		return domain.ErrInsufficientFunds
	}
	return nil
}

// SetBalance overwrites a balance. Operator action only; postback paths
// never call this.
func (db *DB) SetBalance(ctx context.Context, robloxUserID string, balance int64) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO player_balances (roblox_user_id, balance, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(roblox_user_id) DO UPDATE SET
			balance    = excluded.balance,
			updated_at = datetime('now')
	`, robloxUserID, balance)
	return err
}

// ─── House Operations ───────────────────────────────────────────────────────

// UpsertHouseActivity creates the house if needed and sets its
// activity-points counter. Last write wins: the game reports totals,
// not deltas.
func (db *DB) UpsertHouseActivity(ctx context.Context, name string, activityPoints int64) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO houses (name, activity_points, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(name) DO UPDATE SET
			activity_points = excluded.activity_points,
			updated_at      = datetime('now')
	`, name, activityPoints)
	return err
}

// EnsureHouse creates the house with zero activity points if it does not
// exist. Existing houses are untouched, so seeding is safe to repeat.
func (db *DB) EnsureHouse(ctx context.Context, name string) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO houses (name, activity_points, updated_at)
		VALUES (?, 0, datetime('now'))
	`, name)
	return err
}

// ListHouses returns all houses ordered by name.
func (db *DB) ListHouses(ctx context.Context) ([]domain.House, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT name, balance, activity_points, updated_at
		FROM houses ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var houses []domain.House
	for rows.Next() {
		var h domain.House
		var updatedStr string
		if err := rows.Scan(&h.Name, &h.Balance, &h.ActivityPoints, &updatedStr); err != nil {
			return nil, err
		}
		h.UpdatedAt = parseStoredTime(updatedStr)
		houses = append(houses, h)
	}
	return houses, rows.Err()
}

// ─── Bounty Operations ──────────────────────────────────────────────────────

// CreateBounty inserts a new ACTIVE bounty.
func (db *DB) CreateBounty(ctx context.Context, targetRobloxUserID string, amount int64) (*domain.Bounty, error) {
	if amount < 0 {
		return nil, domain.ErrNegativeAmount
	}
	id := uuid.NewString()
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO bounties (id, target_roblox_user_id, amount, status)
		VALUES (?, ?, ?, ?)
	`, id, targetRobloxUserID, amount, domain.BountyActive)
	if err != nil {
		return nil, err
	}
	return db.getBounty(ctx, id)
}

// CancelBounty transitions an ACTIVE bounty to CANCELLED. Terminal bounties
// are left untouched and reported as such.
func (db *DB) CancelBounty(ctx context.Context, id string) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE bounties SET status = ? WHERE id = ? AND status = ?
	`, domain.BountyCancelled, id, domain.BountyActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := db.getBounty(ctx, id); err != nil {
			return err
		}
		return domain.ErrBountyTerminal
	}
	return nil
}

// ListBounties returns bounties with the given status, largest amount
// first, or all bounties (newest first) when status is empty.
func (db *DB) ListBounties(ctx context.Context, status domain.BountyStatus) ([]domain.Bounty, error) {
	query := `
		SELECT id, target_roblox_user_id, amount, status,
		       claimed_by_user_id, claimed_by_username, claimed_at, created_at
		FROM bounties WHERE status = ? ORDER BY amount DESC`
	args := []any{status}
	if status == "" {
		query = `
		SELECT id, target_roblox_user_id, amount, status,
		       claimed_by_user_id, claimed_by_username, claimed_at, created_at
		FROM bounties ORDER BY created_at DESC, rowid DESC`
		args = nil
	}
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bounties []domain.Bounty
	for rows.Next() {
		b, err := scanBounty(rows)
		if err != nil {
			return nil, err
		}
		bounties = append(bounties, *b)
	}
	return bounties, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBounty(row rowScanner) (*domain.Bounty, error) {
	var b domain.Bounty
	var claimedBy, claimedName, claimedAt sql.NullString
	var createdStr string
	err := row.Scan(&b.ID, &b.TargetRobloxUserID, &b.Amount, &b.Status,
		&claimedBy, &claimedName, &claimedAt, &createdStr)
	if err != nil {
		return nil, err
	}
	b.ClaimedByUserID = claimedBy.String
	b.ClaimedByUsername = claimedName.String
	if claimedAt.Valid {
		t := parseStoredTime(claimedAt.String)
		b.ClaimedAt = &t
	}
	b.CreatedAt = parseStoredTime(createdStr)
	return &b, nil
}

func (db *DB) getBounty(ctx context.Context, id string) (*domain.Bounty, error) {
	row := db.db.QueryRowContext(ctx, `
		SELECT id, target_roblox_user_id, amount, status,
		       claimed_by_user_id, claimed_by_username, claimed_at, created_at
		FROM bounties WHERE id = ?
	`, id)
	b, err := scanBounty(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// ClaimBounty executes the claim transaction: select the target's most
// recent ACTIVE bounty (creation time, then insertion order, descending),
// fence the CLAIMED transition on status still being ACTIVE, debit the
// target and credit the claimant, all or nothing.
//
// The target debit is deliberately unconditional and may drive the balance
// negative: the target already carried the liability when the bounty was
// posted. The status fence guarantees at most one concurrent claim wins;
// every loser observes ErrBountyUnavailable with no partial transfer.
func (db *DB) ClaimBounty(ctx context.Context, targetRobloxUserID, claimantRobloxUserID, claimantUsername string) (*domain.Bounty, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, target_roblox_user_id, amount, status,
		       claimed_by_user_id, claimed_by_username, claimed_at, created_at
		FROM bounties
		WHERE target_roblox_user_id = ? AND status = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, targetRobloxUserID, domain.BountyActive)
	bounty, err := scanBounty(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrBountyUnavailable
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE bounties
		SET status = ?, claimed_by_user_id = ?, claimed_by_username = ?, claimed_at = ?
		WHERE id = ? AND status = ?
	`, domain.BountyClaimed, claimantRobloxUserID, claimantUsername,
		now.Format(time.RFC3339), bounty.ID, domain.BountyActive)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrBountyUnavailable
	}

	// Target debit: no row means no ledger entry to charge, matching the
	// upstream behavior of a no-op decrement.
	if _, err := tx.ExecContext(ctx, `
		UPDATE player_balances
		SET balance = balance - ?, updated_at = datetime('now')
		WHERE roblox_user_id = ?
	`, bounty.Amount, targetRobloxUserID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO player_balances (roblox_user_id, balance, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(roblox_user_id) DO UPDATE SET
			balance    = balance + excluded.balance,
			updated_at = datetime('now')
	`, claimantRobloxUserID, bounty.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	bounty.Status = domain.BountyClaimed
	bounty.ClaimedByUserID = claimantRobloxUserID
	bounty.ClaimedByUsername = claimantUsername
	bounty.ClaimedAt = &now
	return bounty, nil
}

// ─── Audit Operations ───────────────────────────────────────────────────────

// InsertAuditEvent appends one audit record. Events are immutable; there is
// no update or delete path.
func (db *DB) InsertAuditEvent(ctx context.Context, ev domain.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	var payloadJSON any
	if ev.Payload != nil {
		b, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
		payloadJSON = string(b)
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, message, payload, actor)
		VALUES (?, ?, ?, ?, ?)
	`, ev.ID, ev.Type, nullable(ev.Message), payloadJSON, nullable(ev.Actor))
	return err
}

// ListAuditEvents returns the most recent events, newest first.
func (db *DB) ListAuditEvents(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, type, message, payload, actor, created_at
		FROM audit_events ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var ev domain.AuditEvent
		var message, payload, actor sql.NullString
		var createdStr string
		if err := rows.Scan(&ev.ID, &ev.Type, &message, &payload, &actor, &createdStr); err != nil {
			return nil, err
		}
		ev.Message = message.String
		ev.Actor = actor.String
		if payload.Valid && payload.String != "" {
			_ = json.Unmarshal([]byte(payload.String), &ev.Payload)
		}
		ev.CreatedAt = parseStoredTime(createdStr)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ─── Snapshot Operations ────────────────────────────────────────────────────

// InsertPlayerCount appends an observed player count.
func (db *DB) InsertPlayerCount(ctx context.Context, count int64) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO player_count_snapshots (player_count) VALUES (?)
	`, count)
	return err
}

// LatestPlayerCount returns the most recent snapshot, or nil when none
// has been recorded.
func (db *DB) LatestPlayerCount(ctx context.Context) (*domain.PlayerCountSnapshot, error) {
	var s domain.PlayerCountSnapshot
	var createdStr string
	err := db.db.QueryRowContext(ctx, `
		SELECT id, player_count, created_at
		FROM player_count_snapshots ORDER BY id DESC LIMIT 1
	`).Scan(&s.ID, &s.PlayerCount, &createdStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt = parseStoredTime(createdStr)
	return &s, nil
}

// ─── Rate Window Operations ─────────────────────────────────────────────────

// IncrRateWindow atomically increments and returns the shared counter for
// (identifier, windowStart).
func (db *DB) IncrRateWindow(identifier string, windowStart time.Time) (int64, error) {
	var count int64
	err := db.db.QueryRow(`
		INSERT INTO rate_windows (identifier, window_start, count)
		VALUES (?, ?, 1)
		ON CONFLICT(identifier, window_start) DO UPDATE SET
			count = count + 1
		RETURNING count
	`, identifier, windowStart.UTC().Format(time.RFC3339)).Scan(&count)
	return count, err
}

// PruneRateWindows drops windows that started before cutoff.
func (db *DB) PruneRateWindows(cutoff time.Time) error {
	_, err := db.db.Exec(`
		DELETE FROM rate_windows WHERE window_start < ?
	`, cutoff.UTC().Format(time.RFC3339))
	return err
}

// PruneSnapshots drops player-count observations recorded before cutoff.
// The latest surface only ever reads the newest row.
func (db *DB) PruneSnapshots(cutoff time.Time) error {
	_, err := db.db.Exec(`
		DELETE FROM player_count_snapshots WHERE created_at < ?
	`, cutoff.UTC().Format(sqliteTimeLayout))
	return err
}

// ─── Catalog Operations ─────────────────────────────────────────────────────

// UpsertCatalogItem creates or replaces a catalog entry.
func (db *DB) UpsertCatalogItem(ctx context.Context, item domain.CatalogItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO catalog_items (id, name, asset_id, price, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			name       = excluded.name,
			asset_id   = excluded.asset_id,
			price      = excluded.price,
			updated_at = datetime('now')
	`, item.ID, item.Name, item.AssetID, item.Price)
	return err
}

// ListCatalogItems returns catalog entries, most recently updated first.
func (db *DB) ListCatalogItems(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, name, asset_id, price, updated_at
		FROM catalog_items ORDER BY updated_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		var it domain.CatalogItem
		var updatedStr string
		if err := rows.Scan(&it.ID, &it.Name, &it.AssetID, &it.Price, &updatedStr); err != nil {
			return nil, err
		}
		it.UpdatedAt = parseStoredTime(updatedStr)
		items = append(items, it)
	}
	return items, rows.Err()
}
