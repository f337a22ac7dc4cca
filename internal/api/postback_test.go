package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dragonfall-gg/dragonfall/internal/app/engine"
	"github.com/dragonfall-gg/dragonfall/internal/domain"
	"github.com/dragonfall-gg/dragonfall/internal/infra/ratelimit"
	"github.com/dragonfall-gg/dragonfall/internal/infra/sqlite"
)

const testKey = "test-postback-key"

// syncRecorder writes audit events straight to the store so tests can
// assert on them without draining the async worker.
type syncRecorder struct {
	store domain.AuditStore
}

func (r *syncRecorder) Record(eventType, message string, payload map[string]any, actor string) {
	r.store.InsertAuditEvent(context.Background(), domain.AuditEvent{
		ID:      uuid.NewString(),
		Type:    eventType,
		Message: message,
		Payload: payload,
		Actor:   actor,
	})
}

type captureAlerter struct {
	mu     sync.Mutex
	alerts []domain.AlertEvent
}

func (a *captureAlerter) Alert(ctx context.Context, ev domain.AlertEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, ev)
}

type testServer struct {
	handler http.Handler
	db      *sqlite.DB
	alerts  *captureAlerter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rec := &syncRecorder{store: db}
	alerts := &captureAlerter{}
	eng := engine.New(db, rec, alerts, engine.DefaultConfig(), nil)

	postbackLimiter := ratelimit.NewMemory(ratelimit.Config{MaxPerWindow: 1000, Window: time.Minute})
	t.Cleanup(postbackLimiter.Close)
	apiLimiter := ratelimit.NewMemory(ratelimit.Config{MaxPerWindow: 1000, Window: time.Minute})
	t.Cleanup(apiLimiter.Close)

	srv := NewServer(Options{
		Engine:          eng,
		Store:           db,
		Recorder:        rec,
		Alerter:         alerts,
		PostbackLimiter: postbackLimiter,
		APILimiter:      apiLimiter,
		PostbackKey:     testKey,
		AdminToken:      "test-admin-token",
	})
	return &testServer{handler: srv.Handler(), db: db, alerts: alerts}
}

// post sends an authenticated postback and returns the response recorder.
func (ts *testServer) post(t *testing.T, slug, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost,
		"/api/postbacks/"+slug+"/postback?key="+testKey, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := ts.db.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	return b.Balance
}

func (ts *testServer) auditTypes(t *testing.T) []string {
	t.Helper()
	events, err := ts.db.ListAuditEvents(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func hasType(types []string, want string) bool {
	for _, tp := range types {
		if tp == want {
			return true
		}
	}
	return false
}

// ─── Auth and Admission Tests ───────────────────────────────────────────────

func TestPostbackUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost,
		"/api/postbacks/loot-chests/postback?key=wrong", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	// Missing key entirely.
	req = httptest.NewRequest(http.MethodPost,
		"/api/postbacks/loot-chests/postback", strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", w.Code)
	}
}

func TestPostbackRateLimited(t *testing.T) {
	ts := newTestServer(t)

	// A dedicated server with a tiny budget.
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "rl.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	limiter := ratelimit.NewMemory(ratelimit.Config{MaxPerWindow: 2, Window: time.Minute})
	t.Cleanup(limiter.Close)
	rec := &syncRecorder{store: db}
	srv := NewServer(Options{
		Engine:          engine.New(db, rec, ts.alerts, engine.DefaultConfig(), nil),
		Store:           db,
		Recorder:        rec,
		Alerter:         ts.alerts,
		PostbackLimiter: limiter,
		APILimiter:      limiter,
		PostbackKey:     testKey,
	})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost,
			"/api/postbacks/player-count/postback?key="+testKey,
			strings.NewReader(`{"playerCount": 1}`))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost,
		"/api/postbacks/player-count/postback?key="+testKey,
		strings.NewReader(`{"playerCount": 1}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestPostbackUnknownKind(t *testing.T) {
	ts := newTestServer(t)
	w := ts.post(t, "mystery-event", `{}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ─── Credit Flow Tests ──────────────────────────────────────────────────────

func TestLootChestsPostback(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.db.RegisterPlayer(ctx, "100", "arya")

	w := ts.post(t, "loot-chests", `{"roblox_userid": "100", "amount": 1500}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["ok"] {
		t.Errorf("body = %s", w.Body.String())
	}

	if got := ts.balance(t, "100"); got != 1500 {
		t.Errorf("balance = %d, want 1500", got)
	}
	if !hasType(ts.auditTypes(t), "postback_loot_chests") {
		t.Error("no postback_loot_chests audit event")
	}
}

func TestLootChestsVersionedSlug(t *testing.T) {
	ts := newTestServer(t)
	ts.db.RegisterPlayer(context.Background(), "100", "arya")

	w := ts.post(t, "loot-chests-v2", `{"roblox_userid": "100", "amount": 10}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := ts.balance(t, "100"); got != 10 {
		t.Errorf("balance = %d, want 10", got)
	}
}

func TestLootChestsUnregistered(t *testing.T) {
	ts := newTestServer(t)
	w := ts.post(t, "loot-chests", `{"roblox_userid": "999", "amount": 100}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if got := ts.balance(t, "999"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestFarmChestPostback(t *testing.T) {
	ts := newTestServer(t)
	ts.db.RegisterPlayer(context.Background(), "100", "arya")

	w := ts.post(t, "farm-chest", `{"roblox_userid": 100, "amount": 75}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := ts.balance(t, "100"); got != 75 {
		t.Errorf("balance = %d, want 75", got)
	}
	if !hasType(ts.auditTypes(t), "postback_farm_chest") {
		t.Error("no postback_farm_chest audit event")
	}
}

// ─── Spend Flow Tests ───────────────────────────────────────────────────────

func TestSpendDrogonsPostback(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.db.RegisterPlayer(ctx, "100", "arya")
	ts.db.AddDrogons(ctx, "100", 1000)

	w := ts.post(t, "spend-drogons", `{"roblox_userid": "100", "amount": 400, "reason": "sword"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got := ts.balance(t, "100"); got != 600 {
		t.Errorf("balance = %d, want 600", got)
	}
	if !hasType(ts.auditTypes(t), "spend_drogons") {
		t.Error("no spend_drogons audit event")
	}
}

func TestSpendDrogonsInsufficientFunds(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.db.RegisterPlayer(ctx, "100", "arya")
	ts.db.AddDrogons(ctx, "100", 100)

	w := ts.post(t, "spend-drogons", `{"roblox_userid": "100", "amount": 101}`)
	if w.Code != http.StatusMultiStatus {
		t.Errorf("status = %d, want 207", w.Code)
	}
	// Balance is untouched by the failed spend.
	if got := ts.balance(t, "100"); got != 100 {
		t.Errorf("balance = %d, want 100", got)
	}
}

func TestSpendDrogonsUnregistered(t *testing.T) {
	ts := newTestServer(t)
	w := ts.post(t, "spend-drogons", `{"roblox_userid": "999", "amount": 10}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ─── Validation and Suspicion Tests ─────────────────────────────────────────

func TestPostbackMissingFieldsSuspicious(t *testing.T) {
	ts := newTestServer(t)

	// A shape mismatch scores non-zero, so even a merely malformed body is
	// rejected and recorded as an incident.
	w := ts.post(t, "loot-chests", `{"roblox_userid": "100"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["code"] != "suspicious_payload" {
		t.Errorf("code = %q, want suspicious_payload", resp["code"])
	}
	if !hasType(ts.auditTypes(t), "suspicious_payload") {
		t.Error("no suspicious_payload audit event")
	}
}

func TestPostbackFractionalNegativeAmountSuspicious(t *testing.T) {
	ts := newTestServer(t)

	// Integer coercion rejects -3.5, but the negative sign must still be
	// picked up by the scorer.
	w := ts.post(t, "loot-chests", `{"roblox_userid": "100", "amount": -3.5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["code"] != "suspicious_payload" {
		t.Errorf("code = %q, want suspicious_payload", resp["code"])
	}
	if !hasType(ts.auditTypes(t), "suspicious_payload") {
		t.Error("no suspicious_payload audit event")
	}
}

func TestPostbackNegativeAmountSuspicious(t *testing.T) {
	ts := newTestServer(t)
	ts.db.RegisterPlayer(context.Background(), "100", "arya")

	w := ts.post(t, "spend-drogons", `{"roblox_userid": "100", "amount": -500}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["code"] != "suspicious_payload" {
		t.Errorf("code = %q, want suspicious_payload", resp["code"])
	}
	// The negative-amount exploit attempt leaves an audit trail and never
	// touches the balance.
	if !hasType(ts.auditTypes(t), "suspicious_payload") {
		t.Error("no suspicious_payload audit event")
	}
	if got := ts.balance(t, "100"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestPostbackExtremeAmountSuspicious(t *testing.T) {
	ts := newTestServer(t)
	ts.db.RegisterPlayer(context.Background(), "100", "arya")

	w := ts.post(t, "loot-chests", `{"roblox_userid": "100", "amount": 2000000}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if got := ts.balance(t, "100"); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
	if !hasType(ts.auditTypes(t), "suspicious_payload") {
		t.Error("no suspicious_payload audit event")
	}
}

func TestPostbackNonObjectBody(t *testing.T) {
	ts := newTestServer(t)
	w := ts.post(t, "loot-chests", `"not an object"`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ─── House Activity Tests ───────────────────────────────────────────────────

func TestActivityPointsPostback(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "activity-points", `{"groupName": "Stark", "activityPoints": 1200}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	houses, err := ts.db.ListHouses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(houses) != 1 || houses[0].Name != "House Stark" || houses[0].ActivityPoints != 1200 {
		t.Errorf("houses = %+v", houses)
	}
}

// ─── Bounty Claim Tests ─────────────────────────────────────────────────────

func TestCollectBountyPostback(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.db.RegisterPlayer(ctx, "target", "ned")
	ts.db.RegisterPlayer(ctx, "hunter", "TheHunter")
	ts.db.AddDrogons(ctx, "target", 100)
	ts.db.CreateBounty(ctx, "target", 250)

	body := `{"target_roblox_userid": "target", "claimed_roblox_userid": "hunter", "claimed_roblox_username": "TheHunter"}`
	w := ts.post(t, "collect-bounty", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	if got := ts.balance(t, "hunter"); got != 250 {
		t.Errorf("claimant balance = %d, want 250", got)
	}
	if got := ts.balance(t, "target"); got != -150 {
		t.Errorf("target balance = %d, want -150", got)
	}

	// A second claim finds no active bounty.
	w = ts.post(t, "collect-bounty", body)
	if w.Code != http.StatusAlreadyReported {
		t.Errorf("second claim status = %d, want 208", w.Code)
	}
}

func TestCollectBountyUnregisteredClaimant(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.db.CreateBounty(ctx, "target", 250)

	body := `{"target_roblox_userid": "target", "claimed_roblox_userid": "ghost", "claimed_roblox_username": "Ghost"}`
	w := ts.post(t, "collect-bounty", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCollectBountyConcurrent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.db.RegisterPlayer(ctx, "target", "ned")
	ts.db.RegisterPlayer(ctx, "hunter", "TheHunter")
	ts.db.CreateBounty(ctx, "target", 500)

	body := `{"target_roblox_userid": "target", "claimed_roblox_userid": "hunter", "claimed_roblox_username": "TheHunter"}`

	const claimants = 6
	var wg sync.WaitGroup
	codes := make([]int, claimants)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w := ts.post(t, "collect-bounty", body)
			codes[n] = w.Code
		}(i)
	}
	wg.Wait()

	won, lost := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			won++
		case http.StatusAlreadyReported:
			lost++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}
	if lost != claimants-1 {
		t.Errorf("losers = %d, want %d", lost, claimants-1)
	}
	if got := ts.balance(t, "hunter"); got != 500 {
		t.Errorf("claimant balance = %d, want exactly one payout of 500", got)
	}
}

// ─── Player Count Tests ─────────────────────────────────────────────────────

func TestPlayerCountPostback(t *testing.T) {
	ts := newTestServer(t)

	w := ts.post(t, "player-count", `{"playerCount": 42}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/player-count/latest", nil)
	rw := httptest.NewRecorder()
	ts.handler.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("latest status = %d", rw.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["playerCount"] != float64(42) {
		t.Errorf("playerCount = %v, want 42", resp["playerCount"])
	}
}

// ─── Fetch Surface Tests ────────────────────────────────────────────────────

func TestFetchBounties(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.db.CreateBounty(ctx, "target-a", 100)
	ts.db.CreateBounty(ctx, "target-b", 300)
	b, _ := ts.db.CreateBounty(ctx, "target-c", 50)
	ts.db.CancelBounty(ctx, b.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/postbacks/bounties/fetch", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var out []struct {
		TargetRobloxUserID string `json:"target_roblox_userid"`
		Amount             int64  `json:"amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	// Only active bounties, largest first.
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(out), out)
	}
	if out[0].TargetRobloxUserID != "target-b" || out[0].Amount != 300 {
		t.Errorf("out[0] = %+v", out[0])
	}
}

func TestFetchUnknownType(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/postbacks/weather/fetch", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ─── Admin Surface Tests ────────────────────────────────────────────────────

func adminReq(method, path, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	r.Header.Set("Authorization", "Bearer test-admin-token")
	return r
}

func TestAdminRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/bounties", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/bounties", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}
}

func TestAdminPlayerAndBalance(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodPost, "/api/admin/players",
		`{"roblox_user_id": "100", "roblox_username": "arya"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodPut, "/api/admin/players/100/balance",
		`{"balance": 777}`))
	if w.Code != http.StatusOK {
		t.Fatalf("set balance status = %d, body %s", w.Code, w.Body.String())
	}
	if got := ts.balance(t, "100"); got != 777 {
		t.Errorf("balance = %d, want 777", got)
	}

	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodPut, "/api/admin/players/100/balance",
		`{"balance": -1}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative balance status = %d, want 400", w.Code)
	}
}

func TestAdminBountyLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodPost, "/api/admin/bounties",
		`{"targetRobloxUserId": "100", "amount": 250}`))
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var bounty domain.Bounty
	if err := json.Unmarshal(w.Body.Bytes(), &bounty); err != nil {
		t.Fatal(err)
	}
	if bounty.Status != domain.BountyActive || bounty.Amount != 250 {
		t.Errorf("bounty = %+v", bounty)
	}

	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodGet, "/api/admin/bounties?status=ACTIVE", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []domain.Bounty
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}

	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodDelete, "/api/admin/bounties/"+bounty.ID, ""))
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d", w.Code)
	}

	// Terminal bounties cannot be cancelled again.
	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodDelete, "/api/admin/bounties/"+bounty.ID, ""))
	if w.Code != http.StatusConflict {
		t.Errorf("re-cancel status = %d, want 409", w.Code)
	}

	w = httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodDelete, "/api/admin/bounties/nope", ""))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown bounty status = %d, want 404", w.Code)
	}
}

func TestAdminLogs(t *testing.T) {
	ts := newTestServer(t)
	ts.db.RegisterPlayer(context.Background(), "100", "arya")
	ts.post(t, "loot-chests", `{"roblox_userid": "100", "amount": 10}`)

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, adminReq(http.MethodGet, "/api/admin/logs?limit=10", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("logs status = %d", w.Code)
	}
	var events []domain.AuditEvent
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) == 0 {
		t.Error("expected at least one audit event")
	}
}

// ─── Health Test ────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
