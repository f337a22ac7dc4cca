// Package ratelimit implements per-identifier fixed-window admission control.
//
// Counters always increment, including on the call that trips the limit, so
// a client hammering past its ceiling keeps extending the denial rather
// than sneaking through on the next read.
//
// Two implementations share the Limiter contract: an in-process map with an
// explicit sweep lifecycle, and a store-backed counter shared across
// processes. Failover composes them: when the shared store is unreachable
// the limiter fails OPEN to the in-process fallback. That is a deliberate
// availability-over-precision tradeoff: during a store outage each process
// enforces the ceiling independently, so the effective global ceiling is
// N-processes times higher.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// ─── Config ─────────────────────────────────────────────────────────────────

// Config controls one limiter's window.
type Config struct {
	MaxPerWindow int           // requests allowed per window per identifier
	Window       time.Duration // window length (default: 1 minute)
}

// DefaultPostbackConfig is the ceiling for the postback surface.
func DefaultPostbackConfig() Config {
	return Config{MaxPerWindow: 60, Window: time.Minute}
}

// DefaultAPIConfig is the ceiling for the general API surface.
func DefaultAPIConfig() Config {
	return Config{MaxPerWindow: 100, Window: time.Minute}
}

// ─── In-Memory Limiter ──────────────────────────────────────────────────────

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a per-process fixed-window limiter. Safe for concurrent use.
// State is ephemeral: a restart resets every window, which only grants a
// one-off capacity bump, never a correctness violation.
type Memory struct {
	mu      sync.Mutex
	cfg     Config
	windows map[string]*window
	done    chan struct{}
	now     func() time.Time // injectable clock for tests
}

// NewMemory creates an in-memory limiter and starts its sweep goroutine.
// Callers own the lifecycle and must Close it.
func NewMemory(cfg Config) *Memory {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	m := &Memory{
		cfg:     cfg,
		windows: make(map[string]*window),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go m.sweep()
	return m
}

// Allow increments the identifier's counter and reports whether it is still
// within the ceiling for the current window.
func (m *Memory) Allow(identifier string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[identifier]
	if !ok || now.After(w.resetAt) {
		m.windows[identifier] = &window{count: 1, resetAt: now.Add(m.cfg.Window)}
		return true
	}
	w.count++
	return w.count <= m.cfg.MaxPerWindow
}

// Close stops the sweep goroutine.
func (m *Memory) Close() {
	close(m.done)
}

// sweep drops expired windows so idle identifiers do not leak memory.
func (m *Memory) sweep() {
	ticker := time.NewTicker(m.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for id, w := range m.windows {
				if now.After(w.resetAt) {
					delete(m.windows, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// ─── Store-Backed Limiter ───────────────────────────────────────────────────

// CounterStore is the atomic shared counter the store-backed limiter needs.
// The sqlite store implements it; an external store with per-key atomic
// increment would serve equally (a sliding window there is an acceptable,
// strictly stronger guarantee).
type CounterStore interface {
	// IncrRateWindow atomically increments and returns the counter for
	// (identifier, windowStart).
	IncrRateWindow(identifier string, windowStart time.Time) (int64, error)
}

// Store is a fixed-window limiter over a shared counter store, so the
// ceiling holds across processes.
type Store struct {
	cfg   Config
	store CounterStore
	now   func() time.Time
}

// NewStore creates a store-backed limiter.
func NewStore(cfg Config, store CounterStore) *Store {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Store{cfg: cfg, store: store, now: time.Now}
}

// Allow increments the shared counter for the current window.
// Store errors surface through AllowErr; the plain Allow treats them as
// allowed (callers wanting the documented fail-open behavior should use
// Failover, which falls back to an in-process limiter instead).
func (s *Store) Allow(identifier string) bool {
	ok, err := s.AllowErr(identifier)
	if err != nil {
		return true
	}
	return ok
}

// AllowErr is Allow with the store error exposed for failover decisions.
func (s *Store) AllowErr(identifier string) (bool, error) {
	windowStart := s.now().Truncate(s.cfg.Window)
	count, err := s.store.IncrRateWindow(identifier, windowStart)
	if err != nil {
		return false, err
	}
	return count <= int64(s.cfg.MaxPerWindow), nil
}

// ─── Failover ───────────────────────────────────────────────────────────────

// Failover prefers the shared store-backed limiter and fails open to the
// in-process fallback when the store errors.
type Failover struct {
	primary  *Store
	fallback *Memory
	logger   *slog.Logger
}

// NewFailover composes a store-backed limiter with an in-process fallback.
func NewFailover(primary *Store, fallback *Memory, logger *slog.Logger) *Failover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Failover{primary: primary, fallback: fallback, logger: logger}
}

// Allow consults the shared store first; on store failure it degrades to
// the in-process window rather than blocking all traffic.
func (f *Failover) Allow(identifier string) bool {
	ok, err := f.primary.AllowErr(identifier)
	if err == nil {
		return ok
	}
	f.logger.Warn("rate limit store unavailable, using in-process fallback",
		"identifier", identifier, "error", err)
	return f.fallback.Allow(identifier)
}

// Close releases the fallback's sweep goroutine.
func (f *Failover) Close() {
	f.fallback.Close()
}
