// Package maintenance runs the periodic storage janitor.
//
// Two tables grow without bound if nothing trims them: rate-limit windows
// (one row per identifier per minute) and player-count snapshots. The
// janitor sweeps both on a fixed interval; failures are logged and retried
// on the next tick, never escalated.
package maintenance

import (
	"log/slog"
	"sync"
	"time"
)

// Pruner is the trimming surface of the store.
type Pruner interface {
	PruneRateWindows(cutoff time.Time) error
	PruneSnapshots(cutoff time.Time) error
}

// Config controls sweep cadence and retention.
type Config struct {
	Interval          time.Duration // time between sweeps
	WindowRetention   time.Duration // how long finished rate windows are kept
	SnapshotRetention time.Duration // how long player-count snapshots are kept
}

// DefaultConfig returns the production cadence: sweep every ten minutes,
// keep an hour of rate windows, keep a week of snapshots.
func DefaultConfig() Config {
	return Config{
		Interval:          10 * time.Minute,
		WindowRetention:   time.Hour,
		SnapshotRetention: 7 * 24 * time.Hour,
	}
}

// Janitor periodically prunes expired storage rows.
type Janitor struct {
	pruner Pruner
	cfg    Config
	logger *slog.Logger
	done   chan struct{}
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a janitor. Call Start to begin sweeping.
func New(pruner Pruner, cfg Config, logger *slog.Logger) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		pruner: pruner,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
		now:    time.Now,
	}
}

// Start launches the sweep loop. The first sweep runs immediately so a
// long-idle database is trimmed at boot, not an interval later.
func (j *Janitor) Start() {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.sweep()
		ticker := time.NewTicker(j.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-j.done:
				return
			case <-ticker.C:
				j.sweep()
			}
		}
	}()
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
func (j *Janitor) Stop() {
	close(j.done)
	j.wg.Wait()
}

func (j *Janitor) sweep() {
	now := j.now()
	if err := j.pruner.PruneRateWindows(now.Add(-j.cfg.WindowRetention)); err != nil {
		j.logger.Warn("prune rate windows", "error", err)
	}
	if err := j.pruner.PruneSnapshots(now.Add(-j.cfg.SnapshotRetention)); err != nil {
		j.logger.Warn("prune snapshots", "error", err)
	}
}
