// Package audit implements the fire-and-forget audit sink.
//
// Every accepted, rejected, or erroring postback records exactly one event.
// Record never blocks the request path: events flow through a buffered
// channel to a single writer goroutine, and a degraded store is logged and
// skipped, never propagated back to the caller. The audit write runs after
// the authoritative state transition commits; its failure must never roll
// back or fail the primary operation.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dragonfall-gg/dragonfall/internal/domain"
	"github.com/dragonfall-gg/dragonfall/internal/infra/observability"
)

// Worker drains audit events into the store asynchronously.
type Worker struct {
	events chan domain.AuditEvent
	store  domain.AuditStore
	logger *slog.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorker creates a worker with the given channel capacity.
func NewWorker(store domain.AuditStore, bufferSize int, logger *slog.Logger) *Worker {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		events: make(chan domain.AuditEvent, bufferSize),
		store:  store,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the writer goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.drain()
				return
			case ev := <-w.events:
				w.save(ev)
			}
		}
	}()
}

// Record enqueues an audit event. Fire-and-forget: a full buffer drops the
// event with a warning rather than blocking the request.
func (w *Worker) Record(eventType, message string, payload map[string]any, actor string) {
	ev := domain.AuditEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Message:   message,
		Payload:   payload,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}
	select {
	case w.events <- ev:
	default:
		observability.AuditEventsDropped.Inc()
		w.logger.Warn("audit buffer full, dropping event", "event_type", eventType)
	}
}

// Shutdown stops the worker after draining buffered events.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) drain() {
	w.logger.Info("draining audit events before shutdown", "remaining", len(w.events))
	for {
		select {
		case ev := <-w.events:
			w.save(ev)
		default:
			return
		}
	}
}

func (w *Worker) save(ev domain.AuditEvent) {
	// Bounded write so a hung store cannot wedge the drain loop.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.InsertAuditEvent(ctx, ev); err != nil {
		w.logger.Error("failed to save audit event", "error", err, "event_type", ev.Type)
	}
}
