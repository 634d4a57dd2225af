// Package publisher drains the transactional outbox into the event sink.
// Entries are written in the same transaction as the booking change, so
// this worker is the only component that talks to the broker and the only
// one allowed to mark an entry as published.
package publisher

import (
	"context"
	"sync"
	"time"

	"radiantgo/internal/bookings/repository"
	"radiantgo/pkg/config"
	"radiantgo/pkg/kafka"
	"radiantgo/pkg/logger"
)

// Sink is where drained outbox entries go. *kafka.Producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// Worker periodically drains unpublished outbox entries and prunes old
// published ones. An entry is marked published only after the sink
// acknowledges it; a publish failure leaves the entry for the next cycle,
// so delivery is at-least-once and consumers must deduplicate.
type Worker struct {
	outbox repository.OutboxRepository
	sink   Sink
	log    *logger.Logger

	drainInterval   time.Duration
	drainBatch      int
	cleanupInterval time.Duration
	retention       time.Duration

	stop     chan struct{}
	done     sync.WaitGroup
	stopOnce sync.Once
}

func NewWorker(outbox repository.OutboxRepository, sink Sink, cfg *config.Config) *Worker {
	return &Worker{
		outbox:          outbox,
		sink:            sink,
		log:             cfg.Log,
		drainInterval:   cfg.OutboxDrainInterval,
		drainBatch:      cfg.OutboxDrainBatch,
		cleanupInterval: cfg.OutboxCleanupInterval,
		retention:       time.Duration(cfg.OutboxRetentionDays) * 24 * time.Hour,
		stop:            make(chan struct{}),
	}
}

// Start launches the drain and cleanup loops. It returns immediately.
func (w *Worker) Start() {
	w.done.Add(2)
	go w.drainLoop()
	go w.cleanupLoop()
	w.log.Info("Outbox worker started",
		"drain_interval", w.drainInterval,
		"drain_batch", w.drainBatch,
		"cleanup_interval", w.cleanupInterval,
		"retention", w.retention,
	)
}

// Stop signals both loops and waits for the in-flight cycle to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.done.Wait()
	w.log.Info("Outbox worker stopped")
}

func (w *Worker) drainLoop() {
	defer w.done.Done()
	ticker := time.NewTicker(w.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.Drain(context.Background())
		}
	}
}

func (w *Worker) cleanupLoop() {
	defer w.done.Done()
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.Cleanup(context.Background())
		}
	}
}

// Drain publishes one batch of unpublished entries in creation order.
// Order within a booking is preserved: entries are keyed by booking
// reference and a failed publish stops the cycle rather than leapfrog a
// later entry past an earlier one.
func (w *Worker) Drain(ctx context.Context) {
	entries, err := w.outbox.FindUnpublished(ctx, w.drainBatch)
	if err != nil {
		w.log.Error("Outbox drain query failed", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	published := 0
	for _, entry := range entries {
		msg := kafka.NewMessage(entry.BookingRef, entry.EventType, entry.Payload)
		if err := w.sink.Publish(ctx, msg); err != nil {
			w.log.Error("Outbox publish failed, will retry next cycle",
				"entry_id", entry.ID,
				"booking_ref", entry.BookingRef,
				"event_type", entry.EventType,
				"error", err,
			)
			break
		}
		if err := w.outbox.MarkPublished(ctx, entry.ID); err != nil {
			// The event is on the broker but still flagged unpublished; the
			// next cycle republishes it. Duplicate, never lost.
			w.log.Error("Failed to mark outbox entry published",
				"entry_id", entry.ID,
				"error", err,
			)
			break
		}
		published++
	}

	if published > 0 {
		w.log.Info("Outbox drained", "published", published, "batch", len(entries))
	}
}

// Cleanup deletes published entries older than the retention window.
// Unpublished entries are never touched regardless of age.
func (w *Worker) Cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.retention)
	removed, err := w.outbox.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		w.log.Error("Outbox cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		w.log.Info("Outbox pruned", "removed", removed, "cutoff", cutoff)
	}
}
