package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	bookingserrors "radiantgo/internal/bookings/errors"
	"radiantgo/pkg/config"
	"radiantgo/pkg/kafka"
	"radiantgo/pkg/logger"
	"radiantgo/pkg/model"
)

// memOutbox is an in-memory outbox repository for worker tests.
type memOutbox struct {
	mu      sync.Mutex
	entries []*model.OutboxEntry

	failFind error
}

func (m *memOutbox) add(id, ref, eventType string, createdAt time.Time, publishedAt *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, &model.OutboxEntry{
		ID:          id,
		BookingRef:  ref,
		EventType:   eventType,
		Payload:     []byte(`{}`),
		CreatedAt:   createdAt,
		PublishedAt: publishedAt,
	})
}

func (m *memOutbox) Create(_ context.Context, bookingRef, eventType string, payload []byte) (*model.OutboxEntry, error) {
	panic("not used by worker tests")
}

func (m *memOutbox) FindUnpublished(_ context.Context, limit int) ([]*model.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	result := []*model.OutboxEntry{}
	for _, e := range m.entries {
		if e.PublishedAt == nil {
			result = append(result, e)
		}
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *memOutbox) MarkPublished(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			now := time.Now().UTC()
			e.PublishedAt = &now
			return nil
		}
	}
	return bookingserrors.ErrOutboxEntryNotFound
}

func (m *memOutbox) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.PublishedAt != nil && e.PublishedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

func (m *memOutbox) unpublishedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []string{}
	for _, e := range m.entries {
		if e.PublishedAt == nil {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func (m *memOutbox) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// flakySink records published messages and fails the first failures calls.
type flakySink struct {
	mu       sync.Mutex
	failures int
	messages []kafka.Message
}

func (s *flakySink) Publish(_ context.Context, msg kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *flakySink) published() []kafka.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kafka.Message{}, s.messages...)
}

func newTestWorker(outbox *memOutbox, sink Sink) *Worker {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		OutboxDrainInterval:   10 * time.Millisecond,
		OutboxDrainBatch:      100,
		OutboxCleanupInterval: time.Hour,
		OutboxRetentionDays:   7,
		Log:                   log,
	}
	return NewWorker(outbox, sink, cfg)
}

func TestDrain_PublishesAndMarks(t *testing.T) {
	outbox := &memOutbox{}
	now := time.Now().UTC()
	outbox.add("e1", "RG-00000001", model.EventBookingCreated, now, nil)
	outbox.add("e2", "RG-00000001", model.EventBookingDeparted, now.Add(time.Second), nil)

	sink := &flakySink{}
	w := newTestWorker(outbox, sink)

	w.Drain(context.Background())

	msgs := sink.published()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 published messages, got %d", len(msgs))
	}
	if msgs[0].Headers[kafka.HeaderEventType] != model.EventBookingCreated ||
		msgs[1].Headers[kafka.HeaderEventType] != model.EventBookingDeparted {
		t.Errorf("messages out of order: %v, %v", msgs[0].Headers, msgs[1].Headers)
	}
	if msgs[0].Key != "RG-00000001" {
		t.Errorf("message key must be the booking reference, got %q", msgs[0].Key)
	}
	if ids := outbox.unpublishedIDs(); len(ids) != 0 {
		t.Errorf("expected all entries marked published, still pending: %v", ids)
	}
}

func TestDrain_FailureLeavesEntryForNextCycle(t *testing.T) {
	outbox := &memOutbox{}
	now := time.Now().UTC()
	outbox.add("e1", "RG-00000001", model.EventBookingCreated, now, nil)
	outbox.add("e2", "RG-00000002", model.EventBookingCreated, now, nil)

	sink := &flakySink{failures: 1}
	w := newTestWorker(outbox, sink)

	// First cycle: publish of e1 fails, the cycle stops, nothing is marked.
	w.Drain(context.Background())
	if ids := outbox.unpublishedIDs(); len(ids) != 2 {
		t.Fatalf("expected both entries still pending after failed cycle, got %v", ids)
	}
	if len(sink.published()) != 0 {
		t.Fatal("no message should be recorded for a failed publish")
	}

	// Second cycle: broker recovered, both entries go through.
	w.Drain(context.Background())
	if ids := outbox.unpublishedIDs(); len(ids) != 0 {
		t.Errorf("expected all entries published on retry, still pending: %v", ids)
	}
	if got := len(sink.published()); got != 2 {
		t.Errorf("expected 2 published messages after retry, got %d", got)
	}
}

func TestCleanup_NeverRemovesUnpublished(t *testing.T) {
	outbox := &memOutbox{}
	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	outbox.add("stale-published", "RG-00000001", model.EventBookingCreated, old, &old)
	outbox.add("stale-pending", "RG-00000002", model.EventBookingCreated, old, nil)
	recent := time.Now().UTC()
	outbox.add("fresh-published", "RG-00000003", model.EventBookingCreated, recent, &recent)

	w := newTestWorker(outbox, &flakySink{})
	w.Cleanup(context.Background())

	if outbox.size() != 2 {
		t.Fatalf("expected exactly the stale published entry removed, %d entries remain", outbox.size())
	}
	if ids := outbox.unpublishedIDs(); len(ids) != 1 || ids[0] != "stale-pending" {
		t.Errorf("unpublished entry must survive cleanup regardless of age, got %v", ids)
	}
}

func TestWorker_StartStop(t *testing.T) {
	outbox := &memOutbox{}
	outbox.add("e1", "RG-00000001", model.EventBookingCreated, time.Now().UTC(), nil)

	sink := &flakySink{}
	w := newTestWorker(outbox, sink)

	w.Start()
	deadline := time.After(2 * time.Second)
	for len(sink.published()) == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never drained the outbox")
		case <-time.After(5 * time.Millisecond):
		}
	}
	w.Stop()

	// Stop must be idempotent.
	w.Stop()
}
