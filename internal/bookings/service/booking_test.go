package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	bookingserrors "radiantgo/internal/bookings/errors"
	"radiantgo/internal/bookings/validator"
	"radiantgo/pkg/cache"
	"radiantgo/pkg/config"
	mongotx "radiantgo/pkg/db/mongo"
	apperrors "radiantgo/pkg/errors"
	"radiantgo/pkg/kvstore"
	"radiantgo/pkg/lock"
	"radiantgo/pkg/logger"
	"radiantgo/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeStore is an in-memory stand-in for both repositories. Transactions
// are simulated by running the callback directly; the error hooks let
// individual tests inject storage failures.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	outbox   []*model.OutboxEntry

	failCreate error
	failUpdate error
	failFind   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: make(map[string]*model.Booking)}
}

func (f *fakeStore) Create(_ context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	if _, exists := f.bookings[booking.RefID]; exists {
		return bookingserrors.ErrDuplicateRef
	}
	clone := *booking
	f.bookings[booking.RefID] = &clone
	return nil
}

func (f *fakeStore) FindByRef(_ context.Context, ref string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFind != nil {
		return nil, f.failFind
	}
	booking, ok := f.bookings[ref]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	clone := *booking
	return &clone, nil
}

func (f *fakeStore) FindAll(_ context.Context, limit int, offset int64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	refs := make([]string, 0, len(f.bookings))
	for ref := range f.bookings {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	result := []*model.Booking{}
	for i, ref := range refs {
		if int64(i) < offset {
			continue
		}
		if len(result) >= limit {
			break
		}
		clone := *f.bookings[ref]
		result = append(result, &clone)
	}
	return result, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, ref string, status model.BookingStatus, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	booking, ok := f.bookings[ref]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	booking.Status = status
	booking.UpdatedAt = updatedAt
	return nil
}

func (f *fakeStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.bookings)), nil
}

func (f *fakeStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

func (f *fakeStore) CreateEntry(_ context.Context, bookingRef, eventType string, payload []byte) (*model.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := &model.OutboxEntry{
		ID:         uuid.NewString(),
		BookingRef: bookingRef,
		EventType:  eventType,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	f.outbox = append(f.outbox, entry)
	return entry, nil
}

func (f *fakeStore) FindUnpublished(_ context.Context, limit int) ([]*model.OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []*model.OutboxEntry{}
	for _, entry := range f.outbox {
		if entry.PublishedAt == nil {
			result = append(result, entry)
		}
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (f *fakeStore) MarkPublished(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.outbox {
		if entry.ID == id {
			now := time.Now().UTC()
			entry.PublishedAt = &now
			return nil
		}
	}
	return bookingserrors.ErrOutboxEntryNotFound
}

func (f *fakeStore) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.outbox[:0]
	var removed int64
	for _, entry := range f.outbox {
		if entry.PublishedAt != nil && entry.PublishedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	f.outbox = kept
	return removed, nil
}

func (f *fakeStore) outboxEventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.outbox))
	for _, entry := range f.outbox {
		types = append(types, entry.EventType)
	}
	return types
}

// fakeOutbox adapts fakeStore to the outbox repository interface, whose
// Create signature differs from the booking repository's.
type fakeOutbox struct{ *fakeStore }

func (f fakeOutbox) Create(ctx context.Context, bookingRef, eventType string, payload []byte) (*model.OutboxEntry, error) {
	return f.CreateEntry(ctx, bookingRef, eventType, payload)
}

func newTestService(store *fakeStore) (BookingService, kvstore.Store) {
	return newTestServiceWithKV(store, kvstore.NewMemoryStore())
}

func newTestServiceWithKV(store *fakeStore, kv kvstore.Store) (BookingService, kvstore.Store) {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		LockTTL:         time.Minute,
		LockMaxRetries:  3,
		CacheDetailTTL:  time.Minute,
		CacheListTTL:    time.Minute,
		BulkBatchSize:   10,
		BulkConcurrency: 4,
		Log:             log,
	}
	locks := lock.NewManager(kv, log, lock.Options{
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		DefaultTTL: cfg.LockTTL,
		MaxRetries: cfg.LockMaxRetries,
	})
	svc := NewBookingService(store, fakeOutbox{store}, locks, cache.New(kv, log), validator.NewBookingValidator(log), cfg)
	return svc, kv
}

func validBooking() *model.Booking {
	return &model.Booking{
		Origin:      "DEL",
		Destination: "BLR",
		Pieces:      2,
		WeightKg:    14.5,
	}
}

func TestCreate_PersistsAndRecordsEvent(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if booking.RefID == "" {
		t.Fatal("expected a generated booking reference")
	}
	if booking.Status != model.StatusBooked {
		t.Errorf("expected status BOOKED, got %s", booking.Status)
	}

	types := store.outboxEventTypes()
	if len(types) != 1 || types[0] != model.EventBookingCreated {
		t.Errorf("expected one booking.created outbox entry, got %v", types)
	}
}

func TestCreate_RejectsInvalidBooking(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)

	booking := validBooking()
	booking.Destination = booking.Origin

	err := svc.Create(ctx, booking)
	if err == nil {
		t.Fatal("expected validation error for identical origin and destination")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	if len(store.outboxEventTypes()) != 0 {
		t.Error("rejected booking must not produce an outbox entry")
	}
}

func TestGetByRef_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(newFakeStore())

	_, err := svc.GetByRef(ctx, "RG-DEADBEEF")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGetByRef_ServesSecondReadFromCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := svc.GetByRef(ctx, booking.RefID)
	if err != nil {
		t.Fatalf("first read failed: %v", err)
	}

	// Break the record store; a cached read must not touch it.
	store.failFind = errors.New("store down")

	second, err := svc.GetByRef(ctx, booking.RefID)
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if second.RefID != first.RefID || second.Status != first.Status {
		t.Errorf("cached read mismatch: %+v vs %+v", second, first)
	}
}

func TestUpdateStatus_ValidTransition(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, booking.RefID, model.StatusDeparted)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != model.StatusDeparted {
		t.Errorf("expected DEPARTED, got %s", updated.Status)
	}

	types := store.outboxEventTypes()
	if len(types) != 2 || types[1] != model.EventBookingDeparted {
		t.Errorf("expected booking.departed outbox entry, got %v", types)
	}
}

func TestUpdateStatus_InvalidTransitionRejected(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := svc.UpdateStatus(ctx, booking.RefID, model.StatusDelivered)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for BOOKED -> DELIVERED, got %v", err)
	}
	if appErr.Details["current_status"] != string(model.StatusBooked) {
		t.Errorf("expected current_status BOOKED in details, got %v", appErr.Details)
	}

	stored, _ := store.FindByRef(ctx, booking.RefID)
	if stored.Status != model.StatusBooked {
		t.Errorf("rejected transition must not change stored status, got %s", stored.Status)
	}
	if len(store.outboxEventTypes()) != 1 {
		t.Error("rejected transition must not produce an outbox entry")
	}
}

func TestUpdateStatus_InvalidatesCachedDetail(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.GetByRef(ctx, booking.RefID); err != nil {
		t.Fatalf("warm-up read failed: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, booking.RefID, model.StatusDeparted); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	fresh, err := svc.GetByRef(ctx, booking.RefID)
	if err != nil {
		t.Fatalf("read after update failed: %v", err)
	}
	if fresh.Status != model.StatusDeparted {
		t.Errorf("read served stale status %s after committed update", fresh.Status)
	}
}

// Two concurrent departs on the same BOOKED booking must settle as exactly
// one success; the loser sees either a transition rejection (it ran second)
// or lock contention (it never got the lock).
func TestUpdateStatus_ConcurrentWritersSerialized(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestService(store)

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const writers = 2
	results := make(chan error, writers)
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.UpdateStatus(ctx, booking.RefID, model.StatusDeparted)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("unexpected error type: %v", err)
		}
		switch appErr.Code {
		case apperrors.CodeValidation, apperrors.CodeConflict:
			rejections++
		default:
			t.Fatalf("unexpected error code %s: %v", appErr.Code, err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful depart, got %d", successes)
	}
	if rejections != 1 {
		t.Fatalf("expected exactly one rejected depart, got %d", rejections)
	}

	stored, _ := store.FindByRef(ctx, booking.RefID)
	if stored.Status != model.StatusDeparted {
		t.Errorf("expected DEPARTED after the race, got %s", stored.Status)
	}
	departed := 0
	for _, typ := range store.outboxEventTypes() {
		if typ == model.EventBookingDeparted {
			departed++
		}
	}
	if departed != 1 {
		t.Errorf("expected exactly one booking.departed event, got %d", departed)
	}
}

func TestUpdateStatus_ContentionMapsToConflict(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, kv := newTestService(store)

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Occupy the booking's lock out of band so acquisition exhausts retries.
	ok, err := kv.SetNX(ctx, "lock:bookings:"+booking.RefID, "someone-else", time.Minute)
	if err != nil || !ok {
		t.Fatalf("failed to seed foreign lock: ok=%v err=%v", ok, err)
	}

	_, err = svc.UpdateStatus(ctx, booking.RefID, model.StatusDeparted)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeConflict {
		t.Fatalf("expected CONFLICT on contention, got %v", err)
	}
	if appErr.Details["retry_after_seconds"] == nil {
		t.Error("conflict error must carry retry_after_seconds")
	}
}

// brokenKV fails every conditional write, standing in for an unreachable
// lock store.
type brokenKV struct{ kvstore.Store }

func (b brokenKV) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestUpdateStatus_LockStoreDownMapsToUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc, _ := newTestServiceWithKV(store, brokenKV{kvstore.NewMemoryStore()})

	booking := validBooking()
	if err := svc.Create(ctx, booking); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := svc.UpdateStatus(ctx, booking.RefID, model.StatusDeparted)
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE when the lock store is down, got %v", err)
	}

	stored, _ := store.FindByRef(ctx, booking.RefID)
	if stored.Status != model.StatusBooked {
		t.Errorf("no write may happen without the lock, got status %s", stored.Status)
	}
}
