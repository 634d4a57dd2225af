package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	bookingserrors "radiantgo/internal/bookings/errors"
	"radiantgo/internal/bookings/repository"
	"radiantgo/internal/bookings/validator"
	"radiantgo/pkg/cache"
	"radiantgo/pkg/config"
	apperrors "radiantgo/pkg/errors"
	"radiantgo/pkg/lock"
	"radiantgo/pkg/model"
	"radiantgo/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByRef(ctx context.Context, ref string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	UpdateStatus(ctx context.Context, ref string, requested model.BookingStatus) (*model.Booking, error)
	CreateBulk(ctx context.Context, items []*model.Booking) *model.BulkCreateResult
	UpdateStatusBulk(ctx context.Context, updates []model.StatusUpdate) *model.BulkStatusResult
}

type bookingService struct {
	repo      repository.BookingRepository
	outbox    repository.OutboxRepository
	locks     *lock.Manager
	cache     *cache.Cache
	validator *validator.BookingValidator
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	outbox repository.OutboxRepository,
	locks *lock.Manager,
	readCache *cache.Cache,
	bookingValidator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		outbox:    outbox,
		locks:     locks,
		cache:     readCache,
		validator: bookingValidator,
		cfg:       cfg,
	}
}

// statusEvent is the payload carried by status-change outbox entries.
type statusEvent struct {
	RefID          string              `json:"ref_id"`
	Status         model.BookingStatus `json:"status"`
	PreviousStatus model.BookingStatus `json:"previous_status,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.applyDefaults(booking)
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, booking); err != nil {
			if errors.Is(err, bookingserrors.ErrDuplicateRef) {
				return apperrors.Conflict("Booking reference already exists")
			}
			return apperrors.Internal("Failed to create booking", err)
		}

		payload, err := json.Marshal(booking)
		if err != nil {
			return apperrors.Internal("Failed to encode booking event", err)
		}
		if _, err := s.outbox.Create(sessCtx, booking.RefID, model.EventBookingCreated, payload); err != nil {
			return apperrors.Internal("Failed to record booking event", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return err
	}

	// The listing pages are stale now; the detail key cannot exist yet.
	s.invalidateListings(ctx)

	s.cfg.Log.Info("Booking created",
		"ref_id", booking.RefID,
		"origin", booking.Origin,
		"destination", booking.Destination,
	)
	return nil
}

func (s *bookingService) GetByRef(ctx context.Context, ref string) (*model.Booking, error) {
	ref = sanitizer.NormalizeBookingRef(ref)
	if ref == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	var booking model.Booking
	err := s.cache.GetOrSet(ctx, cache.DetailKey(ref), s.cfg.CacheDetailTTL, &booking,
		func(ctx context.Context) (any, error) {
			found, err := s.repo.FindByRef(ctx, ref)
			if err != nil {
				if errors.Is(err, bookingserrors.ErrNotFound) {
					return nil, apperrors.NotFoundWithRef("Booking", ref)
				}
				return nil, apperrors.Internal("Failed to retrieve booking", err)
			}
			return found, nil
		})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// bookingPage is the cached shape of one paginated listing page.
type bookingPage struct {
	Bookings []*model.Booking `json:"bookings"`
	Total    int64            `json:"total"`
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var page bookingPage
	err := s.cache.GetOrSet(ctx, cache.ListKey(limit, offset), s.cfg.CacheListTTL, &page,
		func(ctx context.Context) (any, error) {
			return s.loadPage(ctx, limit, offset)
		})
	if err != nil {
		return nil, 0, err
	}
	return page.Bookings, page.Total, nil
}

func (s *bookingService) loadPage(ctx context.Context, limit int, offset int64) (*bookingPage, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, errCount
	}
	if errFind != nil {
		return nil, errFind
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return &bookingPage{Bookings: bookings, Total: count}, nil
}

// UpdateStatus applies one lifecycle transition. The whole
// read-validate-write-record sequence runs under the booking's exclusive
// lock, and both the status write and the outbox entry commit before the
// lock is released, so a crash between release and publication cannot lose
// the event.
func (s *bookingService) UpdateStatus(ctx context.Context, ref string, requested model.BookingStatus) (*model.Booking, error) {
	ref = sanitizer.NormalizeBookingRef(ref)
	if ref == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}
	if !requested.IsValid() {
		return nil, apperrors.InvalidInput("Unknown booking status: " + string(requested))
	}

	var updated *model.Booking
	err := s.locks.WithLock(ctx, lockKey(ref), s.cfg.LockTTL, func(ctx context.Context) error {
		var err error
		updated, err = s.applyTransition(ctx, ref, requested)
		return err
	})
	if err != nil {
		return nil, s.mapLockError(err, ref)
	}

	// Invalidation runs strictly after the commit (and after release, so a
	// queued writer is not re-serialized behind cache work).
	s.invalidateBooking(ctx, ref)

	s.cfg.Log.Info("Booking status updated",
		"ref_id", ref,
		"status", requested,
	)
	return updated, nil
}

// applyTransition validates and persists one transition. Caller must hold
// the booking's lock.
func (s *bookingService) applyTransition(ctx context.Context, ref string, requested model.BookingStatus) (*model.Booking, error) {
	booking, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithRef("Booking", ref)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	if err := model.ValidateTransition(booking.Status, requested); err != nil {
		return nil, transitionAppError(booking.Status, requested)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	payload, err := json.Marshal(statusEvent{
		RefID:          ref,
		Status:         requested,
		PreviousStatus: booking.Status,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to encode status event", err)
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.UpdateStatus(sessCtx, ref, requested, now); err != nil {
			return apperrors.Internal("Failed to update booking status", err)
		}
		if _, err := s.outbox.Create(sessCtx, ref, model.EventTypeForStatus(requested), payload); err != nil {
			return apperrors.Internal("Failed to record status event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = requested
	booking.UpdatedAt = now
	return booking, nil
}

// --- Helpers ---

func lockKey(ref string) string {
	return "bookings:" + ref
}

// NewBookingRef generates an externally facing booking reference.
func NewBookingRef() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "RG-" + raw[:8]
}

func (s *bookingService) applyDefaults(b *model.Booking) {
	if b.RefID == "" {
		b.RefID = NewBookingRef()
	} else {
		b.RefID = sanitizer.NormalizeBookingRef(b.RefID)
	}
	if b.Status == "" {
		b.Status = model.StatusBooked
	}
	b.Origin = sanitizer.NormalizeStationCode(b.Origin)
	b.Destination = sanitizer.NormalizeStationCode(b.Destination)
}

func transitionAppError(current, requested model.BookingStatus) *apperrors.AppError {
	return apperrors.Validation("Invalid status transition", map[string]any{
		"current_status":   string(current),
		"requested_status": string(requested),
		"valid_next":       model.NextValidStatuses(current),
	})
}

// mapLockError turns retry-budget exhaustion into the caller-retryable 409
// shape and an unreachable lock store into 503. Errors already carrying an
// HTTP shape pass through.
func (s *bookingService) mapLockError(err error, ref string) error {
	var acqErr *lock.AcquisitionError
	if errors.As(err, &acqErr) {
		s.cfg.Log.Warn("Booking contended past retry budget",
			"ref_id", ref,
			"max_retries", acqErr.MaxRetries,
		)
		retryAfter := int(acqErr.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return apperrors.ConflictWithRetry(acqErr.ResourceKey, retryAfter)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Whatever remains is a failed lock-store round trip. Do not fall back
	// to an unguarded write.
	s.cfg.Log.Error("Lock store unreachable", "ref_id", ref, "error", err)
	return apperrors.Unavailable("Lock service")
}

func (s *bookingService) invalidateBooking(ctx context.Context, ref string) {
	if err := s.cache.Invalidate(ctx, cache.DetailKey(ref)); err != nil {
		s.cfg.Log.Warn("Detail cache invalidation failed", "ref_id", ref, "error", err)
	}
	s.invalidateListings(ctx)
}

func (s *bookingService) invalidateListings(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.ListPattern()); err != nil {
		s.cfg.Log.Warn("Listing cache invalidation failed", "error", err)
	}
}
