package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"radiantgo/pkg/cache"
	apperrors "radiantgo/pkg/errors"
	"radiantgo/pkg/lock"
	"radiantgo/pkg/model"
	"radiantgo/pkg/sanitizer"

	"golang.org/x/sync/semaphore"
)

// CreateBulk creates every item, settling all of them regardless of
// individual failures. Items run in fixed-size batches with at most
// cfg.BulkConcurrency creates in flight at once.
func (s *bookingService) CreateBulk(ctx context.Context, items []*model.Booking) *model.BulkCreateResult {
	start := time.Now()
	result := &model.BulkCreateResult{
		Successful: []*model.Booking{},
		Failed:     []model.BulkError{},
	}
	if len(items) == 0 {
		result.TimeMS = time.Since(start).Milliseconds()
		return result
	}

	sem := semaphore.NewWeighted(int64(s.cfg.BulkConcurrency))
	outcomes := make([]error, len(items))

	for batchStart := 0; batchStart < len(items); batchStart += s.cfg.BulkBatchSize {
		batchEnd := batchStart + s.cfg.BulkBatchSize
		if batchEnd > len(items) {
			batchEnd = len(items)
		}

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = err
				continue
			}
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				defer sem.Release(1)
				outcomes[idx] = s.Create(ctx, items[idx])
			}(i)
		}
		wg.Wait()
	}

	for i, err := range outcomes {
		if err != nil {
			result.Failed = append(result.Failed, model.BulkError{
				Index:  i,
				RefID:  items[i].RefID,
				Reason: bulkReason(err),
			})
			continue
		}
		result.Successful = append(result.Successful, items[i])
	}

	result.TimeMS = time.Since(start).Milliseconds()
	return result
}

// refGroup holds every update targeting one booking, in submission order.
type refGroup struct {
	ref     string
	indexes []int
}

// UpdateStatusBulk applies a batch of status updates. Updates are grouped
// by booking reference: one group runs sequentially under a single held
// lock, distinct groups run in parallel up to cfg.BulkConcurrency. An
// invalid transition is reported as skipped and later updates in the group
// still run; lock and storage failures are reported as failed.
func (s *bookingService) UpdateStatusBulk(ctx context.Context, updates []model.StatusUpdate) *model.BulkStatusResult {
	start := time.Now()
	result := &model.BulkStatusResult{
		Successful: []*model.Booking{},
		Failed:     []model.BulkError{},
		Skipped:    []model.BulkError{},
	}
	if len(updates) == 0 {
		result.TimeMS = time.Since(start).Milliseconds()
		return result
	}

	normalized := make([]model.StatusUpdate, len(updates))
	wellFormed := make([]bool, len(updates))
	for i, u := range updates {
		normalized[i] = model.StatusUpdate{
			RefID:  sanitizer.NormalizeBookingRef(u.RefID),
			Status: model.BookingStatus(strings.ToUpper(strings.TrimSpace(string(u.Status)))),
		}
		if err := s.validator.ValidateStatusUpdate(&normalized[i]); err != nil {
			result.Failed = append(result.Failed, model.BulkError{
				Index:  i,
				RefID:  normalized[i].RefID,
				Reason: err.Error(),
			})
			continue
		}
		wellFormed[i] = true
	}
	updates = normalized

	groups := groupByRef(updates, wellFormed)

	sem := semaphore.NewWeighted(int64(s.cfg.BulkConcurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	invalidated := make(map[string]bool, len(groups))

	for _, g := range groups {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			for _, idx := range g.indexes {
				result.Failed = append(result.Failed, model.BulkError{
					Index:  idx,
					RefID:  g.ref,
					Reason: bulkReason(err),
				})
			}
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(g refGroup) {
			defer wg.Done()
			defer sem.Release(1)

			outcome := s.processGroup(ctx, g, updates)

			mu.Lock()
			result.Successful = append(result.Successful, outcome.successful...)
			result.Failed = append(result.Failed, outcome.failed...)
			result.Skipped = append(result.Skipped, outcome.skipped...)
			if len(outcome.successful) > 0 {
				invalidated[g.ref] = true
			}
			mu.Unlock()
		}(g)
	}
	wg.Wait()

	// One invalidation sweep once every group has committed.
	for ref := range invalidated {
		if err := s.cache.Invalidate(ctx, cache.DetailKey(ref)); err != nil {
			s.cfg.Log.Warn("Detail cache invalidation failed", "ref_id", ref, "error", err)
		}
	}
	if len(invalidated) > 0 {
		s.invalidateListings(ctx)
	}

	sortBulkResult(result)
	result.TimeMS = time.Since(start).Milliseconds()
	return result
}

type groupOutcome struct {
	successful []*model.Booking
	failed     []model.BulkError
	skipped    []model.BulkError
}

// processGroup applies one booking's updates in order under a single lock
// acquisition. A transition rejection skips that update only; a lock or
// storage failure fails the rest of the group as well, since continuing
// without the lock would race other writers.
func (s *bookingService) processGroup(ctx context.Context, g refGroup, updates []model.StatusUpdate) groupOutcome {
	var out groupOutcome
	settled := make(map[int]bool, len(g.indexes))

	err := s.locks.WithLock(ctx, lockKey(g.ref), s.cfg.LockTTL, func(ctx context.Context) error {
		for _, idx := range g.indexes {
			booking, err := s.applyTransition(ctx, g.ref, updates[idx].Status)
			if err != nil {
				if isTransitionRejection(err) {
					settled[idx] = true
					out.skipped = append(out.skipped, model.BulkError{
						Index:  idx,
						RefID:  g.ref,
						Reason: bulkReason(err),
					})
					continue
				}
				settled[idx] = true
				out.failed = append(out.failed, model.BulkError{
					Index:  idx,
					RefID:  g.ref,
					Reason: bulkReason(err),
				})
				return err
			}
			settled[idx] = true
			out.successful = append(out.successful, booking)
		}
		return nil
	})
	if err == nil {
		return out
	}

	// Lock acquisition failed, or a storage error aborted the group.
	// Everything not yet settled is failed, never silently dropped.
	reason := bulkReason(s.mapLockError(err, g.ref))
	for _, idx := range g.indexes {
		if !settled[idx] {
			out.failed = append(out.failed, model.BulkError{
				Index:  idx,
				RefID:  g.ref,
				Reason: reason,
			})
		}
	}
	return out
}

// groupByRef buckets well-formed updates by booking reference. Group order
// follows each reference's first appearance and indexes within a group keep
// submission order, so per-booking sequencing is preserved.
func groupByRef(updates []model.StatusUpdate, wellFormed []bool) []refGroup {
	byRef := make(map[string]*refGroup)
	order := make([]string, 0)
	for i, u := range updates {
		if !wellFormed[i] {
			continue
		}
		g, ok := byRef[u.RefID]
		if !ok {
			g = &refGroup{ref: u.RefID}
			byRef[u.RefID] = g
			order = append(order, u.RefID)
		}
		g.indexes = append(g.indexes, i)
	}
	groups := make([]refGroup, 0, len(order))
	for _, ref := range order {
		groups = append(groups, *byRef[ref])
	}
	return groups
}

// isTransitionRejection reports whether the error means the update was
// well-formed but inapplicable to the booking's current state.
func isTransitionRejection(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	if appErr.Code != apperrors.CodeValidation {
		return false
	}
	_, ok := appErr.Details["current_status"]
	return ok
}

func bulkReason(err error) string {
	var acqErr *lock.AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr.Error()
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// sortBulkResult orders the failed and skipped slices by submission index
// so the response shape is deterministic across runs.
func sortBulkResult(r *model.BulkStatusResult) {
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Index < r.Failed[j].Index })
	sort.Slice(r.Skipped, func(i, j int) bool { return r.Skipped[i].Index < r.Skipped[j].Index })
}
