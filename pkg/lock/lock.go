// Package lock builds distributed mutual exclusion on top of the shared
// key-value store. A lock is a single key holding an opaque ownership token
// with a TTL, so a crashed holder's lock disappears on its own after at most
// ttl and another caller may proceed.
package lock

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"radiantgo/pkg/kvstore"
	"radiantgo/pkg/logger"

	"github.com/google/uuid"
)

const (
	keyPrefix = "lock:"
	maxJitter = 100 * time.Millisecond
)

// AcquisitionError means the resource stayed contended past the retry
// budget. It is recoverable by caller retry, never fatal: the HTTP layer
// maps it to 409 with a Retry-After hint.
type AcquisitionError struct {
	ResourceKey string
	MaxRetries  int
	RetryAfter  time.Duration
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("could not acquire lock on %s after %d retries", e.ResourceKey, e.MaxRetries)
}

// Handle proves ownership of one acquired lock. Only the holder presenting
// the matching token may release or extend before expiry.
type Handle struct {
	ResourceKey string
	Token       string
	TTL         time.Duration
	AcquiredAt  time.Time

	expiresAt time.Time
}

type Manager struct {
	store      kvstore.Store
	log        *logger.Logger
	baseDelay  time.Duration
	maxDelay   time.Duration
	defaultTTL time.Duration
	maxRetries int
}

type Options struct {
	BaseDelay  time.Duration // first backoff step, grows by 1.5x per attempt
	MaxDelay   time.Duration // backoff cap
	DefaultTTL time.Duration // used by WithLock
	MaxRetries int           // used by WithLock
}

func NewManager(store kvstore.Store, log *logger.Logger, opts Options) *Manager {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 50 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 2 * time.Second
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 10 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	return &Manager{
		store:      store,
		log:        log,
		baseDelay:  opts.BaseDelay,
		maxDelay:   opts.MaxDelay,
		defaultTTL: opts.DefaultTTL,
		maxRetries: opts.MaxRetries,
	}
}

// Acquire takes the lock for resourceKey or fails with *AcquisitionError
// after the initial attempt plus maxRetries retries. A fresh token is
// generated per call so a handle can never release a successor's lock.
func (m *Manager) Acquire(ctx context.Context, resourceKey string, ttl time.Duration, maxRetries int) (*Handle, error) {
	token := uuid.NewString()
	key := keyPrefix + resourceKey

	for attempt := 0; ; attempt++ {
		acquired, err := m.store.SetNX(ctx, key, token, ttl)
		if err != nil {
			return nil, fmt.Errorf("lock acquire %s: %w", resourceKey, err)
		}
		if acquired {
			now := time.Now()
			return &Handle{
				ResourceKey: resourceKey,
				Token:       token,
				TTL:         ttl,
				AcquiredAt:  now,
				expiresAt:   now.Add(ttl),
			}, nil
		}

		if attempt >= maxRetries {
			m.log.Warn("Lock retry budget exhausted",
				"resource", resourceKey,
				"max_retries", maxRetries,
			)
			return nil, &AcquisitionError{
				ResourceKey: resourceKey,
				MaxRetries:  maxRetries,
				RetryAfter:  ttl,
			}
		}

		if err := m.wait(ctx, attempt); err != nil {
			// A timed-out acquisition has no side effect: nothing was set.
			return nil, err
		}
	}
}

// Release deletes the lock only while the stored token still matches the
// handle. An unconditional delete would be able to destroy a lock already
// reassigned to a different holder after expiry.
func (m *Manager) Release(ctx context.Context, h *Handle) bool {
	released, err := m.store.CompareAndDelete(ctx, keyPrefix+h.ResourceKey, h.Token)
	if err != nil {
		m.log.Error("Lock release failed",
			"resource", h.ResourceKey,
			"error", err,
		)
		return false
	}
	if !released {
		m.log.Warn("Lock already expired or reassigned at release",
			"resource", h.ResourceKey,
		)
	}
	return released
}

// Extend pushes the expiry out by additional time. Ownership is re-checked
// first; if the token no longer matches, Extend fails rather than overwrite
// another holder's lock.
func (m *Manager) Extend(ctx context.Context, h *Handle, additional time.Duration) bool {
	key := keyPrefix + h.ResourceKey

	current, err := m.store.Get(ctx, key)
	if err != nil || current != h.Token {
		return false
	}

	remaining := time.Until(h.expiresAt)
	if remaining < 0 {
		remaining = 0
	}
	newTTL := remaining + additional
	if err := m.store.Set(ctx, key, h.Token, newTTL); err != nil {
		m.log.Error("Lock extend failed",
			"resource", h.ResourceKey,
			"error", err,
		)
		return false
	}
	h.expiresAt = time.Now().Add(newTTL)
	return true
}

// WithLock runs fn under the lock and releases on every exit path: normal
// return, error return, and caller cancellation. The release uses a context
// detached from the caller's so an aborted request does not leak the lock
// until TTL expiry.
func (m *Manager) WithLock(ctx context.Context, resourceKey string, ttl time.Duration, fn func(ctx context.Context) error) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	handle, err := m.Acquire(ctx, resourceKey, ttl, m.maxRetries)
	if err != nil {
		return err
	}
	defer m.Release(context.WithoutCancel(ctx), handle)

	return fn(ctx)
}

// wait sleeps for the backoff delay of the given attempt, honoring ctx.
func (m *Manager) wait(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(m.baseDelay) * math.Pow(1.5, float64(attempt)))
	if delay > m.maxDelay {
		delay = m.maxDelay
	}
	delay += time.Duration(rand.Int63n(int64(maxJitter)))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
