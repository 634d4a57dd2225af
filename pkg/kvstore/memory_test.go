package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("expected v, got %q (err %v)", got, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
	}

	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("delete of absent key should not fail: %v", err)
	}
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "short", "v", 20*time.Millisecond); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := store.Get(ctx, "short"); err != nil {
		t.Fatalf("expected hit before expiry: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected expiry, got %v", err)
	}

	// SetNX must succeed over an expired entry.
	ok, err := store.SetNX(ctx, "short", "v2", time.Second)
	if err != nil || !ok {
		t.Errorf("SetNX over expired entry: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_SetNXMutualExclusion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const goroutines = 50
	var wins int32
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(n int) {
			defer wg.Done()
			ok, err := store.SetNX(ctx, "contended", fmt.Sprintf("owner-%d", n), time.Minute)
			if err != nil {
				t.Errorf("SetNX error: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestMemoryStore_CompareAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "lock:b1", "token-a", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// Wrong value must not delete.
	ok, err := store.CompareAndDelete(ctx, "lock:b1", "token-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("compare-and-delete succeeded with a stale token")
	}
	if _, err := store.Get(ctx, "lock:b1"); err != nil {
		t.Fatal("key was deleted despite token mismatch")
	}

	// Matching value deletes.
	ok, err = store.CompareAndDelete(ctx, "lock:b1", "token-a")
	if err != nil || !ok {
		t.Fatalf("expected deletion: ok=%v err=%v", ok, err)
	}

	// Absent key: no-op, returns false.
	ok, _ = store.CompareAndDelete(ctx, "lock:b1", "token-a")
	if ok {
		t.Error("compare-and-delete of absent key should return false")
	}
}

func TestMemoryStore_DeletePattern(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	keys := []string{
		"bookings:detail:RG-1",
		"bookings:detail:RG-2",
		"bookings:list:10:0",
		"bookings:list:10:10",
		"lock:bookings:RG-1",
	}
	for _, k := range keys {
		if err := store.Set(ctx, k, "v", 0); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	removed, err := store.DeletePattern(ctx, "bookings:list:*")
	if err != nil {
		t.Fatalf("delete pattern failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removals, got %d", removed)
	}

	if _, err := store.Get(ctx, "bookings:detail:RG-1"); err != nil {
		t.Error("detail key should survive list invalidation")
	}
	if _, err := store.Get(ctx, "lock:bookings:RG-1"); err != nil {
		t.Error("lock key should survive list invalidation")
	}
	if _, err := store.Get(ctx, "bookings:list:10:0"); !errors.Is(err, ErrKeyNotFound) {
		t.Error("list key should be gone")
	}
}
