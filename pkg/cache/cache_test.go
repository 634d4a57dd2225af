package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"radiantgo/pkg/kvstore"
	"radiantgo/pkg/logger"
)

type payload struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

func newTestCache() *Cache {
	log := logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"})
	return New(kvstore.NewMemoryStore(), log)
}

func TestGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()

	var missed payload
	if err := c.Get(ctx, DetailKey("RG-1"), &missed); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}

	want := payload{Ref: "RG-1", Status: "BOOKED"}
	if err := c.Set(ctx, DetailKey("RG-1"), want, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got payload
	if err := c.Get(ctx, DetailKey("RG-1"), &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestInvalidate_PatternRemovesListFamilyOnly(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()

	if err := c.Set(ctx, DetailKey("RG-1"), payload{Ref: "RG-1"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, ListKey(10, 0), []payload{{Ref: "RG-1"}}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, ListKey(10, 10), []payload{}, time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := c.Invalidate(ctx, ListPattern()); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	var page []payload
	if err := c.Get(ctx, ListKey(10, 0), &page); !errors.Is(err, ErrMiss) {
		t.Error("list page should be invalidated")
	}
	var detail payload
	if err := c.Get(ctx, DetailKey("RG-1"), &detail); err != nil {
		t.Error("detail key should survive list invalidation")
	}
}

func TestInvalidate_NoStaleReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	key := DetailKey("RG-9")

	if err := c.Set(ctx, key, payload{Ref: "RG-9", Status: "BOOKED"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	// Simulates the write path: commit, then invalidate the detail key.
	if err := c.Invalidate(ctx, key); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	var got payload
	if err := c.Get(ctx, key, &got); !errors.Is(err, ErrMiss) {
		t.Fatalf("read after invalidation must miss, got %+v (err %v)", got, err)
	}
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()
	key := ListKey(5, 0)

	computes := 0
	compute := func(ctx context.Context) (any, error) {
		computes++
		return []payload{{Ref: "RG-1", Status: "BOOKED"}}, nil
	}

	var first []payload
	if err := c.GetOrSet(ctx, key, time.Minute, &first, compute); err != nil {
		t.Fatalf("first GetOrSet failed: %v", err)
	}
	var second []payload
	if err := c.GetOrSet(ctx, key, time.Minute, &second, compute); err != nil {
		t.Fatalf("second GetOrSet failed: %v", err)
	}

	if computes != 1 {
		t.Errorf("expected one compute, got %d", computes)
	}
	if len(second) != 1 || second[0].Ref != "RG-1" {
		t.Errorf("unexpected cached page: %+v", second)
	}
}

func TestGetOrSet_ComputeErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()

	wantErr := errors.New("record store down")
	var dest payload
	err := c.GetOrSet(ctx, DetailKey("RG-0"), time.Minute, &dest, func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected compute error, got %v", err)
	}
}
