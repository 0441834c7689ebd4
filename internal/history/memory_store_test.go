package history

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	record := &WriteRecord{ID: "w-1", Kind: "create", Account: "0xabc", Payload: "Rex"}
	if err := store.Create(ctx, record); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, record); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate create = %v, want ErrConflict", err)
	}

	got, err := store.Get(ctx, "w-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}

	if err := store.MarkResolved(ctx, "w-1", "created", "0xdeadbeef", 3); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err = store.Get(ctx, "w-1")
	if err != nil {
		t.Fatalf("get after resolve: %v", err)
	}
	if got.Status != StatusResolved || got.Outcome != "created" || got.Attempts != 3 {
		t.Fatalf("resolved record = %+v", got)
	}
	if got.CompletedAt == 0 {
		t.Fatal("completed_at not set")
	}
}

func TestMemoryStoreMarkFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Create(ctx, &WriteRecord{ID: "w-2", Kind: "action", Account: "0xabc", Payload: "Feed"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.MarkFailed(ctx, "w-2", "SUBMIT_FAILED", ""); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, err := store.Get(ctx, "w-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusFailed || got.ErrorCode != "SUBMIT_FAILED" {
		t.Fatalf("failed record = %+v", got)
	}

	if err := store.MarkFailed(ctx, "missing", "X", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing record = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	for i, id := range []string{"a", "b", "c"} {
		record := &WriteRecord{ID: id, Kind: "action", Account: "0xabc", Payload: "Run", SubmittedAt: int64(100 + i)}
		if err := store.Create(ctx, record); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	out, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ID != "c" || out[1].ID != "b" {
		t.Fatalf("order = %s, %s", out[0].ID, out[1].ID)
	}
}
