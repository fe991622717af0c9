package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newMemory(t *testing.T, clock *fakeClock, idle time.Duration) *MemoryStore {
	t.Helper()
	return NewMemoryStore(WithMemoryIdleTimeout(idle), WithMemoryClock(clock.Now))
}

func TestMemoryCreateAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newMemory(t, clock, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, Snapshot{UserID: "u1", Username: "dr.adams"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.User.UserID != "u1" {
		t.Fatalf("unexpected snapshot: %+v", sess.User)
	}

	if _, err := store.Get(ctx, "no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryTouchRefreshesActivity(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newMemory(t, clock, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, Snapshot{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Keep touching every 40 minutes; the session survives far beyond the
	// original one-hour window because each touch resets the idle clock.
	for i := 0; i < 5; i++ {
		clock.Advance(40 * time.Minute)
		if _, err := store.Touch(ctx, id); err != nil {
			t.Fatalf("Touch after %d intervals: %v", i+1, err)
		}
	}
}

func TestMemoryIdleTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newMemory(t, clock, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, Snapshot{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clock.Advance(61 * time.Minute)
	if _, err := store.Touch(ctx, id); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// The expiry check ran before any refresh: the session is gone, and even a
	// clock rollback cannot resurrect it.
	clock.Advance(-59 * time.Minute)
	if _, err := store.Touch(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

// Get checks expiry but never refreshes activity; only Touch does.
func TestMemoryGetDoesNotRefresh(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newMemory(t, clock, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, Snapshot{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clock.Advance(40 * time.Minute)
	if _, err := store.Get(ctx, id); err != nil {
		t.Fatalf("Get: %v", err)
	}
	clock.Advance(40 * time.Minute)
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired since Get must not refresh, got %v", err)
	}
}

func TestMemoryLastActivityMonotonic(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newMemory(t, clock, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, Snapshot{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	clock.Advance(30 * time.Minute)
	sess, err := store.Touch(ctx, id)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	high := sess.LastActivity

	// A clock stepping backwards must not move last_activity backwards.
	clock.Advance(-10 * time.Minute)
	sess, err = store.Touch(ctx, id)
	if err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if sess.LastActivity.Before(high) {
		t.Fatalf("last activity went backwards: %v -> %v", high, sess.LastActivity)
	}
}

func TestMemoryDestroy(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newMemory(t, clock, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, Snapshot{UserID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Destroy(ctx, id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Destroy is idempotent.
	if err := store.Destroy(ctx, id); err != nil {
		t.Fatalf("repeated Destroy: %v", err)
	}
}

func TestMemorySwitchOrganization(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := newMemory(t, clock, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx, Snapshot{UserID: "u1", OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.SwitchOrganization(ctx, id, "org-2"); err != nil {
		t.Fatalf("SwitchOrganization: %v", err)
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.User.CurrentOrganizationID != "org-2" || sess.User.OrganizationID != "org-1" {
		t.Fatalf("unexpected snapshot after switch: %+v", sess.User)
	}

	if err := store.SwitchOrganization(ctx, "no-such-session", "org-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
