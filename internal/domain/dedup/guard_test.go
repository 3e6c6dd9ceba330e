package dedup_test

import (
	"fmt"
	"testing"
	"time"

	"zapcrm/messaging-gateway/internal/domain/dedup"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestGuard_MarkThenWasSent(t *testing.T) {
	clock := newFakeClock()
	guard := dedup.New(30*time.Second, 100, clock)

	guard.MarkSent("cfg-1", "ext-1")

	if !guard.WasSent("cfg-1", "ext-1") {
		t.Fatal("expected WasSent to report the marked id")
	}
}

func TestGuard_HitConsumesEntry(t *testing.T) {
	clock := newFakeClock()
	guard := dedup.New(30*time.Second, 100, clock)

	guard.MarkSent("cfg-1", "ext-1")

	if !guard.WasSent("cfg-1", "ext-1") {
		t.Fatal("first hit should succeed")
	}
	if guard.WasSent("cfg-1", "ext-1") {
		t.Fatal("second hit should miss, entries are consume-once")
	}
}

func TestGuard_ExpiryAfterTTL(t *testing.T) {
	clock := newFakeClock()
	guard := dedup.New(30*time.Second, 100, clock)

	guard.MarkSent("cfg-1", "ext-1")
	clock.Advance(31 * time.Second)

	if guard.WasSent("cfg-1", "ext-1") {
		t.Fatal("entry past its TTL must not suppress the echo")
	}
}

func TestGuard_ScopedByConfig(t *testing.T) {
	clock := newFakeClock()
	guard := dedup.New(30*time.Second, 100, clock)

	guard.MarkSent("cfg-1", "ext-1")

	if guard.WasSent("cfg-2", "ext-1") {
		t.Fatal("an id marked for one tenant must not match another tenant")
	}
	if !guard.WasSent("cfg-1", "ext-1") {
		t.Fatal("the original tenant's entry should survive the miss")
	}
}

func TestGuard_UnknownIDMisses(t *testing.T) {
	guard := dedup.New(30*time.Second, 100, newFakeClock())

	if guard.WasSent("cfg-1", "never-marked") {
		t.Fatal("unmarked id must miss")
	}
}

func TestGuard_CapacitySweepsExpiredFirst(t *testing.T) {
	clock := newFakeClock()
	guard := dedup.New(30*time.Second, 3, clock)

	guard.MarkSent("cfg-1", "old-1")
	guard.MarkSent("cfg-1", "old-2")
	clock.Advance(31 * time.Second)
	guard.MarkSent("cfg-1", "fresh-1")

	// All three slots look full, but two are expired; the new mark must not
	// evict the live entry.
	guard.MarkSent("cfg-1", "fresh-2")

	if !guard.WasSent("cfg-1", "fresh-1") {
		t.Fatal("live entry was evicted while expired entries existed")
	}
	if !guard.WasSent("cfg-1", "fresh-2") {
		t.Fatal("newly marked entry missing")
	}
}

func TestGuard_CapacityDropsOldestWhenAllLive(t *testing.T) {
	clock := newFakeClock()
	guard := dedup.New(time.Minute, 3, clock)

	for i := 0; i < 3; i++ {
		guard.MarkSent("cfg-1", fmt.Sprintf("ext-%d", i))
		clock.Advance(time.Second)
	}
	guard.MarkSent("cfg-1", "ext-new")

	if guard.WasSent("cfg-1", "ext-0") {
		t.Fatal("oldest entry should have been dropped at capacity")
	}
	if !guard.WasSent("cfg-1", "ext-new") {
		t.Fatal("newest entry missing")
	}
	if guard.Len() > 3 {
		t.Fatalf("guard exceeded its capacity: %d entries", guard.Len())
	}
}
