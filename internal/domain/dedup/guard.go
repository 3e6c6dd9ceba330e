// Package dedup suppresses duplicate persistence of messages that were sent
// through the command API and later echoed back by the network event stream.
package dedup

import (
	"sync"
	"time"
)

// Clock abstracts time so tests control expiry.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Guard is a bounded, time-limited set of external message identifiers that
// this process submitted for sending. Entries are consumed on first hit and
// expire after the configured window. The guard is not persisted: after a
// process restart a mid-flight echo produces a duplicate (at-most-once).
type Guard struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	clock      Clock
	entries    map[string]time.Time
}

// New creates a guard. maxEntries bounds memory; when full, expired entries
// are swept and, if still full, the oldest entry is dropped.
func New(ttl time.Duration, maxEntries int, clock Clock) *Guard {
	if clock == nil {
		clock = SystemClock()
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Guard{
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]time.Time),
	}
}

// MarkSent registers an external id submitted via the command API.
func (g *Guard) MarkSent(configID, externalID string) {
	key := guardKey(configID, externalID)
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.entries) >= g.maxEntries {
		g.sweepLocked(now)
	}
	if len(g.entries) >= g.maxEntries {
		g.dropOldestLocked()
	}
	g.entries[key] = now.Add(g.ttl)
}

// WasSent reports whether the id was registered and not yet expired.
// A hit consumes the entry: the echo path suppresses exactly one event.
func (g *Guard) WasSent(configID, externalID string) bool {
	key := guardKey(configID, externalID)
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	deadline, ok := g.entries[key]
	if !ok {
		return false
	}
	delete(g.entries, key)
	return now.Before(deadline)
}

// Len returns the number of live entries, sweeping expired ones first.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked(g.clock.Now())
	return len(g.entries)
}

func (g *Guard) sweepLocked(now time.Time) {
	for key, deadline := range g.entries {
		if !now.Before(deadline) {
			delete(g.entries, key)
		}
	}
}

func (g *Guard) dropOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, deadline := range g.entries {
		if oldestKey == "" || deadline.Before(oldest) {
			oldestKey = key
			oldest = deadline
		}
	}
	if oldestKey != "" {
		delete(g.entries, oldestKey)
	}
}

func guardKey(configID, externalID string) string {
	return configID + "|" + externalID
}
