package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more request for key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const (
	defaultIdleTTL    = 10 * time.Minute
	pruneCheckEntries = 1024
)

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Local keeps one token bucket per key in process memory. Buckets idle for
// longer than the idle TTL are pruned once the map grows.
type Local struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewLocal allows perMinute requests per key, with bursts of the same size.
func NewLocal(perMinute int) *Local {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Local{
		entries: make(map[string]*localEntry),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
	}
}

func (limiter *Local) Allow(_ context.Context, key string) (bool, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.now()
	if len(limiter.entries) >= pruneCheckEntries {
		limiter.pruneLocked(now)
	}

	entry, ok := limiter.entries[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

// Prune drops buckets that have been idle longer than the idle TTL.
func (limiter *Local) Prune() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return limiter.pruneLocked(limiter.now())
}

func (limiter *Local) pruneLocked(now time.Time) int {
	removed := 0
	for key, entry := range limiter.entries {
		if now.Sub(entry.lastSeen) > limiter.idleTTL {
			delete(limiter.entries, key)
			removed++
		}
	}
	return removed
}

func (limiter *Local) size() int {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	return len(limiter.entries)
}
