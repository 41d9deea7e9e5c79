package policy

import (
	"sync"
	"time"
)

// RateLimitResult is the outcome of one rate-limit check.
type RateLimitResult struct {
	Limited bool
	Key     string
	// RetryAfter and ResetAt are set only when Limited is true.
	RetryAfter time.Duration
	ResetAt    time.Time
}

type rateEntry struct {
	windowStart time.Time
	count       int
}

// RateLimitStore counts acceptances per key in fixed, non-sliding windows.
// When a key's window expires the count restarts at zero. A zero max
// disables the store entirely.
type RateLimitStore struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	maxKeys int
	evictor Evictor
	entries map[string]rateEntry
	now     func() time.Time
}

// NewRateLimitStore creates a store allowing max acceptances per window per
// key, tracking at most maxKeys keys and evicting by SoonestDeadline.
func NewRateLimitStore(max int, window time.Duration, maxKeys int) *RateLimitStore {
	return &RateLimitStore{
		max:     max,
		window:  window,
		maxKeys: maxKeys,
		evictor: SoonestDeadline{},
		entries: make(map[string]rateEntry),
		now:     time.Now,
	}
}

// CheckAndRecord increments the key's window counter and reports whether the
// cap was already reached. Expired windows reset to a count of one.
func (s *RateLimitStore) CheckAndRecord(key string) RateLimitResult {
	if s.max == 0 {
		return RateLimitResult{Key: key}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	switch {
	case !ok, now.Sub(e.windowStart) >= s.window:
		if !ok && len(s.entries) >= s.maxKeys {
			s.evictLocked(now)
		}
		s.entries[key] = rateEntry{windowStart: now, count: 1}
	case e.count < s.max:
		e.count++
		s.entries[key] = e
	default:
		resetAt := e.windowStart.Add(s.window)
		return RateLimitResult{
			Limited:    true,
			Key:        key,
			RetryAfter: resetAt.Sub(now),
			ResetAt:    resetAt,
		}
	}
	return RateLimitResult{Key: key}
}

// evictLocked frees at least one slot: keys with expired windows go first,
// otherwise the evictor picks among live window deadlines. Called under mu.
func (s *RateLimitStore) evictLocked(now time.Time) {
	deadlines := make(map[string]time.Time, len(s.entries))
	freed := false
	for k, e := range s.entries {
		if now.Sub(e.windowStart) >= s.window {
			delete(s.entries, k)
			freed = true
			continue
		}
		deadlines[k] = e.windowStart.Add(s.window)
	}
	if freed {
		return
	}
	if victim := s.evictor.Victim(deadlines); victim != "" {
		delete(s.entries, victim)
	}
}

// Len reports the number of tracked keys.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// SetNowFunc overrides the clock, for tests.
func (s *RateLimitStore) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = fn
}
