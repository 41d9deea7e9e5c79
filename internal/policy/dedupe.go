package policy

import (
	"sync"
	"time"
)

// DedupeResult is the outcome of one dedupe check.
type DedupeResult struct {
	Suppressed bool
	Key        string
	// RetryAfter is the time left in the suppression window, set only when
	// Suppressed is true.
	RetryAfter time.Duration
}

// DedupeStore suppresses repeats of a fingerprint for a fixed window after
// its first occurrence. Later occurrences inside the window are dropped and
// do not extend it. A zero window disables the store entirely.
type DedupeStore struct {
	mu      sync.Mutex
	window  time.Duration
	maxKeys int
	evictor Evictor
	expiry  map[string]time.Time
	// now is swappable in tests.
	now func() time.Time
}

// NewDedupeStore creates a store holding at most maxKeys live fingerprints,
// evicting by SoonestDeadline under capacity pressure.
func NewDedupeStore(window time.Duration, maxKeys int) *DedupeStore {
	return &DedupeStore{
		window:  window,
		maxKeys: maxKeys,
		evictor: SoonestDeadline{},
		expiry:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// CheckAndRecord accepts the first occurrence of key and opens its window;
// occurrences while the window is live are suppressed. Check and insert are
// a single atomic step, so concurrent requests for one key have exactly one
// winner.
func (s *DedupeStore) CheckAndRecord(key string) DedupeResult {
	if s.window == 0 {
		return DedupeResult{Key: key}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiry[key]; ok && now.Before(exp) {
		return DedupeResult{
			Suppressed: true,
			Key:        key,
			RetryAfter: exp.Sub(now),
		}
	}

	if _, ok := s.expiry[key]; !ok && len(s.expiry) >= s.maxKeys {
		s.evictLocked(now)
	}
	s.expiry[key] = now.Add(s.window)
	return DedupeResult{Key: key}
}

// evictLocked frees at least one slot: expired entries are dropped first;
// otherwise the evictor picks a victim. Called under mu.
func (s *DedupeStore) evictLocked(now time.Time) {
	freed := false
	for k, exp := range s.expiry {
		if !now.Before(exp) {
			delete(s.expiry, k)
			freed = true
		}
	}
	if freed {
		return
	}
	if victim := s.evictor.Victim(s.expiry); victim != "" {
		delete(s.expiry, victim)
	}
}

// Len reports the number of tracked fingerprints, expired entries included.
func (s *DedupeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiry)
}

// SetNowFunc overrides the clock, for tests.
func (s *DedupeStore) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = fn
}
