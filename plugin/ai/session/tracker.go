package session

import (
	"sync"
	"time"
)

// DefaultTTL is the maximum idle age before session state is replaced.
const DefaultTTL = 4 * time.Hour

// tracker implements DiffTracker with one lazily-created state per session id.
// The shared map is only used for lookup and insertion; all mutation happens
// under the per-session lock, so concurrent requests never contend on the
// whole structure.
type tracker struct {
	ttl   time.Duration
	clock Clock

	sessions sync.Map // session id -> *sessionState
}

type sessionState struct {
	mu         sync.Mutex
	seen       map[string]struct{}
	hits       int64
	lastAccess time.Time
}

// NewTracker creates a DiffTracker with the given TTL and clock.
// Zero ttl falls back to DefaultTTL; nil clock falls back to the system clock.
func NewTracker(ttl time.Duration, clock Clock) DiffTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &tracker{
		ttl:   ttl,
		clock: clock,
	}
}

// FilterNew returns the codes not previously seen for this session.
// Membership check and insertion happen together under the session lock, so a
// code can be observed as new at most once (first writer wins).
func (t *tracker) FilterNew(sessionID string, codes []string) []string {
	now := t.clock.Now()
	s := t.get(sessionID, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now, t.ttl)

	fresh := make([]string, 0, len(codes))
	for _, code := range codes {
		if _, ok := s.seen[code]; ok {
			continue
		}
		s.seen[code] = struct{}{}
		fresh = append(fresh, code)
	}
	s.lastAccess = now
	return fresh
}

// RecordHit increments and returns the session hit counter.
func (t *tracker) RecordHit(sessionID string) int64 {
	now := t.clock.Now()
	s := t.get(sessionID, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(now, t.ttl)

	s.hits++
	s.lastAccess = now
	return s.hits
}

// Sweep drops sessions whose idle age exceeds the TTL.
func (t *tracker) Sweep() int {
	now := t.clock.Now()
	dropped := 0

	t.sessions.Range(func(key, value any) bool {
		s := value.(*sessionState)
		s.mu.Lock()
		expired := now.Sub(s.lastAccess) >= t.ttl
		s.mu.Unlock()
		if expired {
			t.sessions.Delete(key)
			dropped++
		}
		return true
	})
	return dropped
}

func (t *tracker) get(sessionID string, now time.Time) *sessionState {
	if v, ok := t.sessions.Load(sessionID); ok {
		return v.(*sessionState)
	}
	v, _ := t.sessions.LoadOrStore(sessionID, &sessionState{
		seen:       make(map[string]struct{}),
		lastAccess: now,
	})
	return v.(*sessionState)
}

// expireLocked substitutes a brand-new empty state once the idle age exceeds
// the TTL, so an expired session behaves exactly like a new one.
// Must be called with the session lock held.
func (s *sessionState) expireLocked(now time.Time, ttl time.Duration) {
	if now.Sub(s.lastAccess) >= ttl {
		s.seen = make(map[string]struct{})
		s.hits = 0
	}
}

var _ DiffTracker = (*tracker)(nil)
