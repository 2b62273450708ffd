// Package session tracks which transaction codes have already been returned
// within a conversation, so repeated searches do not resend the same rows.
package session

import "time"

// Clock supplies the current time. Injected so tests can advance time
// deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// DiffTracker is the per-conversation deduplication service.
// State is process-local; losing it only causes previously-seen rows to be
// resent once.
type DiffTracker interface {
	// FilterNew returns the subsequence of codes not previously seen for this
	// session, marking them as seen in the same step.
	FilterNew(sessionID string, codes []string) []string

	// RecordHit increments and returns the session hit counter.
	RecordHit(sessionID string) int64

	// Sweep removes expired sessions and returns how many were dropped.
	// Expiry is otherwise evaluated lazily on access; nothing schedules
	// Sweep by default.
	Sweep() int
}
