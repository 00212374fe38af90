package registry

import (
	"sync"
	"time"
)

// RateLimiter paces outgoing registry calls. The clinical registry
// throttles bursts well below its documented quota, so each caller
// reserves the next free slot and sleeps until it arrives.
type RateLimiter struct {
	mu       sync.Mutex
	nextSlot time.Time
	minGap   time.Duration
}

func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RateLimiter{minGap: time.Second / time.Duration(requestsPerSecond)}
}

// WaitTurn blocks until the caller's reserved slot. Reservation happens
// under the lock; the sleep does not, so waiting callers queue without
// holding the mutex.
func (r *RateLimiter) WaitTurn() {
	r.mu.Lock()
	now := time.Now()
	slot := now
	if r.nextSlot.After(now) {
		slot = r.nextSlot
	}
	r.nextSlot = slot.Add(r.minGap)
	r.mu.Unlock()

	if wait := time.Until(slot); wait > 0 {
		time.Sleep(wait)
	}
}
