package auth

import (
	"sync"
	"time"
)

// Attempts remembers failed authentication attempts per client IP.
type Attempts struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	now      func() time.Time
}

// NewAttempts creates an empty tracker.
func NewAttempts() *Attempts {
	return &Attempts{failures: make(map[string][]time.Time), now: time.Now}
}

// Track records an attempt for ip. A success clears its failures.
func (a *Attempts) Track(ip string, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if success {
		delete(a.failures, ip)
		return
	}
	a.failures[ip] = append(a.failures[ip], a.now())
}

// IsBlocked returns true if ip has at least maxAttempts failures within window.
func (a *Attempts) IsBlocked(ip string, maxAttempts int, window time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	since := a.now().Add(-window)
	count := 0
	for _, t := range a.failures[ip] {
		if t.After(since) {
			count++
		}
	}
	return count >= maxAttempts
}

// CleanOld drops failures older than 24 hours.
func (a *Attempts) CleanOld() {
	a.mu.Lock()
	defer a.mu.Unlock()
	cutoff := a.now().Add(-24 * time.Hour)
	for ip, ts := range a.failures {
		kept := ts[:0]
		for _, t := range ts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(a.failures, ip)
		} else {
			a.failures[ip] = kept
		}
	}
}
