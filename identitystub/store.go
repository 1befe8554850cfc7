package identitystub

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type sessionEntry struct {
	email     string
	expiresAt time.Time
}

// sessionStore is an in-memory TTL map of session id to account email
type sessionStore struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry
	now     func() time.Time
}

func newSessionStore(now func() time.Time) *sessionStore {
	return &sessionStore{
		entries: make(map[string]*sessionEntry),
		now:     now,
	}
}

func (s *sessionStore) get(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, found := s.entries[id]
	if !found || s.now().After(entry.expiresAt) {
		return "", false
	}
	return entry.email, true
}

func (s *sessionStore) set(id, email string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupLocked()
	s.entries[id] = &sessionEntry{
		email:     email,
		expiresAt: s.now().Add(ttl),
	}
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// deleteFor drops every session of email
func (s *sessionStore) deleteFor(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if entry.email == email {
			delete(s.entries, id)
		}
	}
}

func (s *sessionStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*sessionEntry)
}

func (s *sessionStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	now := s.now()
	for _, entry := range s.entries {
		if !now.After(entry.expiresAt) {
			n++
		}
	}
	return n
}

func (s *sessionStore) cleanupLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// loginLimiter throttles login attempts per client IP
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func newLoginLimiter(r rate.Limit, burst int, now func() time.Time) *loginLimiter {
	return &loginLimiter{
		limiters: make(map[string]*ipLimiter),
		rate:     r,
		burst:    burst,
		now:      now,
	}
}

func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > 5*time.Minute {
			delete(l.limiters, key)
		}
	}

	entry, exists := l.limiters[ip]
	if !exists {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// retryAfter is the Retry-After header value in seconds
func (l *loginLimiter) retryAfter() string {
	seconds := 1
	if l.rate > 0 && float64(l.rate) < 1 {
		seconds = int(1.0 / float64(l.rate))
	}
	return strconv.Itoa(seconds)
}
