package documents

import (
	"sync"
	"time"
)

const defaultPollWindow = 1 * time.Second

// pollLimiter throttles status polling per user+document pair: one request
// per window, subsequent hits inside the window are rejected.
type pollLimiter struct {
	mu          sync.Mutex
	nextAllowed map[string]time.Time
	now         func() time.Time
	window      time.Duration
}

func newPollLimiter(window time.Duration, now func() time.Time) *pollLimiter {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = defaultPollWindow
	}
	return &pollLimiter{
		nextAllowed: make(map[string]time.Time),
		now:         now,
		window:      window,
	}
}

func (l *pollLimiter) Allow(userID, documentID string) bool {
	if l == nil {
		return true
	}
	key := userID + "|" + documentID
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if next, ok := l.nextAllowed[key]; ok && now.Before(next) {
		return false
	}
	l.nextAllowed[key] = now.Add(l.window)
	return true
}

func (l *pollLimiter) RetryAfterSeconds() int {
	if l == nil {
		return int(defaultPollWindow.Seconds())
	}
	secs := int(l.window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
