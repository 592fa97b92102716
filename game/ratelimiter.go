package game

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	loginAttemptInterval = 10 * time.Second
	loginAttemptCleanup  = 1 * time.Minute
)

// loginRateLimiter tracks failed login attempts per username. Entries older
// than loginAttemptInterval are removed every loginAttemptCleanup, so even
// an attacker spamming unique usernames only keeps about 70 seconds worth.
type loginRateLimiter struct {
	mu       sync.RWMutex
	attempts map[string]time.Time
}

// newLoginRateLimiter starts a cleanup loop that runs until ctx is cancelled.
func newLoginRateLimiter(ctx context.Context) *loginRateLimiter {
	l := &loginRateLimiter{
		attempts: make(map[string]time.Time),
	}
	go l.runCleanupLoop(ctx)
	return l
}

func (l *loginRateLimiter) runCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(loginAttemptCleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup(time.Now())
		}
	}
}

func (l *loginRateLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for username, lastAttempt := range l.attempts {
		if now.Sub(lastAttempt) > loginAttemptInterval {
			delete(l.attempts, username)
		}
	}
}

// wait returns how long to wait before the next attempt for username.
func (l *loginRateLimiter) wait(username string) time.Duration {
	l.mu.RLock()
	last, ok := l.attempts[username]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	return max(0, loginAttemptInterval-time.Since(last))
}

// waitIfNeeded blocks if a recent failed attempt exists for the username.
func (l *loginRateLimiter) waitIfNeeded(ctx context.Context, username string, w io.Writer) error {
	wait := l.wait(username)
	if wait == 0 {
		return nil
	}
	fmt.Fprintf(w, "Please wait %v before trying again.\n", wait.Round(time.Second))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (l *loginRateLimiter) recordFailure(username string) {
	l.mu.Lock()
	l.attempts[username] = time.Now()
	l.mu.Unlock()
}

func (l *loginRateLimiter) clearFailure(username string) {
	l.mu.Lock()
	delete(l.attempts, username)
	l.mu.Unlock()
}
