// Package throttle provides a keyed rate limiter for recurrence event
// processing. Excess work is deferred with Wait, never dropped.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Limiter allows up to EventsPerMinute operations per key per rolling
// minute.
type Limiter struct {
	mu           sync.Mutex
	keys         map[string]*keyInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once

	eventsPerMinute int
	cleanupInterval time.Duration
	retryDelay      time.Duration
}

type keyInfo struct {
	windowStart time.Time
	count       int
	lastSeen    time.Time
}

// Config holds throttle configuration.
type Config struct {
	EventsPerMinute int
	CleanupInterval time.Duration
	// RetryDelay is how long Wait sleeps between admission attempts.
	RetryDelay time.Duration
}

// DefaultConfig matches the processing contract: 10 events per user per
// rolling minute.
func DefaultConfig() Config {
	return Config{
		EventsPerMinute: 10,
		CleanupInterval: 5 * time.Minute,
		RetryDelay:      time.Second,
	}
}

func NewLimiter(config Config) *Limiter {
	if config.EventsPerMinute <= 0 {
		config.EventsPerMinute = DefaultConfig().EventsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}

	l := &Limiter{
		keys:            make(map[string]*keyInfo),
		stopCleanup:     make(chan struct{}),
		eventsPerMinute: config.EventsPerMinute,
		cleanupInterval: config.CleanupInterval,
		retryDelay:      config.RetryDelay,
	}
	go l.startCleanup()
	return l
}

// Allow reports whether one more operation for key fits in the current
// window, counting it when it does.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	info, exists := l.keys[key]

	if !exists || now.Sub(info.windowStart) > time.Minute {
		l.keys[key] = &keyInfo{windowStart: now, count: 1, lastSeen: now}
		return true
	}

	info.lastSeen = now
	if info.count >= l.eventsPerMinute {
		return false
	}
	info.count++
	return true
}

// Wait blocks until the key is admitted or ctx ends. This is the
// deferral path: a throttled event is delayed, not discarded.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		if l.Allow(key) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Limiter) startCleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupStaleEntries()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries drops keys idle for more than 10 minutes.
func (l *Limiter) cleanupStaleEntries() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for key, info := range l.keys {
		if info.lastSeen.Before(cutoff) {
			delete(l.keys, key)
		}
	}
}

// ActiveKeys returns the number of currently tracked keys.
func (l *Limiter) ActiveKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Stop shuts down the cleanup goroutine.
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}
