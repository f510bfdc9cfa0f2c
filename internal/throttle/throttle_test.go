package throttle

import (
	"context"
	"testing"
	"time"
)

func TestAllow_EnforcesPerKeyLimit(t *testing.T) {
	l := NewLimiter(Config{EventsPerMinute: 3})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("user-1") {
			t.Fatalf("event %d for user-1 should be allowed", i+1)
		}
	}
	if l.Allow("user-1") {
		t.Error("fourth event for user-1 should be throttled")
	}

	// other keys are independent
	if !l.Allow("user-2") {
		t.Error("user-2 should not be affected by user-1's window")
	}
}

func TestWait_DefersInsteadOfDropping(t *testing.T) {
	l := NewLimiter(Config{EventsPerMinute: 1, RetryDelay: 10 * time.Millisecond})
	defer l.Stop()

	if !l.Allow("user-1") {
		t.Fatal("first event should be allowed")
	}

	// deferred wait must not be satisfied while the window is full
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "user-1"); err != context.DeadlineExceeded {
		t.Errorf("Wait() = %v, want context.DeadlineExceeded", err)
	}
}

func TestWait_AdmitsImmediatelyWhenFree(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	defer l.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx, "user-1"); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	l := NewLimiter(Config{EventsPerMinute: 5, CleanupInterval: time.Hour})
	defer l.Stop()

	l.Allow("user-1")
	if l.ActiveKeys() != 1 {
		t.Fatalf("ActiveKeys() = %d, want 1", l.ActiveKeys())
	}

	// age the entry past the cutoff, then clean
	l.mu.Lock()
	l.keys["user-1"].lastSeen = time.Now().Add(-time.Hour)
	l.mu.Unlock()
	l.cleanupStaleEntries()

	if l.ActiveKeys() != 0 {
		t.Errorf("ActiveKeys() after cleanup = %d, want 0", l.ActiveKeys())
	}
}
