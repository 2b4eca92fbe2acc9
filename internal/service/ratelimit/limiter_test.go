package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewWithClock(2, 0.5, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("a"); !ok {
			t.Fatalf("request %d should pass", i)
		}
	}
	ok, wait := l.Allow("a")
	if ok {
		t.Fatalf("third request should be limited")
	}
	if wait != 2*time.Second {
		t.Fatalf("wait=%v want 2s", wait)
	}
	if ok, _ := l.Allow("b"); !ok {
		t.Fatalf("keys must be independent")
	}

	now = now.Add(2 * time.Second)
	if ok, _ := l.Allow("a"); !ok {
		t.Fatalf("token should have refilled")
	}
	if ok, _ := l.Allow("a"); ok {
		t.Fatalf("only one token refilled")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewWithClock(1, 1, func() time.Time { return now })
	l.Allow("a")
	l.Allow("b")
	if n := l.Sweep(); n != 0 {
		t.Fatalf("swept %d, buckets are not full yet", n)
	}
	now = now.Add(time.Second)
	if n := l.Sweep(); n != 2 {
		t.Fatalf("swept %d want 2", n)
	}
}
