package ratelimit

import (
	"math"
	"sync"
	"time"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Every key shares the same capacity and
// refill rate; buckets idle long enough to be full again are dropped by Sweep.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	now        func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	return NewWithClock(capacity, refillPerSec, time.Now)
}

func NewWithClock(capacity, refillPerSec float64, now func() time.Time) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{m: make(map[string]*bucket), capacity: capacity, refillRate: refillPerSec, now: now}
}

// Allow consumes one token for key. When the bucket is empty it reports the
// time until the next token is available.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	// refill
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.refillRate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.refillRate <= 0 {
		return false, time.Duration(math.MaxInt64)
	}
	wait := time.Duration((1 - b.tokens) / l.refillRate * float64(time.Second))
	return false, wait
}

// Sweep removes buckets that would be full by now.
func (l *Limiter) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for k, b := range l.m {
		if l.refillRate > 0 && b.tokens+now.Sub(b.last).Seconds()*l.refillRate >= l.capacity {
			delete(l.m, k)
			removed++
		}
	}
	return removed
}
