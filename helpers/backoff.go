package helpers

import (
	"math"
	"sync"
	"time"
)

// Backoff grows retry delay by K per consecutive failure, from Min up to Max.
// No failures means no delay. Safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	failures int
	last     time.Time // of last Update

	min time.Duration
	max time.Duration
	k   float64
}

func NewBackoff(min, max time.Duration, k float32) *Backoff {
	b := &Backoff{k: float64(k)}
	if b.k < 1 {
		b.k = 1
	}
	b.SetLimits(min, max)
	return b
}

func (b *Backoff) SetLimits(min, max time.Duration) {
	if max < min {
		max = min
	}
	b.mu.Lock()
	b.min, b.max = min, max
	b.mu.Unlock()
}

// DelayAfter records op result and returns time to wait before next attempt.
//   for {
//     err := op()
//     time.Sleep(backoff.DelayAfter(err == nil))
//   }
func (b *Backoff) DelayAfter(success bool) time.Duration {
	b.Update(success)
	return b.DelayBefore()
}

// DelayBefore is the rest of current delay, time since last Update is subtracted.
func (b *Backoff) DelayBefore() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.delay() - time.Since(b.last)
	if d <= 0 {
		return 0
	}
	return d.Truncate(time.Millisecond)
}

// Next is the full delay for current failure streak.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delay()
}

func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Backoff) Update(success bool) {
	b.mu.Lock()
	if success {
		b.failures = 0
	} else if b.delay() < b.max {
		b.failures++
	}
	b.last = time.Now()
	b.mu.Unlock()
}

func (b *Backoff) Failure() { b.Update(false) }
func (b *Backoff) Reset()   { b.Update(true) }

func (b *Backoff) delay() time.Duration {
	if b.failures == 0 {
		return 0
	}
	d := float64(b.min) * math.Pow(b.k, float64(b.failures-1))
	if d >= float64(b.max) {
		return b.max
	}
	return time.Duration(d).Truncate(time.Millisecond)
}
