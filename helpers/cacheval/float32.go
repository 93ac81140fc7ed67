// Atomic value with validity timeout.
// "updated" timestamp is stored after value, without consistency.
// Usage scenario: sensor reading which is expensive to refresh on every packet.
// All methods except `Init` are thread-safe.
package cacheval

import (
	"time"

	"github.com/temoto/meterlink/helpers/atomic_clock"
	"github.com/temoto/meterlink/helpers/atomic_float"
)

type Float32 struct {
	value   atomic_float.F32
	updated atomic_clock.Clock
	valid   time.Duration
}

// Not thread-safe. `valid` duration cannot be changed later.
func (c *Float32) Init(valid time.Duration) {
	c.valid = valid
}

func (c *Float32) get(now int64) (float32, bool) {
	v := c.value.Load()
	if c.updated.IsZero() {
		return v, false
	}
	age := atomic_clock.New(now).Sub(&c.updated)
	return v, age >= 0 && age <= c.valid
}

// Returns current (possibly stale) value. Fast and cheap.
func (c *Float32) Get() float32 { return c.value.Load() }

// Returns current value and true if it's fresh.
func (c *Float32) GetFresh() (float32, bool) { return c.get(atomic_clock.Source()) }

// Always tries to return fresh value.
// If value is stale, runs `f()`, it should update value with `Set()`.
// No cache stampede guard.
func (c *Float32) GetOrUpdate(f func()) float32 {
	v, ok := c.get(atomic_clock.Source())
	if !ok {
		f()
		v = c.value.Load()
	}
	return v
}

func (c *Float32) Set(new float32) {
	c.value.Store(new)
	c.updated.SetNow()
}

// Age is zero if value was never set.
func (c *Float32) Age() time.Duration {
	if c.updated.IsZero() {
		return 0
	}
	return atomic_clock.Since(&c.updated)
}
