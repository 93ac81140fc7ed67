// Package link is the radio side of the meter link: transport contract and
// packet counter gap accounting.
package link

import "fmt"

// Tracker turns received packet counters into missed packet count.
// Must be owned by exactly one receive loop.
//
// Counter that did not advance (duplicate, reorder, transmitter restart)
// still becomes the new reference and reports gap 0. Restart therefore
// undercounts loss; transmitter persists its counter to make restarts rare.
type Tracker struct {
	last   uint32
	missed uint32
	seen   bool
}

// Observe returns number of counters skipped since previous call and
// whether this was the first counter of the session.
func (self *Tracker) Observe(counter uint32) (gap uint32, first bool) {
	if !self.seen {
		self.seen = true
		self.last = counter
		return 0, true
	}
	if counter > self.last {
		gap = counter - self.last - 1
		if self.missed+gap < self.missed {
			self.missed = ^uint32(0)
		} else {
			self.missed += gap
		}
	}
	self.last = counter
	return gap, false
}

func (self *Tracker) Missed() uint32 { return self.missed }

// Last is meaningful only when Seen.
func (self *Tracker) Last() uint32 { return self.last }
func (self *Tracker) Seen() bool   { return self.seen }

// Reset starts new session, operator action only.
func (self *Tracker) Reset() { *self = Tracker{} }

func (self *Tracker) String() string {
	if !self.seen {
		return "tracker=empty"
	}
	return fmt.Sprintf("last=%d missed=%d", self.last, self.missed)
}
