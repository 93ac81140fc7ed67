// Package sml extracts meter readings from the SML byte stream of an
// optical read head. Only the subset of the protocol that real meters
// emit for power and energy registers is supported.
package sml

import (
	"bytes"
	"fmt"

	"github.com/temoto/meterlink/schema"
)

type AssemblerStat struct {
	Messages  uint32
	Overflows uint32 // completed messages that lost bytes past capacity
	Dropped   uint32 // bytes lost past capacity
	Discarded uint32 // strict mode: complete candidates without start marker
	Resyncs   uint32 // strict mode: start marker found mid-buffer
}

func (s AssemblerStat) String() string {
	return fmt.Sprintf("messages=%d overflows=%d dropped=%d discarded=%d resyncs=%d",
		s.Messages, s.Overflows, s.Dropped, s.Discarded, s.Resyncs)
}

// Assembler carves complete SML messages out of a byte stream.
// Must be owned by exactly one goroutine.
//
// A message is complete when the stream ends with schema.EndMarker.
// In lenient mode (default) that is the only condition. In strict mode the
// buffer must also begin with schema.StartMarker, otherwise the candidate is
// discarded; a start marker seen mid-buffer restarts the message.
//
// Bytes past capacity are dropped, the cursor stops advancing and nothing is
// shifted. Marker detection continues on the live stream, so an overflowing
// message still completes, truncated to capacity.
type Assembler struct {
	buf    []byte
	n      int
	tail   [schema.StartMarkerLen]byte // newest byte last
	seen   int                         // stream bytes since reset, saturates at len(tail)
	over   bool
	strict bool
	stat   AssemblerStat
}

func NewAssembler(capacity int, strict bool) *Assembler {
	min := schema.EndMarkerLen
	if strict {
		min += schema.StartMarkerLen
	}
	if capacity < min {
		panic(fmt.Sprintf("code error sml.NewAssembler capacity=%d < min=%d", capacity, min))
	}
	return &Assembler{
		buf:    make([]byte, capacity),
		strict: strict,
	}
}

func (self *Assembler) Cap() int            { return len(self.buf) }
func (self *Assembler) Len() int            { return self.n }
func (self *Assembler) Strict() bool        { return self.strict }
func (self *Assembler) Stat() AssemblerStat { return self.stat }

// Feed appends one byte. When it completes a message, Feed returns the
// message and resets the write cursor. Returned slice aliases internal
// buffer and is valid only until next Feed call, copy if you need to keep it.
func (self *Assembler) Feed(b byte) ([]byte, bool) {
	copy(self.tail[:], self.tail[1:])
	self.tail[len(self.tail)-1] = b
	if self.seen < len(self.tail) {
		self.seen++
	}

	if self.n < len(self.buf) {
		self.buf[self.n] = b
		self.n++
	} else {
		self.over = true
		self.stat.Dropped++
	}

	if self.strict && self.tailIs(schema.StartMarker[:]) && self.n != schema.StartMarkerLen {
		self.resync()
		return nil, false
	}

	if !self.tailIs(schema.EndMarker[:]) {
		return nil, false
	}

	msg := self.buf[:self.n]
	over := self.over
	self.Reset()
	if self.strict && !bytes.HasPrefix(msg, schema.StartMarker[:]) {
		self.stat.Discarded++
		return nil, false
	}
	self.stat.Messages++
	if over {
		self.stat.Overflows++
	}
	return msg, true
}

// Reset moves write cursor to start. Buffer content is not cleared.
func (self *Assembler) Reset() {
	self.n = 0
	self.seen = 0
	self.over = false
}

func (self *Assembler) tailIs(marker []byte) bool {
	if self.seen < len(marker) {
		return false
	}
	return bytes.Equal(self.tail[len(self.tail)-len(marker):], marker)
}

func (self *Assembler) resync() {
	self.n = copy(self.buf, schema.StartMarker[:])
	self.over = false
	self.stat.Resyncs++
}
