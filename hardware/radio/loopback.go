package radio

import (
	"fmt"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/link"
)

const loopbackQueue = 16

var ErrClosed = fmt.Errorf("radio closed")

// Loopback is in-memory air. Link quality fields describe what this end
// observes on receive. Set fields before concurrent use.
type Loopback struct {
	RSSI int16
	SNR  float32
	// Drop returns true to lose packet in the air, Send still reports Sent.
	Drop func(payload []byte) bool

	inbox    chan []byte
	peer     *Loopback
	done     chan struct{}
	closeOne sync.Once
}

var _ link.Radio = &Loopback{}

func newLoopback() *Loopback {
	return &Loopback{
		RSSI:  -60,
		SNR:   9.5,
		inbox: make(chan []byte, loopbackQueue),
		done:  make(chan struct{}),
	}
}

// NewLoopbackPair returns two ends of one air link: a sends to b and back.
func NewLoopbackPair() (a, b *Loopback) {
	a, b = newLoopback(), newLoopback()
	a.peer, b.peer = b, a
	return a, b
}

func NewLoopbackEcho() *Loopback {
	l := newLoopback()
	l.peer = l
	return l
}

// Send blocks while peer receive queue is full, up to timeout.
func (self *Loopback) Send(payload []byte, timeout time.Duration) (link.Outcome, error) {
	select {
	case <-self.done:
		return link.Error, errors.Annotate(ErrClosed, "loopback send")
	case <-self.peer.done:
		return link.Error, errors.Annotate(ErrClosed, "loopback peer")
	default:
	}
	if self.Drop != nil && self.Drop(payload) {
		return link.Sent, nil
	}
	p := append([]byte(nil), payload...)
	tmr := time.NewTimer(timeout)
	defer tmr.Stop()
	select {
	case self.peer.inbox <- p:
		return link.Sent, nil
	case <-self.peer.done:
		return link.Error, errors.Annotate(ErrClosed, "loopback peer")
	case <-tmr.C:
		return link.TimedOut, nil
	}
}

func (self *Loopback) TryReceive() (link.Frame, bool, error) {
	select {
	case p := <-self.inbox:
		return link.Frame{Payload: p, RSSI: self.RSSI, SNR: self.SNR}, true, nil
	case <-self.done:
		return link.Frame{}, false, errors.Annotate(ErrClosed, "loopback receive")
	default:
		return link.Frame{}, false, nil
	}
}

func (self *Loopback) Close() error {
	self.closeOne.Do(func() { close(self.done) })
	return nil
}
