// Package gateway is the receiver side: radio packets in, Reports out.
package gateway

import (
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/helpers/atomic_clock"
	"github.com/temoto/meterlink/link"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/meterlink/wire"
)

const (
	modName     = "gateway"
	DefaultPoll = 100 * time.Millisecond
)

type Config struct {
	PollMs int `hcl:"poll_ms"`
}

func (c *Config) Poll() time.Duration { return helpers.IntMillisecondDefault(c.PollMs, DefaultPoll) }

func (c *Config) Validate() error {
	if c.PollMs < 0 {
		return errors.NotValidf("gateway poll_ms=%d", c.PollMs)
	}
	return nil
}

// Report is one decoded packet with link quality and loss accounting.
type Report struct {
	wire.Packet
	RSSI     int16
	SNR      float32
	Gap      uint32 // counters skipped right before this packet
	Missed   uint32 // total since gateway start
	First    bool   // first packet of session, Gap is meaningless
	Received time.Time
}

func (r Report) String() string {
	return fmt.Sprintf("%s rssi=%d snr=%.1f gap=%d missed=%d first=%t",
		r.Packet.String(), r.RSSI, r.SNR, r.Gap, r.Missed, r.First)
}

type Sink interface {
	Report(Report)
}

type SinkFunc func(Report)

func (f SinkFunc) Report(r Report) { f(r) }

type Gateway struct {
	Stat link.Stat

	log   *log2.Log
	radio link.Radio
	sink  Sink
	poll  time.Duration

	tracker     link.Tracker // Run goroutine owned
	lastReceive atomic_clock.Clock
}

// Nil sink only logs reports.
func New(log *log2.Log, c Config, radio link.Radio, sink Sink) *Gateway {
	return &Gateway{
		log:   log,
		radio: radio,
		sink:  sink,
		poll:  c.Poll(),
	}
}

// Poll handles at most one frame. Decode failure is counted and returned as
// error, tracker is not touched.
func (self *Gateway) Poll() (Report, bool, error) {
	r, got, err := self.receive()
	return r, got && err == nil, err
}

// receive got=true when a frame was taken from radio, valid or not.
func (self *Gateway) receive() (_ Report, got bool, _ error) {
	f, ok, err := self.radio.TryReceive()
	if err != nil {
		return Report{}, false, errors.Annotate(err, modName)
	}
	if !ok {
		return Report{}, false, nil
	}
	now := time.Now()
	self.lastReceive.SetTime(now)
	p, err := wire.Decode(f.Payload)
	if err != nil {
		self.Stat.Receive(len(f.Payload), false, 0)
		return Report{}, true, errors.Annotatef(err, "%s %s payload=%x", modName, f.String(), f.Payload)
	}

	gap, first := self.tracker.Observe(p.Counter)
	self.Stat.Receive(len(f.Payload), true, gap)
	r := Report{
		Packet:   p,
		RSSI:     f.RSSI,
		SNR:      f.SNR,
		Gap:      gap,
		Missed:   self.tracker.Missed(),
		First:    first,
		Received: now,
	}
	switch {
	case first:
		self.log.Infof("%s first packet counter=%d", modName, p.Counter)
	case gap != 0:
		self.log.Infof("%s lost %d packets before counter=%d missed=%d", modName, gap, p.Counter, r.Missed)
	}
	self.log.Debugf("%s %s", modName, r.String())
	if self.sink != nil {
		self.sink.Report(r)
	}
	return r, true, nil
}

// Run drains pending frames, invalid ones included, then sleeps poll interval.
// Blocks until a stops.
func (self *Gateway) Run(a *alive.Alive) {
	self.log.Debugf("%s run poll=%v", modName, self.poll)
	for a.IsRunning() {
		_, got, err := self.receive()
		if err != nil {
			self.log.Error(err)
		}
		if got {
			continue
		}
		select {
		case <-a.StopChan():
			return
		case <-time.After(self.poll):
		}
	}
}

// LastReceive is zero time before first frame.
func (self *Gateway) LastReceive() time.Time { return self.lastReceive.Time() }
