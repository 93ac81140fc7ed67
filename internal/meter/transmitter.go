// Package meter is the transmitter side: meter serial stream in, one radio
// packet per send interval out.
package meter

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/meterlink/hardware/uart"
	"github.com/temoto/meterlink/helpers/atomic_clock"
	"github.com/temoto/meterlink/internal/persist"
	"github.com/temoto/meterlink/link"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/meterlink/sml"
	"github.com/temoto/meterlink/wire"
)

const modName = "meter"

type Battery interface {
	Voltage() float32
}

// Transmitter sends last known reading every interval, fresh or not.
// OnMessage runs in pump goroutine, Tick and Run in scheduler goroutine.
// They share only the latest reading slot and lastMessage clock.
type Transmitter struct {
	Stat link.Stat

	log       *log2.Log
	config    Config
	radio     link.Radio
	battery   Battery
	txTimeout time.Duration
	interval  time.Duration
	staleWarn time.Duration

	latest      chan sml.Reading // 1 slot, newest wins
	lastMessage atomic_clock.Clock
	started     atomic_clock.Clock

	// scheduler owned
	current sml.Reading
	counter counter
	persist *persist.Store
}

func NewTransmitter(log *log2.Log, c Config, radio link.Radio, battery Battery, txTimeout time.Duration) (*Transmitter, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	self := &Transmitter{
		log:       log,
		config:    c,
		radio:     radio,
		battery:   battery,
		txTimeout: txTimeout,
		interval:  c.SendInterval(),
		staleWarn: c.StaleWarn(),
		latest:    make(chan sml.Reading, 1),
	}
	self.started.SetNow()
	self.persist = persist.Open(log, c.CounterDir, "counter", &self.counter)
	restored, err := self.persist.Load()
	if err != nil {
		// counter restarts from 0, gateway sees it as reset
		self.log.Error(errors.Annotate(err, modName))
	}
	if restored {
		self.log.Infof("%s restored counter=%d", modName, self.counter)
	}
	return self, nil
}

// Pump returns serial reader wired to OnMessage.
func (self *Transmitter) Pump() *uart.Pump {
	return &uart.Pump{
		Log:       self.log,
		Asm:       sml.NewAssembler(self.config.BufferSize, self.config.StrictFraming),
		OnMessage: self.OnMessage,
	}
}

func (self *Transmitter) OnMessage(msg []byte) {
	r := sml.ParseReading(msg)
	self.lastMessage.SetNow()
	self.log.Debugf("%s %s", modName, r.String())
	select {
	case self.latest <- r:
	default:
		// scheduler has not consumed previous one, replace it
		select {
		case <-self.latest:
		default:
		}
		select {
		case self.latest <- r:
		default:
		}
	}
}

// Stale reports no complete meter message for longer than stale_warn_sec,
// counting from start when nothing was ever received.
func (self *Transmitter) Stale() bool {
	if self.lastMessage.IsZero() {
		return atomic_clock.Since(&self.started) > self.staleWarn
	}
	return self.lastMessage.Older(self.staleWarn)
}

// Tick sends one packet. Counter is incremented before send, first packet carries 1.
// No retry, the next tick carries fresher data anyway.
func (self *Transmitter) Tick() (wire.Packet, link.Outcome, error) {
	select {
	case r := <-self.latest:
		self.current = r
	default:
	}
	if self.Stale() {
		self.log.Infof("%s warning: no meter message since %s, sending last known reading",
			modName, self.lastMessageString())
	}

	self.counter++
	if err := self.persist.Save(); err != nil {
		self.log.Error(errors.Annotate(err, modName))
	}
	p := wire.Packet{
		Reading: self.current,
		Counter: uint32(self.counter),
	}
	if self.battery != nil {
		p.BatteryVoltage = self.battery.Voltage()
	}
	b := p.Bytes()
	o, err := self.radio.Send(b[:], self.txTimeout)
	self.Stat.Outcome(o, len(b))
	switch o {
	case link.Sent:
		self.log.Debugf("%s sent %s", modName, p.String())
	case link.TimedOut:
		self.log.Infof("%s send timeout counter=%d", modName, p.Counter)
	default:
		if err == nil {
			err = errors.Errorf("radio send outcome=%s", o.String())
		}
		err = errors.Annotatef(err, "%s send counter=%d", modName, p.Counter)
		self.log.Error(err)
	}
	return p, o, err
}

// Run blocks until a stops.
func (self *Transmitter) Run(a *alive.Alive) {
	tmr := time.NewTicker(self.interval)
	defer tmr.Stop()
	self.log.Debugf("%s run interval=%v", modName, self.interval)
	for {
		select {
		case <-tmr.C:
			_, _, _ = self.Tick()
		case <-a.StopChan():
			return
		}
	}
}

func (self *Transmitter) lastMessageString() string {
	if self.lastMessage.IsZero() {
		return "start"
	}
	return self.lastMessage.Time().Format(time.RFC3339)
}

func (self *Transmitter) String() string {
	return fmt.Sprintf("%s stat=%s", modName, self.Stat.String())
}

type counter uint32

func (c *counter) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(*c))
	return b, nil
}

func (c *counter) UnmarshalBinary(b []byte) error {
	if len(b) != 4 {
		return errors.NotValidf("counter len=%d", len(b))
	}
	*c = counter(binary.LittleEndian.Uint32(b))
	return nil
}
