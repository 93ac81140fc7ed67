package main

import (
	"bytes"
	"context"
	"flag"
	"io/ioutil"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/meterlink/hardware/battery"
	"github.com/temoto/meterlink/hardware/radio"
	"github.com/temoto/meterlink/internal/config"
	"github.com/temoto/meterlink/internal/gateway"
	"github.com/temoto/meterlink/internal/meter"
	"github.com/temoto/meterlink/internal/publish"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/meterlink/sml"
)

const simBattery = 3.7

func simMain(ctx context.Context, c *config.Config, args []string) error {
	log := log2.ContextValueLogger(ctx)
	flagset := flag.NewFlagSet("sim", flag.ContinueOnError)
	dropEvery := flagset.Int("drop", 0, "lose every Nth packet in the air")
	count := flagset.Int("count", 10, "synthetic meter messages when no capture file given")
	if err := flagset.Parse(args); err != nil {
		return errors.Trace(err)
	}

	var stream []byte
	if flagset.NArg() > 0 {
		var err error
		if stream, err = ioutil.ReadFile(flagset.Arg(0)); err != nil {
			return errors.Annotate(err, "sim capture")
		}
	} else {
		stream = simStream(*count)
	}

	pub, err := publish.Open(log, c.Publish)
	if err != nil {
		return errors.Annotate(err, "sim")
	}
	defer pub.Close()

	s, err := simulate(log, c, stream, *dropEvery, pub)
	if err != nil {
		return err
	}
	log.Infof("sim done reports=%d tx=%s rx=%s", len(s.reports), s.tx.Stat.String(), s.gw.Stat.String())
	return nil
}

type simResult struct {
	reports []gateway.Report
	tx      *meter.Transmitter
	gw      *gateway.Gateway
}

// simulate sends one packet per completed meter message, so capture timing does not matter.
func simulate(log *log2.Log, c *config.Config, stream []byte, dropEvery int, sink gateway.Sink) (*simResult, error) {
	air, ground := radio.NewLoopbackPair()
	defer air.Close()
	defer ground.Close()
	if dropEvery > 0 {
		n := 0
		air.Drop = func([]byte) bool {
			n++
			return n%dropEvery == 0
		}
	}

	mc := c.Meter
	mc.CounterDir = ""
	volt := float32(c.Battery.FixedVolt)
	if volt == 0 {
		volt = simBattery
	}
	bat := battery.NewMonitor(log, battery.Fixed(volt), 0)
	tx, err := meter.NewTransmitter(log, mc, air, bat, c.Radio.TxTimeout())
	if err != nil {
		return nil, errors.Annotate(err, "sim")
	}

	s := &simResult{tx: tx}
	s.gw = gateway.New(log, c.Gateway, ground, gateway.SinkFunc(func(r gateway.Report) {
		log.Infof("sim report %s", r.String())
		s.reports = append(s.reports, r)
		if sink != nil {
			sink.Report(r)
		}
	}))

	var loopErr error
	pump := tx.Pump()
	onMessage := pump.OnMessage
	pump.OnMessage = func(msg []byte) {
		onMessage(msg)
		_, _, _ = tx.Tick()
		for {
			_, ok, err := s.gw.Poll()
			if err != nil && loopErr == nil {
				loopErr = err
			}
			if !ok {
				break
			}
		}
	}
	if err := pump.Run(alive.NewAlive(), bytes.NewReader(stream)); err != nil {
		return s, errors.Annotate(err, "sim pump")
	}
	return s, loopErr
}

// simStream is a meter alternating between consuming and generating.
func simStream(count int) []byte {
	var buf bytes.Buffer
	consumption, generation := uint32(12345000), uint32(678000)
	for i := 0; i < count; i++ {
		power := int32(100 * (i + 1))
		if i%2 == 1 {
			power = -power
			generation += uint32(-power)
		} else {
			consumption += uint32(power)
		}
		// noise between messages like a real read head
		buf.Write([]byte{0x00, byte(i)})
		buf.Write(sml.EncodeReading(power, consumption, generation))
	}
	return buf.Bytes()
}
