package main

import (
	"context"
	"expvar"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/cmd/meterlink/subcmd"
	"github.com/temoto/meterlink/hardware/battery"
	"github.com/temoto/meterlink/hardware/radio"
	"github.com/temoto/meterlink/hardware/uart"
	"github.com/temoto/meterlink/internal/config"
	"github.com/temoto/meterlink/internal/meter"
	"github.com/temoto/meterlink/log2"
)

func txMain(ctx context.Context, c *config.Config, _ []string) error {
	log := log2.ContextValueLogger(ctx)
	run := subcmd.GetRun(ctx)

	r, err := radio.Open(log, c.Radio)
	if err != nil {
		return errors.Annotate(err, "tx")
	}
	run.Closers.Append(func(context.Context) error { return r.Close() }, "radio")

	bat, err := battery.Open(log, c.Battery)
	if err != nil {
		return errors.Annotate(err, "tx")
	}
	run.Closers.Append(func(context.Context) error { return bat.Close() }, "battery")
	log.Infof("tx %s", bat.String())

	tx, err := meter.NewTransmitter(log, c.Meter, r, bat, c.Radio.TxTimeout())
	if err != nil {
		return errors.Annotate(err, "tx")
	}
	port, err := uart.Open(c.Meter.UartDevice, c.Meter.UartBaud, uart.DefaultReadTimeout)
	if err != nil {
		return errors.Annotate(err, "tx meter")
	}
	run.Closers.Append(func(context.Context) error { return port.Close() }, "meter uart")

	pump := tx.Pump()
	expvar.Publish("meter.link", &tx.Stat)
	expvar.Publish("meter.uart", &pump.Stat)

	a := run.Alive
	a.Add(2)
	go func() {
		defer a.Done()
		if err := pump.Run(a, port); err != nil {
			log.Error(errors.Annotate(err, "tx pump"))
		}
		// meter device gone means nothing to send
		a.Stop()
	}()
	go func() {
		defer a.Done()
		tx.Run(a)
	}()
	log.Infof("tx running interval=%v device=%s", c.Meter.SendInterval(), c.Meter.UartDevice)
	return run.Wait(ctx)
}
