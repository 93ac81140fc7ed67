package main

import (
	"context"
	"expvar"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/cmd/meterlink/subcmd"
	"github.com/temoto/meterlink/hardware/radio"
	"github.com/temoto/meterlink/internal/config"
	"github.com/temoto/meterlink/internal/gateway"
	"github.com/temoto/meterlink/internal/publish"
	"github.com/temoto/meterlink/log2"
)

func rxMain(ctx context.Context, c *config.Config, _ []string) error {
	log := log2.ContextValueLogger(ctx)
	run := subcmd.GetRun(ctx)

	pub, err := publish.Open(log, c.Publish)
	if err != nil {
		return errors.Annotate(err, "rx")
	}
	log.SetErrorFunc(pub.Error)
	run.Closers.Append(func(context.Context) error { return pub.Close() }, "publish")

	r, err := radio.Open(log, c.Radio)
	if err != nil {
		return errors.Annotate(err, "rx")
	}
	run.Closers.Append(func(context.Context) error { return r.Close() }, "radio")

	gw := gateway.New(log, c.Gateway, r, pub)
	expvar.Publish("gateway.link", &gw.Stat)

	a := run.Alive
	a.Add(1)
	go func() {
		defer a.Done()
		gw.Run(a)
	}()
	log.Infof("rx running poll=%v publish=%t", c.Gateway.Poll(), c.Publish.Enable)
	return run.Wait(ctx)
}
