package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/cmd/meterlink/subcmd"
	"github.com/temoto/meterlink/internal/config"
	"github.com/temoto/meterlink/log2"
)

var modules = []subcmd.Mod{
	{Name: "tx", Usage: "read meter serial, send packets by radio", Main: txMain},
	{Name: "rx", Usage: "receive packets, publish reports", Main: rxMain},
	{Name: "decode", Usage: "decode hex SML message or packet from stdin", Main: decodeMain},
	{Name: "sim", Usage: "[capture.bin] run transmitter and gateway over loopback radio", Main: simMain},
}

func main() {
	flagset := flag.NewFlagSet("meterlink", flag.ExitOnError)
	flagConfig := flagset.String("config", "meterlink.hcl", "")
	flagset.Usage = func() {
		usage := make([]string, 0, len(modules))
		for _, m := range modules {
			usage = append(usage, fmt.Sprintf("  %-8s %s", m.Name, m.Usage))
		}
		fmt.Fprintf(flagset.Output(), "usage: meterlink [-config=path] command [args]\ncommands:\n%s\n", strings.Join(usage, "\n"))
		flagset.PrintDefaults()
	}
	_ = flagset.Parse(os.Args[1:])

	log := log2.NewStderr(log2.LDebug)
	log.SetFlags(subcmd.LogFlags())

	mod, err := subcmd.Parse(flagset.Arg(0), modules)
	if err != nil {
		flagset.Usage()
		log.Fatal(err)
	}

	c := config.MustReadConfig(log, config.NewOsFullReader(), *flagConfig)
	if !c.LogDebug {
		log.SetLevel(log2.LInfo)
	}
	log.Debugf("config=%+v", c)

	ctx, _ := subcmd.NewContext(log)
	if err := mod.Main(ctx, c, flagset.Args()[1:]); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
