package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/meterlink/helpers/cli"
	"github.com/temoto/meterlink/internal/config"
	"github.com/temoto/meterlink/log2"
	"github.com/temoto/meterlink/schema"
	"github.com/temoto/meterlink/sml"
	"github.com/temoto/meterlink/wire"
)

const decodeUsage = `input: hex bytes, whitespace and colons ignored
- 20 bytes     radio packet
- other        SML stream, each complete message is decoded;
               without markers the whole input is parsed as one message
- fields=yes   also print raw OBIS fields
- fields=no
`

type decoder struct {
	strict bool
	fields bool
}

func decodeMain(ctx context.Context, c *config.Config, _ []string) error {
	log := log2.ContextValueLogger(ctx)
	d := &decoder{strict: c.Meter.StrictFraming}
	exec := func(line string) {
		out, err := d.line(line)
		for _, s := range out {
			fmt.Println(s)
		}
		if err != nil {
			log.Error(err)
		}
	}
	complete := cli.Complete([]prompt.Suggest{
		{Text: "help", Description: "show input syntax"},
		{Text: "fields=yes", Description: "print OBIS fields"},
		{Text: "fields=no", Description: "hide OBIS fields"},
	})
	return cli.MainLoop("meterlink-decode", exec, complete)
}

func (self *decoder) line(line string) ([]string, error) {
	switch strings.TrimSpace(line) {
	case "help", "?":
		return []string{decodeUsage}, nil
	case "fields=yes":
		self.fields = true
		return nil, nil
	case "fields=no":
		self.fields = false
		return nil, nil
	}

	clean := strings.NewReplacer(" ", "", "\t", "", ":", "").Replace(line)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.Annotatef(err, "decode hex")
	}
	if len(b) == schema.PacketSize {
		p, err := wire.Decode(b)
		if err != nil {
			return nil, err
		}
		return []string{"packet " + p.String()}, nil
	}

	asm := sml.NewAssembler(len(b)+schema.StartMarkerLen+schema.EndMarkerLen, self.strict)
	msgs := make([][]byte, 0, 1)
	for _, x := range b {
		if msg, ok := asm.Feed(x); ok {
			msgs = append(msgs, append([]byte(nil), msg...))
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, b)
	}
	out := make([]string, 0, len(msgs)*(1+len(schema.Fields)))
	for i, msg := range msgs {
		out = append(out, fmt.Sprintf("message %d len=%d %s", i+1, len(msg), sml.ParseReading(msg).String()))
		if self.fields {
			for _, sf := range schema.Fields {
				if f, ok := sml.FindField(msg, sf.ID); ok {
					out = append(out, fmt.Sprintf("  %s %s", sf.Name, f.String()))
				}
			}
		}
	}
	return out, nil
}
