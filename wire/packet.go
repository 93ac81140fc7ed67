// Package wire is the fixed 20 byte radio packet shared by transmitter and gateway.
// Layout lives in schema, this package only moves bytes.
package wire

import (
	"fmt"
	"math"

	"github.com/juju/errors"
	"github.com/temoto/meterlink/schema"
	"github.com/temoto/meterlink/sml"
)

var ErrLengthMismatch = fmt.Errorf("packet length must be %d", schema.PacketSize)

type Packet struct {
	sml.Reading
	BatteryVoltage float32
	Counter        uint32
}

func (p Packet) String() string {
	return fmt.Sprintf("counter=%d %s battery=%.2fV", p.Counter, p.Reading.String(), p.BatteryVoltage)
}

func (p Packet) Bytes() [schema.PacketSize]byte {
	return Encode(p.Reading, p.BatteryVoltage, p.Counter)
}

func Encode(r sml.Reading, battery float32, counter uint32) [schema.PacketSize]byte {
	var b [schema.PacketSize]byte
	o := schema.ByteOrder
	o.PutUint32(b[schema.OffsetPower:], math.Float32bits(r.PowerWatts))
	o.PutUint32(b[schema.OffsetConsumption:], math.Float32bits(r.ConsumptionKWh))
	o.PutUint32(b[schema.OffsetGeneration:], math.Float32bits(r.GenerationKWh))
	o.PutUint32(b[schema.OffsetBattery:], math.Float32bits(battery))
	o.PutUint32(b[schema.OffsetCounter:], counter)
	return b
}

// Decode never returns partial packet. Check error with errors.Cause(err) == ErrLengthMismatch.
func Decode(b []byte) (Packet, error) {
	if len(b) != schema.PacketSize {
		return Packet{}, errors.Annotatef(ErrLengthMismatch, "wire.Decode len=%d", len(b))
	}
	o := schema.ByteOrder
	return Packet{
		Reading: sml.Reading{
			PowerWatts:     math.Float32frombits(o.Uint32(b[schema.OffsetPower:])),
			ConsumptionKWh: math.Float32frombits(o.Uint32(b[schema.OffsetConsumption:])),
			GenerationKWh:  math.Float32frombits(o.Uint32(b[schema.OffsetGeneration:])),
		},
		BatteryVoltage: math.Float32frombits(o.Uint32(b[schema.OffsetBattery:])),
		Counter:        o.Uint32(b[schema.OffsetCounter:]),
	}, nil
}
