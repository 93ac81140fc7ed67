package sml

import (
	"fmt"

	"github.com/temoto/meterlink/schema"
)

// Reading is one decoded meter message.
// Zero value of any field is ambiguous: meter reported zero or field was absent.
type Reading struct {
	PowerWatts     float32 // negative means export to grid
	ConsumptionKWh float32
	GenerationKWh  float32
}

func ParseReading(msg []byte) Reading {
	return Reading{
		PowerWatts:     float32(DecodeSigned(msg, schema.FieldPower)),
		ConsumptionKWh: float32(DecodeUnsigned(msg, schema.FieldConsumption)) / 1000,
		GenerationKWh:  float32(DecodeUnsigned(msg, schema.FieldGeneration)) / 1000,
	}
}

func (r Reading) Direction() string {
	if r.PowerWatts < 0 {
		return "generating"
	}
	return "consuming"
}

func (r Reading) String() string {
	p := r.PowerWatts
	if p < 0 {
		p = -p
	}
	return fmt.Sprintf("power=%s:%.0fW consumption=%.3fkWh generation=%.3fkWh",
		r.Direction(), p, r.ConsumptionKWh, r.GenerationKWh)
}
