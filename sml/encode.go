package sml

import (
	"github.com/temoto/meterlink/schema"
)

// EncodeField renders coded value the way meters emit it:
// identifier, length byte, big endian value, scaler.
func EncodeField(id schema.FieldID, value []byte, scaler int8) []byte {
	b := make([]byte, 0, schema.FieldIDLen+len(value)+2)
	b = append(b, id[:]...)
	b = append(b, 0x50|byte(len(value)))
	b = append(b, value...)
	return append(b, byte(scaler))
}

// EncodeMessage wraps fields into the smallest message Assembler and
// ParseReading accept. Used by simulator and tests, not a general SML writer.
func EncodeMessage(fields ...[]byte) []byte {
	b := append([]byte{}, schema.StartMarker[:]...)
	b = append(b, 0x76, 0x05, 0x01, 0x62, 0x00) // list header
	for _, f := range fields {
		b = append(b, f...)
		b = append(b, 0x01, 0x01)
	}
	b = append(b, 0x00, 0x00, 0x00)
	return append(b, schema.EndMarker[:]...)
}

// EncodeReading: power with scaler 0 in shortest two's complement,
// energy registers as 4 byte Wh with scaler -3.
func EncodeReading(powerW int32, consumptionWh, generationWh uint32) []byte {
	return EncodeMessage(
		EncodeField(schema.FieldPower, shortSigned(powerW), 0),
		EncodeField(schema.FieldConsumption, be32(consumptionWh), -3),
		EncodeField(schema.FieldGeneration, be32(generationWh), -3),
	)
}

func shortSigned(v int32) []byte {
	b := be32(uint32(v))
	i := 0
	for i < 3 {
		// drop sign extension byte if next byte keeps the sign
		if b[i] == 0x00 && b[i+1]&0x80 == 0 || b[i] == 0xff && b[i+1]&0x80 != 0 {
			i++
			continue
		}
		break
	}
	return b[i:]
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
