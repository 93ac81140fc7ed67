// Package schema is the single source of protocol constants shared by the
// meter side transmitter and the gateway side receiver.
// Any change to marker bytes, field identifiers or packet layout must bump Version.
package schema

import (
	"encoding/binary"
	"encoding/hex"
)

// Version of the radio packet layout. The layout itself carries no version
// tag on air, so transmitter and gateway builds must agree on this number.
const Version = 1

// SML transport escape sequences.
var (
	StartMarker = [8]byte{0x1b, 0x1b, 0x1b, 0x1b, 0x01, 0x01, 0x01, 0x01}
	EndMarker   = [5]byte{0x1b, 0x1b, 0x1b, 0x1b, 0x1a}
)

const (
	StartMarkerLen = len(StartMarker)
	EndMarkerLen   = len(EndMarker)

	// Observed on real meters, large enough for one SML file with three lists.
	DefaultMessageCapacity = 512
)

// FieldIDLen is the number of OBIS bytes used as a search key.
const FieldIDLen = 5

type FieldID [FieldIDLen]byte

func (f FieldID) String() string { return hex.EncodeToString(f[:]) }

var (
	FieldPower       = FieldID{0x01, 0x00, 0x10, 0x07, 0x00} // 1-0:16.7.0 instantaneous power
	FieldConsumption = FieldID{0x01, 0x00, 0x01, 0x08, 0x00} // 1-0:1.8.0 energy import
	FieldGeneration  = FieldID{0x01, 0x00, 0x02, 0x08, 0x00} // 1-0:2.8.0 energy export
)

type Field struct {
	Name string
	ID   FieldID
	// Signed fields use two's complement sign extension and integer decimal scaling.
	// Unsigned fields are cumulative counters scaled to Wh.
	Signed bool
}

var Fields = [...]Field{
	{Name: "power", ID: FieldPower, Signed: true},
	{Name: "consumption", ID: FieldConsumption},
	{Name: "generation", ID: FieldGeneration},
}

func LookupField(id FieldID) (Field, bool) {
	for _, f := range Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Radio packet layout, little endian, no padding:
// power_watts f32 | total_consumption_kwh f32 | total_generation_kwh f32 | battery_voltage f32 | packet_counter u32
const (
	OffsetPower       = 0
	OffsetConsumption = 4
	OffsetGeneration  = 8
	OffsetBattery     = 12
	OffsetCounter     = 16
	PacketSize        = 20
)

var ByteOrder binary.ByteOrder = binary.LittleEndian

// LoRa modem parameters both ends are configured with.
// Documentation only, the transceiver is programmed by its own tool.
const (
	LoraFrequencyHz   = 433000000
	LoraBandwidthKHz  = 125
	LoraSpreading     = 7
	LoraCodingRate    = 5 // 4/5
	LoraSyncWord      = 0x12
	LoraPreambleLen   = 8
	LoraTxTimeoutMsec = 3000
)
