package sml

import (
	"bytes"
	"fmt"

	"github.com/temoto/meterlink/schema"
)

const (
	maxValueLen = 4
	// identifier + length byte + max value + scaler
	fieldSpan = schema.FieldIDLen + 1 + maxValueLen
)

// Field is a coded value located right after an OBIS identifier:
// length byte (low nibble = value byte count), big endian value bytes,
// signed decimal scaler byte.
type Field struct {
	Offset int // of identifier in message
	Len    int
	Value  [maxValueLen]byte
	Scaler int8
}

func (f Field) String() string {
	return fmt.Sprintf("offset=%d value=%x scaler=%d", f.Offset, f.Value[:f.Len], f.Scaler)
}

// FindField returns first occurrence of id in msg.
// ok=false means absent, which is normal for some meters in some cycles.
// Length nibble above 4 is malformed, such field is reported absent. Meter
// firmware would clamp value to 4 bytes and still read scaler after it.
func FindField(msg []byte, id schema.FieldID) (Field, bool) {
	end := len(msg) - fieldSpan
	for i := 0; i < end; i++ {
		if !bytes.Equal(msg[i:i+schema.FieldIDLen], id[:]) {
			continue
		}
		p := i + schema.FieldIDLen
		n := int(msg[p] & 0x0f)
		if n > maxValueLen {
			return Field{Offset: i, Len: n}, false
		}
		f := Field{Offset: i, Len: n}
		copy(f.Value[:], msg[p+1:p+1+n])
		f.Scaler = int8(msg[p+1+n])
		return f, true
	}
	return Field{}, false
}

// Int decodes two's complement value and applies scaler as integer decimal
// shift, division truncates toward zero.
func (f Field) Int() int32 {
	var v int32
	if f.Len > 0 && f.Value[0]&0x80 != 0 {
		v = -1
	}
	for _, b := range f.Value[:f.Len] {
		v = v<<8 | int32(b)
	}
	for s := f.Scaler; s < 0; s++ {
		v /= 10
	}
	for s := f.Scaler; s > 0; s-- {
		v *= 10
	}
	return v
}

// Uint decodes unsigned energy register into Wh.
// Only scalers -3, -2, -1 are scaled, any other leaves raw value as is.
// FIXME scaler 0 and above look like Wh*10^n on some meters, confirm with real dumps before extending.
func (f Field) Uint() uint32 {
	var v uint32
	for _, b := range f.Value[:f.Len] {
		v = v<<8 | uint32(b)
	}
	switch f.Scaler {
	case -3:
	case -2:
		v *= 10
	case -1:
		v *= 100
	}
	return v
}

// EnergyScaled reports whether Uint() knows this scaler.
func (f Field) EnergyScaled() bool { return f.Scaler >= -3 && f.Scaler <= -1 }

// DecodeSigned returns 0 when field is absent.
func DecodeSigned(msg []byte, id schema.FieldID) int32 {
	f, ok := FindField(msg, id)
	if !ok {
		return 0
	}
	return f.Int()
}

// DecodeUnsigned returns 0 when field is absent.
func DecodeUnsigned(msg []byte, id schema.FieldID) uint32 {
	f, ok := FindField(msg, id)
	if !ok {
		return 0
	}
	return f.Uint()
}

// Decode picks signed or unsigned path by schema.Fields.
// Unknown identifiers decode as unsigned.
func Decode(msg []byte, id schema.FieldID) (int64, bool) {
	f, ok := FindField(msg, id)
	if !ok {
		return 0, false
	}
	if sf, known := schema.LookupField(id); known && sf.Signed {
		return int64(f.Int()), true
	}
	return int64(f.Uint()), true
}
