package sml

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/meterlink/helpers"
	"github.com/temoto/meterlink/schema"
)

func TestDecodeSigned(t *testing.T) {
	t.Parallel()
	type Case struct {
		name   string
		value  string
		scaler int8
		expect int32
	}
	cases := []Case{
		{"negative-100", "ff9c", 0, -100},
		{"negative-1byte", "88", 0, -120},
		{"positive-1byte", "7f", 0, 127},
		{"scale-up", "0c", 2, 1200},
		{"scale-down-truncates", "04d2", -1, 123},
		{"negative-scale-down-toward-zero", "fb2e", -2, -12},
		{"empty", "", 5, 0},
		{"min-int32", "80000000", 0, math.MinInt32},
		{"max-int32", "7fffffff", 0, math.MaxInt32},
		{"3byte", "fffffe", 1, -20},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			msg := EncodeMessage(EncodeField(schema.FieldPower, helpers.MustHex(c.value), c.scaler))
			assert.Equal(t, c.expect, DecodeSigned(msg, schema.FieldPower))
			v, ok := Decode(msg, schema.FieldPower)
			require.True(t, ok)
			assert.Equal(t, int64(c.expect), v)
		})
	}
}

func TestDecodeUnsigned(t *testing.T) {
	t.Parallel()
	type Case struct {
		name   string
		value  string
		scaler int8
		expect uint32
	}
	cases := []Case{
		{"wh", "3039", -3, 12345},
		{"wh*10", "3039", -2, 123450},
		{"wh*100", "0a", -1, 1000},
		{"unknown-scaler-0", "3039", 0, 12345},
		{"unknown-scaler-4", "3039", -4, 12345},
		{"high-bit-not-sign", "ff9c", -3, 65436},
		{"max-uint32", "ffffffff", -3, math.MaxUint32},
		{"empty", "", -3, 0},
	}
	helpers.RandUnix().Shuffle(len(cases), func(i int, j int) { cases[i], cases[j] = cases[j], cases[i] })
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			msg := EncodeMessage(EncodeField(schema.FieldConsumption, helpers.MustHex(c.value), c.scaler))
			assert.Equal(t, c.expect, DecodeUnsigned(msg, schema.FieldConsumption))
			v, ok := Decode(msg, schema.FieldConsumption)
			require.True(t, ok)
			assert.Equal(t, int64(c.expect), v)
		})
	}
}

// raw value survives encode/decode for every length when scaler is neutral
func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	rnd := helpers.RandUnix()
	for n := 1; n <= 4; n++ {
		for i := 0; i < 50; i++ {
			bits := uint(8 * n)
			raw := rnd.Uint32()
			if n < 4 {
				raw &= 1<<bits - 1
			}
			value := make([]byte, n)
			for j := 0; j < n; j++ {
				value[j] = byte(raw >> (8 * uint(n-1-j)))
			}
			signed := int32(raw<<(32-bits)) >> (32 - bits)
			name := fmt.Sprintf("len=%d raw=%x", n, value)

			msgP := EncodeMessage(EncodeField(schema.FieldPower, value, 0))
			assert.Equal(t, signed, DecodeSigned(msgP, schema.FieldPower), name)
			msgE := EncodeMessage(EncodeField(schema.FieldGeneration, value, -3))
			assert.Equal(t, raw, DecodeUnsigned(msgE, schema.FieldGeneration), name)
		}
	}
}

func TestFindField(t *testing.T) {
	t.Parallel()
	power := EncodeField(schema.FieldPower, []byte{0x01}, 0)

	t.Run("absent", func(t *testing.T) {
		msg := EncodeMessage(EncodeField(schema.FieldConsumption, []byte{0x01}, -3))
		_, ok := FindField(msg, schema.FieldPower)
		assert.False(t, ok)
		assert.Equal(t, int32(0), DecodeSigned(msg, schema.FieldPower))
		assert.Equal(t, uint32(0), DecodeUnsigned(msg, schema.FieldGeneration))
		_, ok = Decode(msg, schema.FieldGeneration)
		assert.False(t, ok)
	})
	t.Run("short-message", func(t *testing.T) {
		_, ok := FindField(power[:4], schema.FieldPower)
		assert.False(t, ok)
		_, ok = FindField(nil, schema.FieldPower)
		assert.False(t, ok)
	})
	t.Run("bounded-search", func(t *testing.T) {
		// identifier at len-10 is outside search window
		msg := append(append([]byte{0xaa}, power...), 0x00, 0x00)
		require.Equal(t, 10, len(msg)-1)
		_, ok := FindField(msg, schema.FieldPower)
		assert.False(t, ok)
		msg = append(msg, 0x00)
		f, ok := FindField(msg, schema.FieldPower)
		require.True(t, ok)
		assert.Equal(t, 1, f.Offset)
	})
	t.Run("first-wins", func(t *testing.T) {
		msg := EncodeMessage(
			EncodeField(schema.FieldPower, []byte{0x05}, 0),
			EncodeField(schema.FieldPower, []byte{0x07}, 0),
		)
		assert.Equal(t, int32(5), DecodeSigned(msg, schema.FieldPower))
	})
	t.Run("malformed-length", func(t *testing.T) {
		bad := EncodeField(schema.FieldPower, []byte{0x01}, 0)
		bad[schema.FieldIDLen] = 0x5f
		msg := EncodeMessage(bad)
		_, ok := FindField(msg, schema.FieldPower)
		assert.False(t, ok)
		assert.Equal(t, int32(0), DecodeSigned(msg, schema.FieldPower))
	})
	t.Run("length-high-nibble-ignored", func(t *testing.T) {
		f := EncodeField(schema.FieldPower, []byte{0x02}, 0)
		f[schema.FieldIDLen] = 0x61
		assert.Equal(t, int32(2), DecodeSigned(EncodeMessage(f), schema.FieldPower))
	})
}
