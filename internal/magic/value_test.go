package magic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastFromBytesEndianness(t *testing.T) {
	cases := []struct {
		name string
		typ  ValType
		in   []byte
		want uint64
	}{
		{"belong", BeLong, []byte{0x00, 0x00, 0x01, 0x02}, 0x0102},
		{"lelong", LeLong, []byte{0x02, 0x01, 0x00, 0x00}, 0x0102},
		// Middle-endian: historical PDP-11 byte order [2,3,0,1].
		{"melong", MeLong, []byte{0x00, 0x04, 0x00, 0x00}, 0x00000004},
		{"melong distinct bytes", MeLong, []byte{0x01, 0x02, 0x03, 0x04}, 0x03040102},
		{"beshort", BeShort, []byte{0x01, 0x02}, 0x0102},
		{"leshort", LeShort, []byte{0x02, 0x01}, 0x0102},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, ok := CastFromBytes(SignValType{Unsigned: true, Type: c.typ}, c.in)
			require.True(t, ok)
			assert.Equal(t, c.want, v.Uint64())
		})
	}
}

func TestCastFromBytesShortRead(t *testing.T) {
	_, ok := CastFromBytes(SignValType{Type: BeLong}, []byte{0x01, 0x02})
	assert.False(t, ok)
}

func TestCastToNarrows(t *testing.T) {
	v := IntValue(64, true, 0x1_0000_0100)
	narrowed := v.CastTo(SignValType{Unsigned: true, Type: Byte})
	assert.Equal(t, uint64(0x00), narrowed.Uint64())
	assert.Equal(t, 8, narrowed.Width())
}

func TestInt64SignExtendsSignedByte(t *testing.T) {
	v := IntValue(8, false, 0xff) // -1 as a signed byte
	assert.Equal(t, int64(-1), v.Int64())
}

func TestCastToFloat(t *testing.T) {
	v := IntValue(32, false, 3)
	f := v.CastTo(SignValType{Type: Double})
	assert.Equal(t, float64(3), f.Float64())
}
