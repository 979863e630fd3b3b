package magic

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"
)

// Kind discriminates the payload a Value carries.
type Kind uint8

const (
	KindUnsignedInt Kind = iota
	KindSignedInt
	KindFloat
	KindBytes
)

// Value is a tagged scalar: a signed or unsigned integer of width
// 8/16/32/64, a float of width 32/64, or a byte sequence. Width is
// tracked separately from Kind so that narrowing casts (see CastTo) know
// how many bits of u to keep.
//
// A flat struct (rather than an interface per variant) keeps the hot
// match-engine path (expr.go, and the detector package's Evaluate) free
// of per-value heap allocation and dynamic dispatch.
type Value struct {
	kind  Kind
	width int // 8, 16, 32, 64 for scalars; ignored for KindBytes
	u     uint64
	f     float64
	bytes []byte
}

func IntValue(width int, unsigned bool, v uint64) Value {
	k := KindSignedInt
	if unsigned {
		k = KindUnsignedInt
	}
	return Value{kind: k, width: width, u: v}
}

func FloatValue(width int, v float64) Value {
	return Value{kind: KindFloat, width: width, f: v}
}

func BytesValue(b []byte) Value {
	return Value{kind: KindBytes, bytes: b}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) Width() int   { return v.width }
func (v Value) Bytes() []byte { return v.bytes }

// Size returns the value's size in bytes: bit-width/8 for scalars, the
// slice length for KindBytes.
func (v Value) Size() int {
	if v.kind == KindBytes {
		return len(v.bytes)
	}
	return v.width / 8
}

// Uint64 returns the value reinterpreted as an unsigned 64-bit integer.
// Valid for KindUnsignedInt/KindSignedInt only.
func (v Value) Uint64() uint64 { return v.u }

// Int64 returns the value as a signed 64-bit integer, sign-extending from
// the value's declared width when it is signed.
func (v Value) Int64() int64 {
	if v.kind != KindSignedInt {
		return int64(v.u)
	}
	switch v.width {
	case 8:
		return int64(int8(v.u))
	case 16:
		return int64(int16(v.u))
	case 32:
		return int64(int32(v.u))
	default:
		return int64(v.u)
	}
}

// Float64 returns the value as a float64, reinterpreting a KindFloat
// payload or converting a numeric one.
func (v Value) Float64() float64 {
	if v.kind == KindFloat {
		return v.f
	}
	if v.kind == KindSignedInt {
		return float64(v.Int64())
	}
	return float64(v.u)
}

// signedWidth maps a SignValType to the (unsigned, width) pair used to
// pick the destination representation of a cast.
func signedWidth(t SignValType) (unsigned bool, width int) {
	switch {
	case t.Type.IsI8():
		return t.Unsigned, 8
	case t.Type.IsI16():
		return t.Unsigned, 16
	case t.Type.IsI32():
		return t.Unsigned, 32
	case t.Type.IsI64():
		return t.Unsigned, 64
	default:
		// Width unknown: default to 64-bit.
		return t.Unsigned, 64
	}
}

// narrow truncates a raw 64-bit pattern to width bits, wrapping the way a
// platform integer conversion would (no explicit error on overflow).
func narrow[T constraints.Unsigned](u uint64, width int) T {
	switch width {
	case 8:
		return T(uint8(u))
	case 16:
		return T(uint16(u))
	case 32:
		return T(uint32(u))
	default:
		return T(u)
	}
}

// CastTo maps v onto the representation named by t: float destinations
// go through the source's natural numeric conversion, integer
// destinations are selected by (unsigned, width) and truncate on
// narrowing.
func (v Value) CastTo(t SignValType) Value {
	if t.Type.IsF32() {
		return FloatValue(32, float64(float32(v.Float64())))
	}
	if t.Type.IsF64() {
		return FloatValue(64, v.Float64())
	}
	if t.Type.IsString() {
		// Identity for string-class destinations: bytes are preserved.
		return v
	}
	unsigned, width := signedWidth(t)
	raw := v.u
	if v.kind == KindFloat {
		if unsigned {
			raw = uint64(v.f)
		} else {
			raw = uint64(int64(v.f))
		}
	}
	truncated := narrow[uint64](raw, width)
	return IntValue(width, unsigned, truncated)
}

// CastFromBytes decodes a concrete typed value from raw bytes using the
// endianness implied by t.Type (see ValType.IsBE/IsLE/IsME). It requires
// at least t.Type.SizeInBytes() bytes and fails otherwise. For
// string-class types the cast is the identity: bytes are preserved
// verbatim (the caller is responsible for trimming to the desired length
// before calling, e.g. a pstring length prefix).
func CastFromBytes(t SignValType, b []byte) (Value, bool) {
	if t.Type.IsString() {
		return BytesValue(b), true
	}

	size := t.Type.SizeInBytes()
	if size == 0 || len(b) < size {
		return Value{}, false
	}
	b = b[:size]

	if t.Type.IsF32() {
		order := byteOrder(t.Type)
		bits := order.Uint32(b)
		return FloatValue(32, float64(math.Float32frombits(bits))), true
	}
	if t.Type.IsF64() {
		order := byteOrder(t.Type)
		bits := order.Uint64(b)
		return FloatValue(64, math.Float64frombits(bits)), true
	}

	var u uint64
	switch {
	case t.Type.IsME() && size == 4:
		// Middle-endian: historical PDP-11 byte order [2,3,0,1] — the two
		// 16-bit halves are big-endian internally, but the halves
		// themselves are swapped.
		u = uint64(b[2])<<24 | uint64(b[3])<<16 | uint64(b[0])<<8 | uint64(b[1])
	default:
		order := byteOrder(t.Type)
		switch size {
		case 1:
			u = uint64(b[0])
		case 2:
			u = uint64(order.Uint16(b))
		case 4:
			u = uint64(order.Uint32(b))
		case 8:
			u = order.Uint64(b)
		}
	}

	width := size * 8
	return IntValue(width, t.Unsigned, u), true
}

// byteOrder returns big-endian unless the type is explicitly little- or
// middle-endian (middle-endian callers handle their own byte shuffle and
// only use this for sub-operations that are natively little-endian).
func byteOrder(t ValType) binary.ByteOrder {
	if t.IsLE() || t.IsME() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
