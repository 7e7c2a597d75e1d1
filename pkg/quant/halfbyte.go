package quant

import "errors"

// ErrHalfByteRange is returned when a value does not fit in four bits.
var ErrHalfByteRange = errors.New("failed to construct a half byte value")

// HalfByte is a validated 4-bit code in [0, 16). It is the unit packed into
// quantized storage, two per byte.
type HalfByte struct {
	v uint8
}

// NewHalfByte validates b and returns it as a HalfByte.
func NewHalfByte(b uint8) (HalfByte, error) {
	if b > 0x0F {
		return HalfByte{}, ErrHalfByteRange
	}
	return HalfByte{v: b}, nil
}

// MustHalfByte is NewHalfByte for callers that have already clamped b.
// A range violation here is a bug in the caller's arithmetic.
func MustHalfByte(b uint8) HalfByte {
	h, err := NewHalfByte(b)
	if err != nil {
		panic(err)
	}
	return h
}

// Uint8 returns the code as a byte in [0, 15].
func (h HalfByte) Uint8() uint8 {
	return h.v
}
