package tensor

import (
	"iter"

	"github.com/samcharles93/nibble/pkg/quant"
)

// Storage is a flat buffer of 4-bit codes sharing one fitted scheme.
// Element i lives in byte i/2: even indices in the low nibble, odd indices
// in the high nibble. Callers never see the packed bytes; every access goes
// through the scheme.
type Storage[S quant.Scheme[S, E], E quant.Float] struct {
	scheme S
	packed []byte
	n      int
}

// FromValues fits a scheme over values and quantizes them.
func FromValues[S quant.Scheme[S, E], E quant.Float](values []E) (*Storage[S, E], error) {
	var zero S
	scheme, err := zero.Fit(values)
	if err != nil {
		return nil, err
	}
	return FromValuesWithScheme(scheme, values), nil
}

// FromValuesWithScheme quantizes values with an already fitted scheme.
func FromValuesWithScheme[S quant.Scheme[S, E], E quant.Float](scheme S, values []E) *Storage[S, E] {
	s := &Storage[S, E]{
		scheme: scheme,
		packed: make([]byte, packedLen(len(values))),
		n:      len(values),
	}
	for i, v := range values {
		s.setCode(i, scheme.Quantize(v).Uint8())
	}
	return s
}

// NewStorage allocates n elements holding the scheme's code for zero.
func NewStorage[S quant.Scheme[S, E], E quant.Float](scheme S, n int) *Storage[S, E] {
	if n < 0 {
		panic("negative storage length")
	}
	s := &Storage[S, E]{
		scheme: scheme,
		packed: make([]byte, packedLen(n)),
		n:      n,
	}
	z := scheme.Quantize(0).Uint8()
	if z != 0 {
		fill := z | z<<4
		for i := range s.packed {
			s.packed[i] = fill
		}
	}
	return s
}

func packedLen(n int) int {
	return (n + 1) / 2
}

// Len returns the number of logical elements.
func (s *Storage[S, E]) Len() int {
	return s.n
}

// Bytes returns the size of the packed payload.
func (s *Storage[S, E]) Bytes() int {
	return len(s.packed)
}

// Scheme returns the scheme the storage was quantized with.
func (s *Storage[S, E]) Scheme() S {
	return s.scheme
}

// Code returns the raw code of element i.
func (s *Storage[S, E]) Code(i int) quant.HalfByte {
	return quant.MustHalfByte(s.code(i))
}

// SetCode overwrites the raw code of element i.
func (s *Storage[S, E]) SetCode(i int, c quant.HalfByte) {
	s.setCode(i, c.Uint8())
}

// Get dequantizes element i.
func (s *Storage[S, E]) Get(i int) E {
	return s.scheme.Dequantize(s.Code(i))
}

// Set quantizes v into element i.
func (s *Storage[S, E]) Set(i int, v E) {
	s.setCode(i, s.scheme.Quantize(v).Uint8())
}

func (s *Storage[S, E]) code(i int) uint8 {
	if i < 0 || i >= s.n {
		panic("storage index out of range")
	}
	b := s.packed[i>>1]
	if i&1 == 1 {
		return b >> 4
	}
	return b & 0x0F
}

func (s *Storage[S, E]) setCode(i int, c uint8) {
	if i < 0 || i >= s.n {
		panic("storage index out of range")
	}
	p := &s.packed[i>>1]
	if i&1 == 1 {
		*p = (*p & 0x0F) | c<<4
	} else {
		*p = (*p & 0xF0) | c&0x0F
	}
}

// Clone returns a deep copy sharing the same scheme parameters.
func (s *Storage[S, E]) Clone() *Storage[S, E] {
	packed := make([]byte, len(s.packed))
	copy(packed, s.packed)
	return &Storage[S, E]{
		scheme: s.scheme,
		packed: packed,
		n:      s.n,
	}
}

// Values dequantizes every element in index order.
func (s *Storage[S, E]) Values() []E {
	out := make([]E, s.n)
	for i, v := range s.All() {
		out[i] = v
	}
	return out
}

// All yields (index, value) pairs in index order.
func (s *Storage[S, E]) All() iter.Seq2[int, E] {
	return func(yield func(int, E) bool) {
		for i := 0; i < s.n; i++ {
			if !yield(i, s.Get(i)) {
				return
			}
		}
	}
}
