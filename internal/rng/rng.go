// Package rng provides the seeded random source kernels draw from. Two
// sources built from the same seed yield the same sequence, which is what
// lets a backward pass regenerate the mask its forward pass used.
package rng

import (
	"math/rand"
	"unsafe"

	"github.com/samcharles93/nibble/pkg/quant"
)

// Source draws values of type E from a seeded generator.
type Source[E quant.Float] struct {
	r *rand.Rand
}

// New returns a Source seeded with seed.
func New[E quant.Float](seed uint64) *Source[E] {
	return &Source[E]{r: rand.New(rand.NewSource(int64(seed)))}
}

// Uniform returns a value in [0, 1). Four-byte element types draw a float32
// so the comparison happens at the tensor's own precision.
func (s *Source[E]) Uniform() E {
	var zero E
	if unsafe.Sizeof(zero) == 4 {
		return E(s.r.Float32())
	}
	return E(s.r.Float64())
}

// Normal returns a standard normally distributed value.
func (s *Source[E]) Normal() E {
	return E(s.r.NormFloat64())
}
