package cpu

import (
	"errors"
	"fmt"

	"github.com/samcharles93/nibble/internal/rng"
	"github.com/samcharles93/nibble/internal/tensor"
	"github.com/samcharles93/nibble/pkg/quant"
)

// ErrInvalidProbability is returned for a drop probability outside [0, 1].
var ErrInvalidProbability = errors.New("dropout: probability must be in [0, 1]")

// DropoutOp parameterizes one dropout application. The same op must be
// passed to the forward and backward kernels: the mask is regenerated from
// Seed rather than stored.
type DropoutOp[E quant.Float] struct {
	Prob E
	Seed uint64
}

// Validate checks that Prob is a probability.
func (op DropoutOp[E]) Validate() error {
	if !(op.Prob >= 0 && op.Prob <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidProbability, op.Prob)
	}
	return nil
}

// keepScale is the multiplier for surviving elements. At Prob == 1 nothing
// survives and the scale is never applied.
func (op DropoutOp[E]) keepScale() E {
	if op.Prob >= 1 {
		return 0
	}
	return 1 / (1 - op.Prob)
}

// Mask reports which of n elements the kernels drop for op, drawing in the
// same order as DropoutForward.
func (op DropoutOp[E]) Mask(n int) []bool {
	src := rng.New[E](op.Seed)
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = src.Uniform() < op.Prob
	}
	return mask
}

// DropoutForward returns a copy of inp in which each element is zeroed with
// probability op.Prob and otherwise divided by 1-op.Prob. Elements are
// visited in index order, one uniform draw each.
//
// Writes go through the input's scheme. When its range excludes zero, as an
// OffsetQuant fitted to positive values, a dropped element stores the
// nearest code and reads back as the range minimum, not 0. Use Mask to tell
// which elements were dropped.
func (d *Device[S, E]) DropoutForward(op DropoutOp[E], inp *tensor.Tensor[S, E]) (*tensor.Tensor[S, E], error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	src := rng.New[E](op.Seed)
	out := inp.Clone()
	out.Device = d

	dropped := 0
	it := out.Data.Blocks()
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		b.Update(func(_ int, x E) E {
			if src.Uniform() < op.Prob {
				dropped++
				return 0
			}
			return x / (1 - op.Prob)
		})
	}
	d.log.Debug("dropout forward", "elements", out.Len(), "prob", op.Prob, "seed", op.Seed, "dropped", dropped)
	return out, nil
}

// DropoutBackward accumulates the dropout gradient into gradInp:
// gradInp[i] += gradOut[i] / (1-op.Prob) for every element the forward pass
// with the same op kept. gradInp and gradOut must match inp in length.
func (d *Device[S, E]) DropoutBackward(op DropoutOp[E], inp *tensor.Tensor[S, E], gradInp, gradOut *tensor.Storage[S, E]) error {
	if err := op.Validate(); err != nil {
		return err
	}
	if gradInp.Len() != gradOut.Len() || inp.Len() != gradOut.Len() {
		panic(fmt.Sprintf("dropout backward: length mismatch (input %d, grad in %d, grad out %d)",
			inp.Len(), gradInp.Len(), gradOut.Len()))
	}
	src := rng.New[E](op.Seed)
	scale := op.keepScale()

	dropped := 0
	it := gradInp.Blocks()
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		b.Update(func(i int, g E) E {
			if src.Uniform() < op.Prob {
				dropped++
				return g
			}
			return g + scale*gradOut.Get(i)
		})
	}
	d.log.Debug("dropout backward", "elements", gradInp.Len(), "prob", op.Prob, "seed", op.Seed, "dropped", dropped)
	return nil
}
