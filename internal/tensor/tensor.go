// Package tensor holds quantized tensors: packed 4-bit storage, the block
// iterator kernels use to read and rewrite it, and the tensor value that ties
// storage to a shape and a device.
package tensor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	gt "gorgonia.org/tensor"

	"github.com/samcharles93/nibble/pkg/quant"
)

var (
	ErrShapeMismatch = errors.New("tensor: shape does not match storage length")
	ErrEmptyShape    = errors.New("tensor: shape has no dimensions")
)

// Device is the backend a tensor was allocated on.
type Device interface {
	Name() string
}

// Tensor is a shaped view over quantized storage.
type Tensor[S quant.Scheme[S, E], E quant.Float] struct {
	ID      uuid.UUID
	Data    *Storage[S, E]
	Shape   gt.Shape
	Strides []int
	Device  Device
}

// New wraps data in a tensor with row-major strides for shape.
func New[S quant.Scheme[S, E], E quant.Float](dev Device, shape gt.Shape, data *Storage[S, E]) (*Tensor[S, E], error) {
	if len(shape) == 0 {
		return nil, ErrEmptyShape
	}
	if shape.TotalSize() != data.Len() {
		return nil, fmt.Errorf("%w: shape %v holds %d elements, storage has %d",
			ErrShapeMismatch, shape, shape.TotalSize(), data.Len())
	}
	return &Tensor[S, E]{
		ID:      uuid.New(),
		Data:    data,
		Shape:   shape.Clone(),
		Strides: shape.CalcStrides(),
		Device:  dev,
	}, nil
}

// Clone copies storage, shape and strides into a tensor with a new ID on the
// same device.
func (t *Tensor[S, E]) Clone() *Tensor[S, E] {
	strides := make([]int, len(t.Strides))
	copy(strides, t.Strides)
	return &Tensor[S, E]{
		ID:      uuid.New(),
		Data:    t.Data.Clone(),
		Shape:   t.Shape.Clone(),
		Strides: strides,
		Device:  t.Device,
	}
}

// Len returns the number of logical elements.
func (t *Tensor[S, E]) Len() int {
	return t.Data.Len()
}

// Values dequantizes the tensor in index order.
func (t *Tensor[S, E]) Values() []E {
	return t.Data.Values()
}

// Dense dequantizes the tensor into a gorgonia dense tensor of the same shape.
func (t *Tensor[S, E]) Dense() *gt.Dense {
	return gt.New(gt.WithShape(t.Shape...), gt.WithBacking(t.Values()))
}
