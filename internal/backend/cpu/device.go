// Package cpu is the quantized CPU device. A Device is parameterized by the
// scheme its tensors are stored with, so the scheme is fixed at compile time
// for every tensor and kernel it touches.
package cpu

import (
	gt "gorgonia.org/tensor"

	"github.com/samcharles93/nibble/internal/backend"
	"github.com/samcharles93/nibble/internal/logger"
	"github.com/samcharles93/nibble/internal/rng"
	"github.com/samcharles93/nibble/internal/tensor"
	"github.com/samcharles93/nibble/pkg/quant"
)

// Device allocates quantized tensors and runs kernels over them.
type Device[S quant.Scheme[S, E], E quant.Float] struct {
	log logger.Logger
}

// Option configures a Device.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger kernels report to.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// New returns a Device for scheme S over element type E.
func New[S quant.Scheme[S, E], E quant.Float](opts ...Option) *Device[S, E] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Default()
	}
	var zero S
	return &Device[S, E]{
		log: o.log.With("device", backend.DeviceName(zero.Name())),
	}
}

func (d *Device[S, E]) Name() string {
	var zero S
	return backend.DeviceName(zero.Name())
}

// Tensor fits the device scheme over values and stores them with shape.
func (d *Device[S, E]) Tensor(shape gt.Shape, values []E) (*tensor.Tensor[S, E], error) {
	data, err := tensor.FromValues[S](values)
	if err != nil {
		return nil, err
	}
	return tensor.New(d, shape, data)
}

// TensorWithScheme stores values with a scheme fitted elsewhere, typically
// from a representative sample rather than the values themselves.
func (d *Device[S, E]) TensorWithScheme(shape gt.Shape, values []E, scheme S) (*tensor.Tensor[S, E], error) {
	return tensor.New(d, shape, tensor.FromValuesWithScheme(scheme, values))
}

// SampleNormal fills a tensor of shape with standard normal values drawn
// from seed.
func (d *Device[S, E]) SampleNormal(shape gt.Shape, seed uint64) (*tensor.Tensor[S, E], error) {
	src := rng.New[E](seed)
	values := make([]E, shape.TotalSize())
	for i := range values {
		values[i] = src.Normal()
	}
	return d.Tensor(shape, values)
}

// GradStorage allocates n zeroed gradient elements. The scheme covers zero
// and sample, with zero exactly on a code when the scheme supports it, so
// untouched elements dequantize to 0.
func (d *Device[S, E]) GradStorage(sample []E, n int) (*tensor.Storage[S, E], error) {
	var zero S
	var (
		scheme S
		err    error
	)
	if zf, ok := any(zero).(quant.ZeroFitter[S, E]); ok {
		scheme, err = zf.FitZero(sample)
	} else {
		scheme, err = zero.Fit(append([]E{0}, sample...))
	}
	if err != nil {
		return nil, err
	}
	return tensor.NewStorage[S, E](scheme, n), nil
}
