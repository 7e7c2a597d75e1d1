// Package engine runs the quantized kernels on behalf of the CLI and the
// HTTP server. Requests carry plain float64 values and scheme names; the
// engine picks the matching statically typed device.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	gt "gorgonia.org/tensor"

	"github.com/samcharles93/nibble/internal/backend"
	"github.com/samcharles93/nibble/internal/logger"
	"github.com/samcharles93/nibble/pkg/quant"
)

// ErrInvalidRequest marks errors caused by the caller's input.
var ErrInvalidRequest = errors.New("invalid request")

// MaxElements bounds the size of a single tensor.
const MaxElements = 1 << 24

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func invalidErr(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

type Engine struct {
	log logger.Logger
}

// New returns an Engine. A nil logger falls back to logger.Default.
func New(log logger.Logger) *Engine {
	if log == nil {
		log = logger.Default()
	}
	return &Engine{log: log}
}

type target struct {
	scheme string
	dtype  string
}

func resolve(scheme, dtype string) (target, error) {
	s, err := backend.Normalize(scheme)
	if err != nil {
		return target{}, invalidErr(err)
	}
	d, err := backend.NormalizeDType(dtype)
	if err != nil {
		return target{}, invalidErr(err)
	}
	return target{scheme: s, dtype: d}, nil
}

// shapeFor validates shape against n elements. An empty shape is a vector.
func shapeFor(shape []int, n int) (gt.Shape, error) {
	if n == 0 {
		return nil, invalid("values are required")
	}
	if n > MaxElements {
		return nil, invalid("%d values exceed the limit of %d", n, MaxElements)
	}
	if len(shape) == 0 {
		return gt.Shape{n}, nil
	}
	size, err := elements(shape...)
	if err != nil {
		return nil, err
	}
	if size != n {
		return nil, invalid("shape %v holds %d elements, got %d values", shape, size, n)
	}
	return gt.Shape(append([]int(nil), shape...)), nil
}

// elements multiplies dims, failing on a non-positive dimension or once the
// product passes MaxElements.
func elements(dims ...int) (int, error) {
	size := 1
	for _, d := range dims {
		if d <= 0 {
			return 0, invalid("shape %v has a non-positive dimension", dims)
		}
		if size > MaxElements/d {
			return 0, invalid("shape %v exceeds the limit of %d elements", dims, MaxElements)
		}
		size *= d
	}
	return size, nil
}

// finite converts values to E, rejecting any that are infinite at E's
// precision. NaN passes through; schemes skip it when fitting.
func finite[E quant.Float](field string, values []float64) ([]E, error) {
	out := convert[E](values)
	for i, v := range out {
		if math.IsInf(float64(v), 0) {
			return nil, invalid("%s[%d] = %g is not finite as %s", field, i, values[i], dtypeOf[E]())
		}
	}
	return out, nil
}

func convert[E quant.Float](values []float64) []E {
	out := make([]E, len(values))
	for i, v := range values {
		out[i] = E(v)
	}
	return out
}

func widen[E quant.Float](values []E) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}
	return ctx.Err()
}
