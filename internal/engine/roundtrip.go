package engine

import (
	"context"
	"fmt"
	"math"

	gt "gorgonia.org/tensor"

	"github.com/samcharles93/nibble/internal/backend"
	"github.com/samcharles93/nibble/internal/backend/cpu"
	"github.com/samcharles93/nibble/internal/quality"
	"github.com/samcharles93/nibble/internal/rng"
	"github.com/samcharles93/nibble/pkg/quant"
)

// RoundTrip draws a rows x cols normal sample, maps each x to
// tanh(|x|^1.4)+3 and reports the round-trip error of both schemes over it.
func (e *Engine) RoundTrip(ctx context.Context, req *RoundTripRequest) ([]RoundTripResult, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if req.Rows <= 0 || req.Cols <= 0 {
		return nil, invalid("rows and cols must be positive, got %dx%d", req.Rows, req.Cols)
	}
	if _, err := elements(req.Rows, req.Cols); err != nil {
		return nil, err
	}
	tgt, err := resolve("", req.DType)
	if err != nil {
		return nil, err
	}
	shape := gt.Shape{req.Rows, req.Cols}

	if tgt.dtype == backend.F32 {
		values := transformedSample[float32](shape.TotalSize(), req.Seed)
		return collect(
			func() (RoundTripResult, error) { return roundTripAs[quant.ScaledQuant[float32]](e, shape, values) },
			func() (RoundTripResult, error) { return roundTripAs[quant.OffsetQuant[float32]](e, shape, values) },
		)
	}
	values := transformedSample[float64](shape.TotalSize(), req.Seed)
	return collect(
		func() (RoundTripResult, error) { return roundTripAs[quant.ScaledQuant[float64]](e, shape, values) },
		func() (RoundTripResult, error) { return roundTripAs[quant.OffsetQuant[float64]](e, shape, values) },
	)
}

func collect(runs ...func() (RoundTripResult, error)) ([]RoundTripResult, error) {
	out := make([]RoundTripResult, 0, len(runs))
	for _, run := range runs {
		r, err := run()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func transformedSample[E quant.Float](n int, seed uint64) []E {
	src := rng.New[E](seed)
	values := make([]E, n)
	for i := range values {
		x := math.Abs(float64(src.Normal()))
		values[i] = E(math.Tanh(math.Pow(x, 1.4)) + 3)
	}
	return values
}

func roundTripAs[S quant.Scheme[S, E], E quant.Float](e *Engine, shape gt.Shape, values []E) (RoundTripResult, error) {
	dev := cpu.New[S, E](cpu.WithLogger(e.log))
	t, err := dev.Tensor(shape, values)
	if err != nil {
		return RoundTripResult{}, fmt.Errorf("%s: %w", dev.Name(), err)
	}
	res := RoundTripResult{
		Device:  dev.Name(),
		DType:   dtypeOf[E](),
		Params:  t.Data.Scheme().Params(),
		Bytes:   t.Data.Bytes(),
		Quality: quality.Measure(values, t.Values()),
	}
	e.log.Debug("round trip", "device", res.Device, "mean_abs_error", res.Quality.MeanAbs, "max_abs_error", res.Quality.MaxAbs)
	return res, nil
}
