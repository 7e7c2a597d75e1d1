package engine

import (
	"context"
	"fmt"

	gt "gorgonia.org/tensor"

	"github.com/samcharles93/nibble/internal/backend"
	"github.com/samcharles93/nibble/internal/backend/cpu"
	"github.com/samcharles93/nibble/internal/quality"
	"github.com/samcharles93/nibble/pkg/quant"
)

// Quantize stores req.Values with the requested scheme and reports the codes,
// the dequantized values and the round-trip error.
func (e *Engine) Quantize(ctx context.Context, req *QuantizeRequest) (*QuantizeResult, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	tgt, err := resolve(req.Scheme, req.DType)
	if err != nil {
		return nil, err
	}
	shape, err := shapeFor(req.Shape, len(req.Values))
	if err != nil {
		return nil, err
	}

	switch tgt {
	case target{backend.Scaled, backend.F32}:
		return quantizeAs[quant.ScaledQuant[float32], float32](e, shape, req.Values)
	case target{backend.Scaled, backend.F64}:
		return quantizeAs[quant.ScaledQuant[float64], float64](e, shape, req.Values)
	case target{backend.Offset, backend.F32}:
		return quantizeAs[quant.OffsetQuant[float32], float32](e, shape, req.Values)
	case target{backend.Offset, backend.F64}:
		return quantizeAs[quant.OffsetQuant[float64], float64](e, shape, req.Values)
	default:
		return nil, invalid("unsupported scheme %s/%s", tgt.scheme, tgt.dtype)
	}
}

func quantizeAs[S quant.Scheme[S, E], E quant.Float](e *Engine, shape gt.Shape, values []float64) (*QuantizeResult, error) {
	dev := cpu.New[S, E](cpu.WithLogger(e.log))
	in, err := finite[E]("values", values)
	if err != nil {
		return nil, err
	}
	t, err := dev.Tensor(shape, in)
	if err != nil {
		return nil, invalidErr(err)
	}

	codes := make([]uint8, t.Len())
	for i := range codes {
		codes[i] = t.Data.Code(i).Uint8()
	}
	restored := t.Values()
	res := &QuantizeResult{
		ID:       t.ID.String(),
		Device:   dev.Name(),
		DType:    dtypeOf[E](),
		Shape:    []int(t.Shape.Clone()),
		Params:   t.Data.Scheme().Params(),
		Codes:    codes,
		Restored: widen(restored),
		Bytes:    t.Data.Bytes(),
		Quality:  quality.Measure(in, restored),
	}
	e.log.Debug("quantized", "id", res.ID, "device", res.Device, "elements", len(codes), "bytes", res.Bytes)
	return res, nil
}

func dtypeOf[E quant.Float]() string {
	var zero E
	if _, ok := any(zero).(float32); ok {
		return backend.F32
	}
	return backend.F64
}
