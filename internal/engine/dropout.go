package engine

import (
	"context"
	"fmt"

	gt "gorgonia.org/tensor"

	"github.com/samcharles93/nibble/internal/backend"
	"github.com/samcharles93/nibble/internal/backend/cpu"
	"github.com/samcharles93/nibble/internal/tensor"
	"github.com/samcharles93/nibble/pkg/quant"
)

// Dropout quantizes req.Values and applies dropout with req.Prob and
// req.Seed. With GradOutput set it also accumulates the input gradient into
// a fresh zeroed buffer.
func (e *Engine) Dropout(ctx context.Context, req *DropoutRequest) (*DropoutResult, error) {
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
	if req.GradOutput != nil && len(req.GradOutput) != len(req.Values) {
		return nil, invalid("grad_output has %d elements, want %d", len(req.GradOutput), len(req.Values))
	}

	switch tgt {
	case target{backend.Scaled, backend.F32}:
		return dropoutAs[quant.ScaledQuant[float32], float32](e, shape, req)
	case target{backend.Scaled, backend.F64}:
		return dropoutAs[quant.ScaledQuant[float64], float64](e, shape, req)
	case target{backend.Offset, backend.F32}:
		return dropoutAs[quant.OffsetQuant[float32], float32](e, shape, req)
	case target{backend.Offset, backend.F64}:
		return dropoutAs[quant.OffsetQuant[float64], float64](e, shape, req)
	default:
		return nil, invalid("unsupported scheme %s/%s", tgt.scheme, tgt.dtype)
	}
}

func dropoutAs[S quant.Scheme[S, E], E quant.Float](e *Engine, shape gt.Shape, req *DropoutRequest) (*DropoutResult, error) {
	dev := cpu.New[S, E](cpu.WithLogger(e.log))
	op := cpu.DropoutOp[E]{Prob: E(req.Prob), Seed: req.Seed}
	if err := op.Validate(); err != nil {
		return nil, invalidErr(err)
	}
	values, err := finite[E]("values", req.Values)
	if err != nil {
		return nil, err
	}
	inp, err := dev.Tensor(shape, values)
	if err != nil {
		return nil, invalidErr(err)
	}
	out, err := dev.DropoutForward(op, inp)
	if err != nil {
		return nil, err
	}

	dropped := []int{}
	for i, d := range op.Mask(inp.Len()) {
		if d {
			dropped = append(dropped, i)
		}
	}
	res := &DropoutResult{
		ID:      out.ID.String(),
		Device:  dev.Name(),
		DType:   dtypeOf[E](),
		Shape:   []int(out.Shape.Clone()),
		Params:  inp.Data.Scheme().Params(),
		Input:   widen(inp.Values()),
		Output:  widen(out.Values()),
		Dropped: dropped,
	}

	if req.GradOutput != nil {
		gradOutput, err := finite[E]("grad_output", req.GradOutput)
		if err != nil {
			return nil, err
		}
		grad, err := backwardAs(dev, op, inp, gradOutput)
		if err != nil {
			return nil, err
		}
		res.GradInput = widen(grad)
	}
	e.log.Debug("dropout", "id", res.ID, "device", res.Device, "elements", inp.Len(), "dropped", len(dropped))
	return res, nil
}

func backwardAs[S quant.Scheme[S, E], E quant.Float](dev *cpu.Device[S, E], op cpu.DropoutOp[E], inp *tensor.Tensor[S, E], gradOutput []E) ([]E, error) {
	gradOut, err := tensor.FromValues[S](gradOutput)
	if err != nil {
		return nil, invalidErr(fmt.Errorf("grad_output: %w", err))
	}
	// The buffer must hold the largest scaled contribution a kept element
	// can receive.
	sample := gradOut.Values()
	if op.Prob < 1 {
		for i := range sample {
			sample[i] /= 1 - op.Prob
		}
	}
	gradInp, err := dev.GradStorage(sample, inp.Len())
	if err != nil {
		return nil, invalidErr(fmt.Errorf("grad_output: %w", err))
	}
	if err := dev.DropoutBackward(op, inp, gradInp, gradOut); err != nil {
		return nil, err
	}
	return gradInp.Values(), nil
}
