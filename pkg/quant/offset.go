package quant

import "math"

// OffsetQuant is asymmetric 4-bit quantization anchored at the sample
// minimum: value ~= code * scale + offset, where scale = (max - min) / 15
// and offset = min.
type OffsetQuant[E Float] struct {
	scale  E
	offset E
}

// NewOffsetQuant fits an OffsetQuant from values.
func NewOffsetQuant[E Float](values []E) (OffsetQuant[E], error) {
	return OffsetQuant[E]{}.Fit(values)
}

func (OffsetQuant[E]) Name() string {
	return string(KindOffset)
}

// Fit scans values for the minimum and maximum. NaNs are not comparable and
// are skipped.
func (OffsetQuant[E]) Fit(values []E) (OffsetQuant[E], error) {
	var (
		lo, hi E
		seen   bool
	)
	for _, v := range values {
		if isNaN(v) {
			continue
		}
		if !seen {
			lo, hi, seen = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !seen {
		return OffsetQuant[E]{}, ErrEmptySample
	}
	scale := (hi - lo) / 15
	if isInf(scale) {
		return OffsetQuant[E]{}, ErrNonFiniteScale
	}
	return OffsetQuant[E]{scale: scale, offset: lo}, nil
}

// FitZero fits over values and zero, then moves the offset to the nearest
// multiple of the scale so that zero sits exactly on a code. The ends of
// the range move by at most scale/2 and clamp into the outer codes.
func (q OffsetQuant[E]) FitZero(values []E) (OffsetQuant[E], error) {
	fit, err := q.Fit(append([]E{0}, values...))
	if err != nil || fit.scale == 0 {
		return fit, err
	}
	k := math.Round(float64(-fit.offset / fit.scale))
	fit.offset = -E(k) * fit.scale
	return fit, nil
}

// Scale returns the fitted scaling factor.
func (q OffsetQuant[E]) Scale() E {
	return q.scale
}

// Offset returns the fitted minimum.
func (q OffsetQuant[E]) Offset() E {
	return q.offset
}

func (q OffsetQuant[E]) Quantize(value E) HalfByte {
	return clampCode(float64((value-q.offset)*inverse(q.scale)), 0)
}

func (q OffsetQuant[E]) Dequantize(code HalfByte) E {
	return E(code.Uint8())*q.scale + q.offset
}

func (q OffsetQuant[E]) Params() Params {
	return Params{Scale: float64(q.scale), Offset: float64(q.offset)}
}
