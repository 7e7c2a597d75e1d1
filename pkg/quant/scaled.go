package quant

// ScaledQuant is symmetric 4-bit quantization with one scale per tensor:
// value ~= (code - 8) * scale, where scale = max|v| / 7.
type ScaledQuant[E Float] struct {
	scale E
}

// NewScaledQuant fits a ScaledQuant from values.
func NewScaledQuant[E Float](values []E) (ScaledQuant[E], error) {
	return ScaledQuant[E]{}.Fit(values)
}

func (ScaledQuant[E]) Name() string {
	return string(KindScaled)
}

// Fit returns a scheme whose range covers the largest magnitude in values.
// NaNs are skipped.
func (ScaledQuant[E]) Fit(values []E) (ScaledQuant[E], error) {
	var (
		maxAbs E
		seen   bool
	)
	for _, v := range values {
		if isNaN(v) {
			continue
		}
		if v < 0 {
			v = -v
		}
		if !seen || v > maxAbs {
			maxAbs = v
			seen = true
		}
	}
	if !seen {
		return ScaledQuant[E]{}, ErrEmptySample
	}
	if isInf(maxAbs) {
		return ScaledQuant[E]{}, ErrNonFiniteScale
	}
	return ScaledQuant[E]{scale: maxAbs / 7}, nil
}

// FitZero is Fit over values and zero. Zero is always code 8.
func (q ScaledQuant[E]) FitZero(values []E) (ScaledQuant[E], error) {
	return q.Fit(append([]E{0}, values...))
}

// Scale returns the fitted scaling factor.
func (q ScaledQuant[E]) Scale() E {
	return q.scale
}

func (q ScaledQuant[E]) Quantize(value E) HalfByte {
	return clampCode(float64(value*inverse(q.scale)), 8)
}

func (q ScaledQuant[E]) Dequantize(code HalfByte) E {
	return E(int8(code.Uint8())-8) * q.scale
}

func (q ScaledQuant[E]) Params() Params {
	return Params{Scale: float64(q.scale)}
}
