// Package quant implements 4-bit per-tensor quantization.
//
// Two schemes are provided. ScaledQuant is symmetric around zero (the Q4_0
// layout): codes are signed [-8, 7] stored with a bias of 8. OffsetQuant is
// asymmetric (the Q4_1 layout): codes are unsigned [0, 15] above a minimum.
// Both are fitted once from a sample and are immutable afterwards.
package quant

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrEmptySample is returned when a scheme is fitted from a sample with no
// comparable values.
var ErrEmptySample = errors.New("quant: sample has no comparable values")

// ErrNonFiniteScale is returned when a sample's range overflows the element
// type, so no finite scale covers it.
var ErrNonFiniteScale = errors.New("quant: sample range is not finite")

// Float is the element type a scheme quantizes.
type Float interface {
	~float32 | ~float64
}

// Quantizer converts between floating values and half-byte codes.
type Quantizer[E Float] interface {
	Name() string
	Quantize(value E) HalfByte
	Dequantize(code HalfByte) E
	Params() Params
}

// Scheme is a Quantizer that can fit a fresh instance of itself from a
// sample. Fit ignores its receiver, so generic code calls it on the zero
// value of S.
type Scheme[S any, E Float] interface {
	Quantizer[E]
	Fit(values []E) (S, error)
}

// ZeroFitter fits a scheme whose grid contains zero exactly, so a buffer
// filled with Quantize(0) dequantizes to 0. Accumulators use it.
type ZeroFitter[S any, E Float] interface {
	FitZero(values []E) (S, error)
}

// Params are the fitted scheme parameters widened to float64 for reporting.
type Params struct {
	Scale  float64 `json:"scale"`
	Offset float64 `json:"offset"`
}

// Kind names a quantization scheme.
type Kind string

const (
	KindScaled Kind = "scaled"
	KindOffset Kind = "offset"
)

// ParseKind accepts the scheme names and their ggml aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scaled", "symmetric", "q4_0":
		return KindScaled, nil
	case "offset", "asymmetric", "q4_1":
		return KindOffset, nil
	default:
		return "", fmt.Errorf("unknown quantization scheme %q (expected scaled or offset)", s)
	}
}

// QuantizeSlice quantizes every value with q.
func QuantizeSlice[E Float](q Quantizer[E], values []E) []HalfByte {
	out := make([]HalfByte, len(values))
	for i, v := range values {
		out[i] = q.Quantize(v)
	}
	return out
}

// DequantizeSlice dequantizes every code with q.
func DequantizeSlice[E Float](q Quantizer[E], codes []HalfByte) []E {
	out := make([]E, len(codes))
	for i, c := range codes {
		out[i] = q.Dequantize(c)
	}
	return out
}

// inverse returns 1/scale, or 0 when scale is 0 so a constant sample maps
// every value to the zero code instead of NaN.
func inverse[E Float](scale E) E {
	if scale == 0 {
		return 0
	}
	return 1 / scale
}

// clampCode rounds x to the nearest integer (half away from zero), adds bias
// and saturates to [0, 15]. NaN takes the bias as its code.
func clampCode(x float64, bias float64) HalfByte {
	if math.IsNaN(x) {
		return MustHalfByte(uint8(bias))
	}
	q := math.Round(x) + bias
	if q < 0 {
		q = 0
	}
	if q > 15 {
		q = 15
	}
	return MustHalfByte(uint8(q))
}

func isNaN[E Float](v E) bool {
	return v != v
}

func isInf[E Float](v E) bool {
	return math.IsInf(float64(v), 0)
}

var (
	_ Scheme[ScaledQuant[float32], float32] = ScaledQuant[float32]{}
	_ Scheme[ScaledQuant[float64], float64] = ScaledQuant[float64]{}
	_ Scheme[OffsetQuant[float32], float32] = OffsetQuant[float32]{}
	_ Scheme[OffsetQuant[float64], float64] = OffsetQuant[float64]{}
)
