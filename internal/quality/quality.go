// Package quality measures how far dequantized values drift from the values
// they were quantized from.
package quality

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/samcharles93/nibble/pkg/quant"
)

// Report summarizes absolute element-wise error.
type Report struct {
	Count   int     `json:"count"`
	MeanAbs float64 `json:"mean_abs_error"`
	MaxAbs  float64 `json:"max_abs_error"`
	StdDev  float64 `json:"stddev_abs_error"`
}

// Measure compares got against want element by element. Pairs where either
// side is NaN are skipped. Extra elements in the longer slice are ignored.
func Measure[E quant.Float](want, got []E) Report {
	n := min(len(want), len(got))
	errs := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		w, g := float64(want[i]), float64(got[i])
		if math.IsNaN(w) || math.IsNaN(g) {
			continue
		}
		errs = append(errs, math.Abs(g-w))
	}
	if len(errs) == 0 {
		return Report{}
	}
	mean, std := stat.MeanStdDev(errs, nil)
	if len(errs) == 1 {
		std = 0
	}
	return Report{
		Count:   len(errs),
		MeanAbs: mean,
		MaxAbs:  floats.Max(errs),
		StdDev:  std,
	}
}

// RoundTrip quantizes values with q, dequantizes them again and measures the
// loss.
func RoundTrip[E quant.Float](q quant.Quantizer[E], values []E) Report {
	return Measure(values, quant.DequantizeSlice(q, quant.QuantizeSlice(q, values)))
}
