package quant

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestScaledQuantScenario(t *testing.T) {
	t.Parallel()

	q, err := NewScaledQuant([]float32{-4, 2, 7})
	if err != nil {
		t.Fatalf("NewScaledQuant: %v", err)
	}
	if q.Scale() != 1 {
		t.Fatalf("expected scale 1, got %v", q.Scale())
	}
	if c := q.Quantize(7).Uint8(); c != 15 {
		t.Fatalf("quantize(7): expected 15, got %d", c)
	}
	if c := q.Quantize(-4).Uint8(); c != 4 {
		t.Fatalf("quantize(-4): expected 4, got %d", c)
	}
	if v := q.Dequantize(MustHalfByte(4)); v != -4 {
		t.Fatalf("dequantize(4): expected -4, got %v", v)
	}
}

func TestScaledQuantUsesLargestMagnitude(t *testing.T) {
	t.Parallel()

	q, err := NewScaledQuant([]float64{-14, 1, 3.5})
	if err != nil {
		t.Fatalf("NewScaledQuant: %v", err)
	}
	if q.Scale() != 2 {
		t.Fatalf("expected scale 2, got %v", q.Scale())
	}
	if c := q.Quantize(-14).Uint8(); c != 1 {
		t.Fatalf("quantize(-14): expected 1, got %d", c)
	}
}

func TestOffsetQuantScenario(t *testing.T) {
	t.Parallel()

	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i)
	}
	q, err := NewOffsetQuant(values)
	if err != nil {
		t.Fatalf("NewOffsetQuant: %v", err)
	}
	if q.Scale() != 1 || q.Offset() != 0 {
		t.Fatalf("expected scale 1 offset 0, got %v %v", q.Scale(), q.Offset())
	}
	if c := q.Quantize(7).Uint8(); c != 7 {
		t.Fatalf("quantize(7): expected 7, got %d", c)
	}
	if v := q.Dequantize(MustHalfByte(7)); v != 7 {
		t.Fatalf("dequantize(7): expected 7, got %v", v)
	}
}

func TestFitSkipsNaN(t *testing.T) {
	t.Parallel()
	nan := float32(math.NaN())

	o, err := NewOffsetQuant([]float32{nan, -3, nan, 12, nan})
	if err != nil {
		t.Fatalf("NewOffsetQuant: %v", err)
	}
	if o.Offset() != -3 || o.Scale() != 1 {
		t.Fatalf("expected offset -3 scale 1, got %v %v", o.Offset(), o.Scale())
	}

	s, err := NewScaledQuant([]float32{nan, -7, 3})
	if err != nil {
		t.Fatalf("NewScaledQuant: %v", err)
	}
	if s.Scale() != 1 {
		t.Fatalf("expected scale 1, got %v", s.Scale())
	}
}

func TestFitEmptySample(t *testing.T) {
	t.Parallel()
	nan := math.NaN()

	tests := []struct {
		name   string
		values []float64
	}{
		{"nil", nil},
		{"empty", []float64{}},
		{"all nan", []float64{nan, nan}},
	}
	for _, tc := range tests {
		if _, err := NewScaledQuant(tc.values); !errors.Is(err, ErrEmptySample) {
			t.Errorf("scaled %s: expected ErrEmptySample, got %v", tc.name, err)
		}
		if _, err := NewOffsetQuant(tc.values); !errors.Is(err, ErrEmptySample) {
			t.Errorf("offset %s: expected ErrEmptySample, got %v", tc.name, err)
		}
	}
}

func TestConstantSampleIsFinite(t *testing.T) {
	t.Parallel()

	constants := []float32{0, 2.5, -1}
	for _, c := range constants {
		sample := []float32{c, c, c, c}
		s, err := NewScaledQuant(sample)
		if err != nil {
			t.Fatalf("NewScaledQuant: %v", err)
		}
		o, err := NewOffsetQuant(sample)
		if err != nil {
			t.Fatalf("NewOffsetQuant: %v", err)
		}
		for _, v := range []float32{c, 0, 100, -100} {
			for _, q := range []Quantizer[float32]{s, o} {
				code := q.Quantize(v)
				got := q.Dequantize(code)
				if math.IsNaN(float64(got)) || math.IsInf(float64(got), 0) {
					t.Fatalf("%s constant %v: quantize(%v) round trip not finite: %v", q.Name(), c, v, got)
				}
			}
		}
	}

	// An all-zero sample maps every value to the zero code.
	z, _ := NewScaledQuant([]float64{0, 0})
	if c := z.Quantize(42).Uint8(); c != 8 {
		t.Fatalf("zero scale: expected code 8, got %d", c)
	}
	o, _ := NewOffsetQuant([]float64{3, 3})
	if c := o.Quantize(42).Uint8(); c != 0 {
		t.Fatalf("zero scale offset: expected code 0, got %d", c)
	}
	if v := o.Dequantize(MustHalfByte(0)); v != 3 {
		t.Fatalf("zero scale offset: expected 3, got %v", v)
	}
}

func TestQuantizeAlwaysInRange(t *testing.T) {
	t.Parallel()

	s, _ := NewScaledQuant([]float64{-1, 1})
	o, _ := NewOffsetQuant([]float64{-1, 1})
	inputs := []float64{
		0, 1, -1, 1e9, -1e9, math.Inf(1), math.Inf(-1), math.NaN(),
		math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64,
	}
	rng := rand.New(rand.NewSource(3))
	for range 1000 {
		inputs = append(inputs, (rng.Float64()-0.5)*100)
	}
	for _, v := range inputs {
		for _, q := range []Quantizer[float64]{s, o} {
			if c := q.Quantize(v).Uint8(); c > 15 {
				t.Fatalf("%s quantize(%v) out of range: %d", q.Name(), v, c)
			}
		}
	}
	if c := s.Quantize(math.NaN()).Uint8(); c != 8 {
		t.Fatalf("scaled NaN: expected code 8, got %d", c)
	}
	if c := o.Quantize(math.NaN()).Uint8(); c != 0 {
		t.Fatalf("offset NaN: expected code 0, got %d", c)
	}
}

func TestRoundTripBound(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(11))
	values := make([]float32, 4096)
	for i := range values {
		values[i] = float32(rng.Float64()*10 - 4)
	}

	s, err := NewScaledQuant(values)
	if err != nil {
		t.Fatalf("NewScaledQuant: %v", err)
	}
	o, err := NewOffsetQuant(values)
	if err != nil {
		t.Fatalf("NewOffsetQuant: %v", err)
	}

	tests := []struct {
		q     Quantizer[float32]
		scale float32
	}{
		{s, s.Scale()},
		{o, o.Scale()},
	}
	for _, tc := range tests {
		bound := tc.scale/2 + 1e-5
		for _, v := range values {
			got := tc.q.Dequantize(tc.q.Quantize(v))
			if diff := float32(math.Abs(float64(got - v))); diff > bound {
				t.Fatalf("%s: |dequantize(quantize(%v)) - v| = %v exceeds %v", tc.q.Name(), v, diff, bound)
			}
		}
	}
}

func TestGridPointsRoundTripExactly(t *testing.T) {
	t.Parallel()

	s, _ := NewScaledQuant([]float64{-3.5, 3.5})
	o, _ := NewOffsetQuant([]float64{-2, 5.5})
	for c := uint8(0); c < 16; c++ {
		code := MustHalfByte(c)
		for _, q := range []Quantizer[float64]{s, o} {
			if got := q.Quantize(q.Dequantize(code)); got != code {
				t.Fatalf("%s: grid code %d round tripped to %d", q.Name(), c, got.Uint8())
			}
		}
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{"scaled", KindScaled, false},
		{"Q4_0", KindScaled, false},
		{" symmetric ", KindScaled, false},
		{"offset", KindOffset, false},
		{"q4_1", KindOffset, false},
		{"asymmetric", KindOffset, false},
		{"q8_0", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := ParseKind(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil || got != tc.expected {
			t.Errorf("ParseKind(%q): expected %v, got %v (%v)", tc.input, tc.expected, got, err)
		}
	}
}

func TestSliceHelpers(t *testing.T) {
	t.Parallel()

	values := []float64{0, 1, 2, 15}
	o, _ := NewOffsetQuant(values)
	codes := QuantizeSlice[float64](o, values)
	back := DequantizeSlice[float64](o, codes)
	for i := range values {
		if back[i] != values[i] {
			t.Fatalf("index %d: expected %v, got %v", i, values[i], back[i])
		}
	}
	if p := o.Params(); p.Scale != 1 || p.Offset != 0 {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestFitZeroPlacesZeroOnGrid(t *testing.T) {
	t.Parallel()

	samples := [][]float64{
		{-1, 3.4, 0.6, -0.8, 4, -2.4, 1.8, 2.2},
		{-0.3, 0.7},
		{5, 9},
		{-9, -5},
		{0},
	}
	for _, sample := range samples {
		o, err := OffsetQuant[float64]{}.FitZero(sample)
		if err != nil {
			t.Fatalf("offset FitZero(%v): %v", sample, err)
		}
		if got := o.Dequantize(o.Quantize(0)); got != 0 {
			t.Fatalf("offset FitZero(%v): zero restored as %v", sample, got)
		}
		for _, v := range sample {
			if got := o.Dequantize(o.Quantize(v)); math.Abs(got-v) > o.Scale()/2+1e-12 {
				t.Fatalf("offset FitZero(%v): %v restored as %v", sample, v, got)
			}
		}

		s, err := ScaledQuant[float32]{}.FitZero([]float32{float32(sample[0])})
		if err != nil {
			t.Fatalf("scaled FitZero: %v", err)
		}
		if got := s.Dequantize(s.Quantize(0)); got != 0 {
			t.Fatalf("scaled FitZero: zero restored as %v", got)
		}
	}
}

func TestFitRejectsOverflowingRange(t *testing.T) {
	t.Parallel()

	inf := float32(math.Inf(1))
	if _, err := NewScaledQuant([]float32{1, 2, inf}); !errors.Is(err, ErrNonFiniteScale) {
		t.Fatalf("scaled: expected ErrNonFiniteScale, got %v", err)
	}
	if _, err := NewOffsetQuant([]float32{1, inf}); !errors.Is(err, ErrNonFiniteScale) {
		t.Fatalf("offset: expected ErrNonFiniteScale, got %v", err)
	}
	// Both ends are finite but their difference overflows.
	if _, err := NewOffsetQuant([]float32{-math.MaxFloat32, math.MaxFloat32}); !errors.Is(err, ErrNonFiniteScale) {
		t.Fatalf("offset span: expected ErrNonFiniteScale, got %v", err)
	}
}
