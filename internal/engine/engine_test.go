package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samcharles93/nibble/internal/backend/cpu"
)

func TestQuantizeScaledScenario(t *testing.T) {
	t.Parallel()

	e := New(nil)
	res, err := e.Quantize(context.Background(), &QuantizeRequest{
		Values: []float64{-7, -3.5, 0, 3.5, 7},
	})
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if res.Device != "cpu/scaled" || res.DType != "f32" {
		t.Fatalf("unexpected target %s %s", res.Device, res.DType)
	}
	if res.Params.Scale != 1 {
		t.Fatalf("expected scale 1, got %v", res.Params.Scale)
	}
	wantCodes := []uint8{1, 4, 8, 12, 15}
	for i, c := range res.Codes {
		if c != wantCodes[i] {
			t.Fatalf("codes = %v, want %v", res.Codes, wantCodes)
		}
	}
	if res.Bytes != 3 {
		t.Fatalf("expected 3 packed bytes, got %d", res.Bytes)
	}
	if len(res.Shape) != 1 || res.Shape[0] != 5 {
		t.Fatalf("expected vector shape, got %v", res.Shape)
	}
	if res.ID == "" {
		t.Fatal("expected tensor id")
	}
}

func TestQuantizeOffsetScenario(t *testing.T) {
	t.Parallel()

	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i)
	}
	res, err := New(nil).Quantize(context.Background(), &QuantizeRequest{
		Values: values,
		Shape:  []int{4, 4},
		Scheme: "asymmetric",
		DType:  "float64",
	})
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if res.Device != "cpu/offset" || res.DType != "f64" {
		t.Fatalf("unexpected target %s %s", res.Device, res.DType)
	}
	for i, v := range res.Restored {
		if int(res.Codes[i]) != i || v != values[i] {
			t.Fatalf("index %d: code %d restored %v", i, res.Codes[i], v)
		}
	}
	if res.Quality.MaxAbs != 0 || res.Quality.Count != 16 {
		t.Fatalf("unexpected quality %+v", res.Quality)
	}
}

func TestQuantizeInvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  QuantizeRequest
	}{
		{"no values", QuantizeRequest{}},
		{"unknown scheme", QuantizeRequest{Values: []float64{1}, Scheme: "q8"}},
		{"unknown dtype", QuantizeRequest{Values: []float64{1}, DType: "f16"}},
		{"shape mismatch", QuantizeRequest{Values: []float64{1, 2, 3}, Shape: []int{2, 2}}},
		{"zero dimension", QuantizeRequest{Values: []float64{1}, Shape: []int{0}}},
		{"all NaN", QuantizeRequest{Values: []float64{math.NaN(), math.NaN()}}},
	}
	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Quantize(context.Background(), &tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestQuantizeHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Quantize(ctx, &QuantizeRequest{Values: []float64{1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDropoutReportsMask(t *testing.T) {
	t.Parallel()

	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i%7 + 1)
	}
	req := &DropoutRequest{Values: values, Prob: 0.3, Seed: 42}
	res, err := New(nil).Dropout(context.Background(), req)
	if err != nil {
		t.Fatalf("Dropout: %v", err)
	}

	mask := cpu.DropoutOp[float32]{Prob: 0.3, Seed: 42}.Mask(len(values))
	dropped := map[int]bool{}
	for _, i := range res.Dropped {
		dropped[i] = true
	}
	for i, d := range mask {
		if d != dropped[i] {
			t.Fatalf("index %d: mask %v, reported %v", i, d, dropped[i])
		}
		if d && res.Output[i] != 0 {
			t.Fatalf("index %d dropped but output %v", i, res.Output[i])
		}
		if !d && res.Output[i] == 0 {
			t.Fatalf("index %d kept but output is zero", i)
		}
	}
	if len(res.Input) != len(values) || res.GradInput != nil {
		t.Fatalf("unexpected result sizes: input %d grad %v", len(res.Input), res.GradInput)
	}

	again, err := New(nil).Dropout(context.Background(), req)
	if err != nil {
		t.Fatalf("Dropout: %v", err)
	}
	for i := range res.Output {
		if res.Output[i] != again.Output[i] {
			t.Fatalf("index %d: same seed produced %v and %v", i, res.Output[i], again.Output[i])
		}
	}
}

func TestDropoutGradient(t *testing.T) {
	t.Parallel()

	n := 64
	values := make([]float64, n)
	grads := make([]float64, n)
	for i := range values {
		values[i] = float64(i%5) - 2
		grads[i] = 1
	}
	res, err := New(nil).Dropout(context.Background(), &DropoutRequest{
		Values:     values,
		Scheme:     "offset",
		DType:      "f64",
		Prob:       0.5,
		Seed:       3,
		GradOutput: grads,
	})
	if err != nil {
		t.Fatalf("Dropout: %v", err)
	}
	if len(res.GradInput) != n {
		t.Fatalf("expected %d gradient values, got %d", n, len(res.GradInput))
	}
	dropped := map[int]bool{}
	for _, i := range res.Dropped {
		dropped[i] = true
	}
	for i, g := range res.GradInput {
		want := 2.0
		if dropped[i] {
			want = 0
		}
		if math.Abs(g-want) > 1e-9 {
			t.Fatalf("index %d: expected gradient %v, got %v", i, want, g)
		}
	}
}

func TestDropoutInvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  DropoutRequest
	}{
		{"negative p", DropoutRequest{Values: []float64{1, 2}, Prob: -0.1}},
		{"p above one", DropoutRequest{Values: []float64{1, 2}, Prob: 1.5}},
		{"NaN p", DropoutRequest{Values: []float64{1, 2}, Prob: math.NaN()}},
		{"grad length", DropoutRequest{Values: []float64{1, 2}, Prob: 0.5, GradOutput: []float64{1}}},
		{"empty", DropoutRequest{Prob: 0.5}},
	}
	e := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Dropout(context.Background(), &tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestRoundTripBothSchemes(t *testing.T) {
	t.Parallel()

	res, err := New(nil).RoundTrip(context.Background(), &RoundTripRequest{Rows: 32, Cols: 64, Seed: 1})
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if len(res) != 2 || res[0].Device != "cpu/scaled" || res[1].Device != "cpu/offset" {
		t.Fatalf("unexpected devices: %+v", res)
	}
	for _, r := range res {
		if r.Quality.Count != 32*64 || r.Bytes != 32*64/2 {
			t.Fatalf("%s: unexpected report %+v bytes %d", r.Device, r.Quality, r.Bytes)
		}
	}
	if res[1].Quality.MaxAbs >= res[0].Quality.MaxAbs {
		t.Fatalf("offset should beat scaled on a shifted sample: %v vs %v",
			res[1].Quality.MaxAbs, res[0].Quality.MaxAbs)
	}

	if _, err := New(nil).RoundTrip(context.Background(), &RoundTripRequest{Rows: 0, Cols: 4}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestDropoutGradientMixedSignsUnderOffset(t *testing.T) {
	t.Parallel()

	res, err := New(nil).Dropout(context.Background(), &DropoutRequest{
		Values:     []float64{1, 2, 3, 4, 5, 6, 7, 8},
		Scheme:     "offset",
		DType:      "f64",
		Prob:       0.5,
		Seed:       3,
		GradOutput: []float64{-1, 1.7, 0.3, -0.4, 2, -1.2, 0.9, 1.1},
	})
	if err != nil {
		t.Fatalf("Dropout: %v", err)
	}
	if len(res.Dropped) == 0 {
		t.Fatal("expected some dropped elements for this seed")
	}
	for _, i := range res.Dropped {
		if res.GradInput[i] != 0 {
			t.Fatalf("index %d dropped but gradient %v", i, res.GradInput[i])
		}
	}
}

func TestShapeLimits(t *testing.T) {
	t.Parallel()

	e := New(nil)
	tests := []struct {
		name string
		run  func() error
	}{
		{"roundtrip overflow", func() error {
			_, err := e.RoundTrip(context.Background(), &RoundTripRequest{Rows: 1 << 31, Cols: 1 << 31})
			return err
		}},
		{"roundtrip too large", func() error {
			_, err := e.RoundTrip(context.Background(), &RoundTripRequest{Rows: 100000, Cols: 100000})
			return err
		}},
		{"quantize shape overflow", func() error {
			_, err := e.Quantize(context.Background(), &QuantizeRequest{
				Values: []float64{1, 2},
				Shape:  []int{1 << 40, 1 << 40, 2},
			})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestNonFiniteInputsRejected(t *testing.T) {
	t.Parallel()

	e := New(nil)
	tests := []struct {
		name string
		run  func() error
	}{
		{"beyond float32", func() error {
			_, err := e.Quantize(context.Background(), &QuantizeRequest{Values: []float64{1, 2, 1e39}})
			return err
		}},
		{"offset span overflows float32", func() error {
			_, err := e.Quantize(context.Background(), &QuantizeRequest{
				Values: []float64{-3e38, 3e38},
				Scheme: "offset",
			})
			return err
		}},
		{"infinite float64", func() error {
			_, err := e.Quantize(context.Background(), &QuantizeRequest{Values: []float64{math.Inf(-1)}, DType: "f64"})
			return err
		}},
		{"grad output beyond float32", func() error {
			_, err := e.Dropout(context.Background(), &DropoutRequest{
				Values:     []float64{1, 2},
				Prob:       0.5,
				GradOutput: []float64{1, 1e40},
			})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}

	res, err := e.Quantize(context.Background(), &QuantizeRequest{Values: []float64{1, 2, 1e39}, DType: "f64"})
	if err != nil {
		t.Fatalf("f64 holds 1e39: %v", err)
	}
	for i, v := range res.Restored {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d restored as %v", i, v)
		}
	}
}

func TestRoundTripErrorBounds(t *testing.T) {
	t.Parallel()

	for _, dtype := range []string{"f32", "f64"} {
		t.Run(dtype, func(t *testing.T) {
			res, err := New(nil).RoundTrip(context.Background(), &RoundTripRequest{Rows: 320, Cols: 640, Seed: 0, DType: dtype})
			if err != nil {
				t.Fatalf("RoundTrip: %v", err)
			}
			bounds := map[string]struct{ mean, max float64 }{
				"cpu/scaled": {0.5, 1.0},
				"cpu/offset": {0.05, 0.1},
			}
			for _, r := range res {
				b, ok := bounds[r.Device]
				if !ok {
					t.Fatalf("unexpected device %s", r.Device)
				}
				if r.Quality.MeanAbs >= b.mean || r.Quality.MaxAbs >= b.max {
					t.Fatalf("%s: mean %v max %v, want below %v and %v",
						r.Device, r.Quality.MeanAbs, r.Quality.MaxAbs, b.mean, b.max)
				}
			}
		})
	}
}
