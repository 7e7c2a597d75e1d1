package engine

import (
	"github.com/samcharles93/nibble/internal/quality"
	"github.com/samcharles93/nibble/pkg/quant"
)

// QuantizeRequest asks for values to be stored with a half-byte scheme.
type QuantizeRequest struct {
	Values []float64 `json:"values"`
	Shape  []int     `json:"shape,omitempty"`
	Scheme string    `json:"scheme,omitempty"`
	DType  string    `json:"dtype,omitempty"`
}

type QuantizeResult struct {
	ID       string         `json:"id"`
	Device   string         `json:"device"`
	DType    string         `json:"dtype"`
	Shape    []int          `json:"shape"`
	Params   quant.Params   `json:"params"`
	Codes    []uint8        `json:"codes"`
	Restored []float64      `json:"restored"`
	Bytes    int            `json:"bytes"`
	Quality  quality.Report `json:"quality"`
}

// DropoutRequest runs dropout over quantized values. When GradOutput is set
// the backward kernel also runs and GradInput is returned.
type DropoutRequest struct {
	Values     []float64 `json:"values"`
	Shape      []int     `json:"shape,omitempty"`
	Scheme     string    `json:"scheme,omitempty"`
	DType      string    `json:"dtype,omitempty"`
	Prob       float64   `json:"p"`
	Seed       uint64    `json:"seed"`
	GradOutput []float64 `json:"grad_output,omitempty"`
}

type DropoutResult struct {
	ID        string       `json:"id"`
	Device    string       `json:"device"`
	DType     string       `json:"dtype"`
	Shape     []int        `json:"shape"`
	Params    quant.Params `json:"params"`
	Input     []float64    `json:"input"`
	Output    []float64    `json:"output"`
	// Dropped lists the masked indices. Under an offset scheme whose range
	// excludes zero, Output at these indices is the range minimum, not 0.
	Dropped   []int        `json:"dropped"`
	GradInput []float64    `json:"grad_input,omitempty"`
}

// RoundTripRequest measures both schemes over a generated rows x cols
// sample.
type RoundTripRequest struct {
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Seed  uint64 `json:"seed"`
	DType string `json:"dtype,omitempty"`
}

type RoundTripResult struct {
	Device  string         `json:"device"`
	DType   string         `json:"dtype"`
	Params  quant.Params   `json:"params"`
	Bytes   int            `json:"bytes"`
	Quality quality.Report `json:"quality"`
}
