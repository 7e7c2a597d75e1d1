package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// inputFile is the object form accepted by --input.
type inputFile struct {
	Values []float64 `json:"values"`
	Shape  []int     `json:"shape"`
}

// loadInput resolves the values and shape a command operates on. Exactly one
// of csv and path must be set; an explicit shape overrides one read from the
// file.
func loadInput(csv, path, shape string) ([]float64, []int, error) {
	var (
		values []float64
		dims   []int
		err    error
	)
	switch {
	case csv != "" && path != "":
		return nil, nil, fmt.Errorf("--values and --input are mutually exclusive")
	case csv != "":
		values, err = parseValues(csv)
	case path != "":
		values, dims, err = readInputFile(path)
	default:
		return nil, nil, fmt.Errorf("one of --values or --input is required")
	}
	if err != nil {
		return nil, nil, err
	}
	if shape != "" {
		if dims, err = parseShape(shape); err != nil {
			return nil, nil, err
		}
	}
	return values, dims, nil
}

func parseValues(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", f, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no values given")
	}
	return out, nil
}

// parseShape accepts "4x8", "4,8" or "4 8".
func parseShape(s string) ([]int, error) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == 'x' || r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty shape %q", s)
	}
	dims := make([]int, len(fields))
	for i, f := range fields {
		d, err := strconv.Atoi(f)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid shape %q", s)
		}
		dims[i] = d
	}
	return dims, nil
}

func readInputFile(path string) ([]float64, []int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return decodeInput(data)
}

func decodeInput(data []byte) ([]float64, []int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var values []float64
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, nil, fmt.Errorf("decode values: %w", err)
		}
		return values, nil, nil
	}
	var in inputFile
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return nil, nil, fmt.Errorf("decode input: %w", err)
	}
	return in.Values, in.Shape, nil
}
