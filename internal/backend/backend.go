// Package backend names the quantized devices and normalizes user supplied
// scheme and element type names. The device implementations live in
// subpackages.
package backend

import (
	"fmt"
	"strings"

	"github.com/samcharles93/nibble/pkg/quant"
)

const CPU = "cpu"

const (
	Scaled = string(quant.KindScaled)
	Offset = string(quant.KindOffset)
)

const (
	F32 = "f32"
	F64 = "f64"
)

// Normalize resolves a scheme name or alias. Empty selects Scaled.
func Normalize(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return Scaled, nil
	}
	kind, err := quant.ParseKind(name)
	if err != nil {
		return "", err
	}
	return string(kind), nil
}

// NormalizeDType resolves an element type name. Empty selects F32.
func NormalizeDType(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", F32, "float32":
		return F32, nil
	case F64, "float64":
		return F64, nil
	default:
		return "", fmt.Errorf("unknown dtype %q (expected f32 or f64)", name)
	}
}

// DeviceName is the name a device reports for a scheme.
func DeviceName(scheme string) string {
	return CPU + "/" + scheme
}

// Available returns a comma-separated list of available devices.
func Available() string {
	return strings.Join([]string{DeviceName(Scaled), DeviceName(Offset)}, ",")
}
