// Package model - Model precision options.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
package model

import "strings"

// Precision is the numeric precision the model was exported with. It selects
// how output tensors are read back and is passed to execution providers that
// accept a precision hint.
type Precision string

const (
	// PrecisionFP32 is 32-bit floating point, the default export.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 is 16-bit floating point (exported with half=True).
	PrecisionFP16 Precision = "FP16"
)

// ParsePrecision maps a config string onto a Precision. Unknown or empty
// values fall back to FP32.
func ParsePrecision(s string) Precision {
	switch Precision(strings.ToUpper(s)) {
	case PrecisionFP16:
		return PrecisionFP16
	default:
		return PrecisionFP32
	}
}
