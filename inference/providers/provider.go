// Package providers - Execution provider selection for onnxruntime sessions.
package providers

import (
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Backend identifies an onnxruntime execution provider.
type Backend string

const (
	// CPUBackend runs on the default CPU provider.
	CPUBackend Backend = "cpu"
	// CUDABackend uses NVIDIA CUDA for GPU acceleration.
	CUDABackend Backend = "cuda"
	// CoreMLBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLBackend Backend = "coreml"
	// OpenVINOBackend uses Intel OpenVINO for inference optimization.
	OpenVINOBackend Backend = "openvino"
)

// ErrUnsupportedBackend is returned for an unknown backend name.
var ErrUnsupportedBackend = errors.New("unsupported execution provider")

// Backends lists every supported backend.
var Backends = []Backend{CPUBackend, CUDABackend, CoreMLBackend, OpenVINOBackend}

// ParseBackend maps a config string onto a Backend. The empty string selects
// the CPU.
func ParseBackend(s string) (Backend, error) {
	if s == "" {
		return CPUBackend, nil
	}
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedBackend, "%q", s)
}

// Config selects and tunes the execution provider of a session.
type Config struct {
	// Backend is the execution provider; empty means CPU.
	Backend Backend `json:"backend" yaml:"backend" mapstructure:"backend"`
	// IntraOpThreads sets threads for parallelizing ops; 0 keeps the
	// onnxruntime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads" mapstructure:"intra_op_threads"`
	// InterOpThreads sets threads for parallelizing independent ops; 0 keeps
	// the onnxruntime default.
	InterOpThreads int `json:"inter_op_threads" yaml:"inter_op_threads" mapstructure:"inter_op_threads"`

	CUDA     CUDAOptions     `json:"cuda" yaml:"cuda" mapstructure:"cuda"`
	CoreML   CoreMLOptions   `json:"coreml" yaml:"coreml" mapstructure:"coreml"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino" mapstructure:"openvino"`
}

// DefaultConfig returns a CPU configuration with onnxruntime's thread
// defaults.
func DefaultConfig() Config {
	return Config{Backend: CPUBackend}
}

// SessionOptions creates onnxruntime session options with the configured
// execution provider appended. The caller owns the options and must Destroy
// them once the session is created.
//
// Returns:
//   - *ort.SessionOptions: The session options.
//   - error: An error if the options cannot be created or the provider is
//     not available in the loaded onnxruntime library.
func (c Config) SessionOptions() (*ort.SessionOptions, error) {
	backend, err := ParseBackend(string(c.Backend))
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create session options")
	}

	if err := c.apply(options, backend); err != nil {
		options.Destroy()
		return nil, err
	}

	return options, nil
}

func (c Config) apply(options *ort.SessionOptions, backend Backend) error {
	if c.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(c.IntraOpThreads); err != nil {
			return errors.Wrap(err, "set intra-op threads")
		}
	}
	if c.InterOpThreads > 0 {
		if err := options.SetInterOpNumThreads(c.InterOpThreads); err != nil {
			return errors.Wrap(err, "set inter-op threads")
		}
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}

	switch backend {
	case CUDABackend:
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "create CUDA provider options")
		}
		defer cuda.Destroy()

		if err := cuda.Update(c.CUDA.Map()); err != nil {
			return errors.Wrap(err, "update CUDA provider options")
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "enable CUDA")
		}
	case CoreMLBackend:
		if err := options.AppendExecutionProviderCoreML(c.CoreML.Flags()); err != nil {
			return errors.Wrap(err, "enable CoreML")
		}
	case OpenVINOBackend:
		if err := options.AppendExecutionProviderOpenVINO(c.OpenVINO.Map()); err != nil {
			return errors.Wrap(err, "enable OpenVINO")
		}
	}

	return nil
}
