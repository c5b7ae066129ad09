package providers

import (
	"strconv"

	"github.com/nvr-ai/go-seg/models/model"
)

// OpenVINOOptions contains arguments for the OpenVINO provider. Zero values
// keep the provider defaults.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// The accelerator hardware type, e.g. CPU, GPU or NPU.
	DeviceType string `json:"device_type" yaml:"device_type" mapstructure:"device_type"`
	// Inference precision; FP32 and FP16 are accepted on every device.
	Precision model.Precision `json:"precision" yaml:"precision" mapstructure:"precision"`
	// Overrides the default number of threads.
	NumOfThreads int `json:"num_of_threads" yaml:"num_of_threads" mapstructure:"num_of_threads"`
	// Overrides the default number of streams.
	NumStreams int `json:"num_streams" yaml:"num_streams" mapstructure:"num_streams"`
	// Directory for compiled model blobs.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" mapstructure:"cache_dir"`
	// Rewrite dynamic shaped models to static shape at runtime.
	DisableDynamicShapes bool `json:"disable_dynamic_shapes" yaml:"disable_dynamic_shapes" mapstructure:"disable_dynamic_shapes"`
}

// Map converts the options into the key/value form onnxruntime expects.
func (o OpenVINOOptions) Map() map[string]string {
	m := map[string]string{}
	if o.DeviceType != "" {
		m["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		m["precision"] = string(o.Precision)
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		m["num_streams"] = strconv.Itoa(o.NumStreams)
	}
	if o.CacheDir != "" {
		m["cache_dir"] = o.CacheDir
	}
	if o.DisableDynamicShapes {
		m["disable_dynamic_shapes"] = "true"
	}
	return m
}
