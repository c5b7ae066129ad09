// Package yolov8 - YOLOv8 detection and instance segmentation models.
package yolov8

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/models/classes"
	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// MaskChannels is the number of prototype masks of the YOLOv8-seg head.
const MaskChannels = 32

// YOLOv8 is the instance of a YOLOv8 or YOLOv8-seg model.
type YOLOv8 struct {
	options  model.Options
	pipeline *postprocess.Pipeline
}

// NewModel creates a new model.
//
// Arguments:
//   - args: The arguments for creating a new model; Name selects detection or
//     segmentation.
//   - labels: The label table of the export.
//   - opts: Pipeline options such as a logger or metrics observer.
//
// Returns:
//   - *YOLOv8: The model.
//   - error: An error if the name is not a YOLOv8 variant or the pipeline
//     cannot be built.
func NewModel(args model.NewModelArgs, labels *classes.Table, opts ...postprocess.Option) (*YOLOv8, error) {
	options := model.Options{
		Name:        args.Name,
		Family:      model.ModelFamilyYOLO,
		Path:        args.Path,
		Inputs:      args.Inputs,
		Outputs:     args.Outputs,
		InputWidth:  args.InputWidth,
		InputHeight: args.InputHeight,
		Precision:   args.Precision,
		Postprocess: postprocess.DefaultConfig(),
	}
	if args.Postprocess != nil {
		options.Postprocess = *args.Postprocess
	}

	switch args.Name {
	case model.ModelNameYOLOv8:
		options.Postprocess.MaskChannels = 0
		if len(options.Outputs) == 0 {
			options.Outputs = []string{"output0"}
		}
	case model.ModelNameYOLOv8Seg:
		if options.Postprocess.MaskChannels == 0 {
			options.Postprocess.MaskChannels = MaskChannels
		}
		if len(options.Outputs) == 0 {
			options.Outputs = []string{"output0", "output1"}
		}
	default:
		return nil, errors.Errorf("yolov8: unsupported model name %q", args.Name)
	}

	if len(options.Inputs) == 0 {
		options.Inputs = []string{"images"}
	}
	if options.InputWidth == 0 {
		options.InputWidth = model.DefaultInputSize
	}
	if options.InputHeight == 0 {
		options.InputHeight = model.DefaultInputSize
	}
	if options.Precision == "" {
		options.Precision = model.PrecisionFP32
	}

	pipeline, err := postprocess.NewPipeline(labels, options.Postprocess, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "yolov8: build pipeline")
	}

	return &YOLOv8{
		options:  options,
		pipeline: pipeline,
	}, nil
}

// Options returns the options for the YOLOv8 model.
func (m *YOLOv8) Options() model.Options {
	return m.options
}

// Pipeline returns the post-processing pipeline, for batch use.
func (m *YOLOv8) Pipeline() *postprocess.Pipeline {
	return m.pipeline
}

// Segmentation reports whether the model has a prototype output.
func (m *YOLOv8) Segmentation() bool {
	return m.options.Name == model.ModelNameYOLOv8Seg
}
