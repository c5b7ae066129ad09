// Package model - Definitions shared by every model implementation.
package model

import (
	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Family is the family of models.
type Family string

const (
	// ModelFamilyYOLO is the Ultralytics YOLO model family: anchor-free heads
	// emitting a channel x anchor tensor with no objectness channel.
	ModelFamilyYOLO Family = "yolo"
)

// Name is the unique identifier of a model.
type Name string

const (
	// ModelNameYOLOv8 is the YOLOv8 detection model (4 + classes channels).
	ModelNameYOLOv8 Name = "yolov8"
	// ModelNameYOLOv8Seg is the YOLOv8 instance segmentation model
	// (4 + classes + 32 channels plus a prototype output).
	ModelNameYOLOv8Seg Name = "yolov8-seg"
)

// DefaultInputSize is the square input resolution of the stock exports.
const DefaultInputSize = 640

// Options describes a configured model.
type Options struct {
	Name        Name               `json:"name" yaml:"name"`
	Family      Family             `json:"family" yaml:"family"`
	Path        string             `json:"path" yaml:"path"`
	Inputs      []string           `json:"inputs" yaml:"inputs"`
	Outputs     []string           `json:"outputs" yaml:"outputs"`
	InputWidth  int                `json:"input_width" yaml:"input_width"`
	InputHeight int                `json:"input_height" yaml:"input_height"`
	Precision   Precision          `json:"precision" yaml:"precision"`
	Postprocess postprocess.Config `json:"postprocess" yaml:"postprocess"`
}

// Model turns the raw outputs of one inference into detections.
type Model interface {
	// Options returns the model configuration.
	Options() Options
	// PostProcess decodes the outputs of one image, in the order of
	// Options().Outputs.
	PostProcess(outputs []postprocess.Tensor) (*postprocess.Output, error)
}

// NewModelArgs is the arguments for creating a new model. Zero values are
// replaced by the model's defaults, except inside Postprocess where 0 is a
// valid threshold: a nil Postprocess selects postprocess.DefaultConfig and a
// non-nil one is used as given.
type NewModelArgs struct {
	Name        Name               `json:"name" yaml:"name" mapstructure:"name"`
	Family      Family             `json:"family" yaml:"family" mapstructure:"family"`
	Path        string             `json:"path" yaml:"path" mapstructure:"path"`
	Inputs      []string           `json:"inputs" yaml:"inputs" mapstructure:"inputs"`
	Outputs     []string           `json:"outputs" yaml:"outputs" mapstructure:"outputs"`
	InputWidth  int                `json:"input_width" yaml:"input_width" mapstructure:"input_width"`
	InputHeight int                `json:"input_height" yaml:"input_height" mapstructure:"input_height"`
	Precision   Precision          `json:"precision" yaml:"precision" mapstructure:"precision"`
	Postprocess *postprocess.Config `json:"postprocess,omitempty" yaml:"postprocess,omitempty" mapstructure:"postprocess"`
}
