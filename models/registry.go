// Package models - registry for models.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/models/classes"
	"github.com/nvr-ai/go-seg/models/model"
	"github.com/nvr-ai/go-seg/models/postprocess"
	"github.com/nvr-ai/go-seg/models/yolov8"
)

// ErrUnsupportedModel is returned for a model name the registry does not know.
var ErrUnsupportedModel = errors.New("unsupported model")

// Names returns every model name the registry can build.
func Names() []model.Name {
	return []model.Name{model.ModelNameYOLOv8, model.ModelNameYOLOv8Seg}
}

// NewModel creates a new model instance based on the specified model name.
//
// This factory function is the single entry point for model creation,
// routing requests to the model-specific constructors.
//
// Arguments:
//   - args: Configuration parameters specifying the model name and location.
//   - labels: The label table; nil selects the 80 COCO classes the stock
//     exports are trained on.
//   - opts: Pipeline options passed through to the model.
//
// Returns:
//   - model.Model: A fully configured model instance.
//   - error: ErrUnsupportedModel, or an error from the model constructor.
//
// Example:
//
// ```go
//
//	m, err := models.NewModel(model.NewModelArgs{
//	    Name: model.ModelNameYOLOv8Seg,
//	    Path: "/models/yolov8n-seg.onnx",
//	}, nil)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("create model")
//	}
//
// ```
func NewModel(args model.NewModelArgs, labels *classes.Table, opts ...postprocess.Option) (model.Model, error) {
	if labels == nil {
		labels = classes.COCO()
	}

	switch args.Name {
	case model.ModelNameYOLOv8, model.ModelNameYOLOv8Seg:
		m, err := yolov8.NewModel(args, labels, opts...)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedModel, "%q", args.Name)
	}
}
