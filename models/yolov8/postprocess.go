// Package yolov8 - postprocess YOLOv8 model outputs.
package yolov8

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/models/postprocess"
)

// PostProcess postprocesses the outputs of the YOLOv8 model.
//
// The detection model has a single (1, 4+C, 8400) output. The segmentation
// model adds the (1, 32, 160, 160) prototype tensor; the two may come in
// either order since exporters do not agree on it, the rank 4 one is taken
// as the prototypes.
//
// Arguments:
//   - outputs: The outputs of the model for one image.
//
// Returns:
//   - *postprocess.Output: The detections and, for segmentation, the
//     prototype masks.
//   - error: postprocess.ErrShapeMismatch for a wrong output count or shape.
func (m *YOLOv8) PostProcess(outputs []postprocess.Tensor) (*postprocess.Output, error) {
	in, err := m.Input(outputs)
	if err != nil {
		return nil, err
	}

	return m.pipeline.Detect(in.Output, in.Prototypes)
}

// Input sorts raw model outputs into a pipeline input.
func (m *YOLOv8) Input(outputs []postprocess.Tensor) (postprocess.Input, error) {
	if !m.Segmentation() {
		if len(outputs) != 1 {
			return postprocess.Input{}, errors.Wrapf(postprocess.ErrShapeMismatch,
				"yolov8 expects 1 output, got %d", len(outputs))
		}
		return postprocess.Input{Output: outputs[0]}, nil
	}

	if len(outputs) != 2 {
		return postprocess.Input{}, errors.Wrapf(postprocess.ErrShapeMismatch,
			"yolov8-seg expects 2 outputs, got %d", len(outputs))
	}

	det, protos := outputs[0], outputs[1]
	if len(det.Shape) == 4 && len(protos.Shape) != 4 {
		det, protos = protos, det
	}

	return postprocess.Input{Output: det, Prototypes: &protos}, nil
}
