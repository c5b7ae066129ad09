// Package postprocess - turns raw YOLO detection/segmentation outputs into
// labelled, de-duplicated detections with optional instance masks.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/classes"
)

// Detection represents a single detection result. Detections are values and
// are never edited after the decoder creates them; suppression only chooses
// which of them survive.
type Detection struct {
	// The confidence score of the detection, the maximum class score.
	Score float32 `json:"score" yaml:"score"`
	// The predicted class of the detection.
	Class classes.OutputClass `json:"class" yaml:"class"`
	// The bounding box, center form, model input units.
	Box images.Box `json:"box" yaml:"box"`
	// MaskWeights holds one coefficient per prototype mask. It is nil for
	// detection-only models or when no prototypes were supplied.
	MaskWeights []float32 `json:"mask_weights,omitempty" yaml:"mask_weights,omitempty"`
}

// String formats the detection for logs.
func (d Detection) String() string {
	r := d.Box.Corners()
	return fmt.Sprintf("%s (%.3f): (%.1f, %.1f), (%.1f, %.1f)",
		d.Class.Name, d.Score, r.X1, r.Y1, r.X2, r.Y2)
}
