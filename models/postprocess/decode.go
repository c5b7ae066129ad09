package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-seg/models/classes"
)

// DefaultScoreThreshold is the minimum class score, exclusive, a candidate
// needs to be emitted.
const DefaultScoreThreshold = 0.5

// Decoder turns a channel x anchor detection tensor into candidate
// detections.
type Decoder struct {
	labels         *classes.Table
	scoreThreshold float32
}

// NewDecoder creates a decoder.
//
// Arguments:
//   - labels: The label table; its length is the number of score channels.
//   - scoreThreshold: Candidates whose best class score is not strictly above
//     this value are dropped.
//
// Returns:
//   - *Decoder: The decoder.
//   - error: ErrEmptyLabels if the table has no classes.
func NewDecoder(labels *classes.Table, scoreThreshold float32) (*Decoder, error) {
	if labels.Len() == 0 {
		return nil, ErrEmptyLabels
	}

	return &Decoder{labels: labels, scoreThreshold: scoreThreshold}, nil
}

// Layout returns the channel partition this decoder expects for the given
// number of mask channels.
func (d *Decoder) Layout(maskChannels int) OutputLayout {
	return OutputLayout{Classes: d.labels.Len(), MaskChannels: maskChannels}
}

// Decode walks every anchor of the tensor and emits one Detection per anchor
// whose best class score exceeds the threshold.
//
// For each anchor the best class is the first maximum over the score
// channels, so on a tie the lowest class index wins. Mask weights are copied
// out of the tensor when maskChannels is positive, so the detections do not
// alias the runtime's output buffer.
//
// Arguments:
//   - out: The detection tensor, (C, A) or (1, C, A).
//   - maskChannels: The number of trailing mask weight channels.
//
// Returns:
//   - []Detection: The candidates in anchor order, empty if none qualify.
//   - error: ErrShapeMismatch if C != 4 + classes + maskChannels, or
//     classes.ErrUnknownClass if a class has no label.
func (d *Decoder) Decode(out Tensor, maskChannels int) ([]Detection, error) {
	if maskChannels < 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "negative mask channel count %d", maskChannels)
	}

	view, err := NewOutputView(out, d.Layout(maskChannels))
	if err != nil {
		return nil, err
	}

	numClasses := d.labels.Len()
	detections := make([]Detection, 0)

	for a := 0; a < view.Anchors(); a++ {
		classID := 0
		score := view.Score(0, a)
		for c := 1; c < numClasses; c++ {
			if s := view.Score(c, a); s > score {
				score = s
				classID = c
			}
		}

		if !(score > d.scoreThreshold) {
			continue
		}

		class, err := d.labels.Class(classID)
		if err != nil {
			return nil, err
		}

		det := Detection{
			Score: score,
			Class: class,
			Box:   view.Box(a),
		}

		if maskChannels > 0 {
			det.MaskWeights = make([]float32, maskChannels)
			for k := range det.MaskWeights {
				det.MaskWeights[k] = view.MaskWeight(k, a)
			}
		}

		detections = append(detections, det)
	}

	return detections, nil
}
