package postprocess

import (
	"github.com/nvr-ai/go-seg/images"
)

// DefaultIoUThreshold is the overlap at or above which a candidate is treated
// as a duplicate of the current winner.
const DefaultIoUThreshold = 0.5

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap threshold for suppression.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold" mapstructure:"iou_threshold"`
	// MaxDetections caps the number of winners; 0 means no cap.
	MaxDetections int `json:"max_detections" yaml:"max_detections" mapstructure:"max_detections"`
}

// ApplyNMS performs greedy, class-agnostic Non-Maximum Suppression.
//
// Each round selects the remaining candidate with the highest score (the
// first one met in a left-to-right scan on ties), finalizes it, and keeps only
// the remaining candidates whose IoU with it is below config.IoUThreshold.
// Candidates at or above the threshold are dropped as duplicates. Rounds
// repeat until nothing remains.
//
// The input does not need to be sorted and is never modified; candidates are
// marked off in a separate slice instead of being removed.
//
// Arguments:
//   - detections: The candidates, in any order.
//   - config: NMS configuration; nil uses DefaultIoUThreshold without a cap.
//
// Returns:
//   - []Detection: The winners in the order they were finalized, which is the
//     descending score of each round's winner.
func ApplyNMS(detections []Detection, config *NMSConfig) []Detection {
	if config == nil {
		config = &NMSConfig{IoUThreshold: DefaultIoUThreshold}
	}

	n := len(detections)
	filtered := make([]Detection, 0, n)
	if n == 0 {
		return filtered
	}

	remaining := make([]bool, n)
	for i := range remaining {
		remaining[i] = true
	}
	left := n

	for left > 0 {
		if config.MaxDetections > 0 && len(filtered) >= config.MaxDetections {
			break
		}

		best := -1
		for i := 0; i < n; i++ {
			if !remaining[i] {
				continue
			}
			if best == -1 || detections[i].Score > detections[best].Score {
				best = i
			}
		}

		anchor := detections[best]
		filtered = append(filtered, anchor)
		remaining[best] = false
		left--

		for j := 0; j < n; j++ {
			if !remaining[j] {
				continue
			}

			// Survive only while overlapping less than the threshold.
			if images.CalculateIoU(anchor.Box, detections[j].Box) >= config.IoUThreshold {
				remaining[j] = false
				left--
			}
		}
	}

	return filtered
}
