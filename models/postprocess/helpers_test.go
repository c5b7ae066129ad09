package postprocess

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/classes"
)

// anchor describes one column of a synthetic detection tensor.
type anchor struct {
	box     images.Box
	scores  []float32
	weights []float32
}

// buildOutput lays anchors out channel-major as a (1, C, A) tensor, the way
// the exported YOLOv8 heads do.
func buildOutput(t *testing.T, numClasses, maskChannels int, anchors ...anchor) Tensor {
	t.Helper()

	channels := 4 + numClasses + maskChannels
	n := len(anchors)
	data := make([]float32, channels*n)

	for a, an := range anchors {
		require.Len(t, an.scores, numClasses, "anchor %d scores", a)
		data[0*n+a] = an.box.X
		data[1*n+a] = an.box.Y
		data[2*n+a] = an.box.W
		data[3*n+a] = an.box.H
		for c, s := range an.scores {
			data[(4+c)*n+a] = s
		}
		if maskChannels > 0 {
			require.Len(t, an.weights, maskChannels, "anchor %d weights", a)
			for k, w := range an.weights {
				data[(4+numClasses+k)*n+a] = w
			}
		}
	}

	out, err := NewTensor(data, 1, channels, n)
	require.NoError(t, err)

	return out
}

// buildPrototypes creates a (1, N, H, W) tensor where prototype c has every
// pixel set to values[c] plus a small per-pixel ramp, so masks differ across
// pixels.
func buildPrototypes(t *testing.T, n, h, w int) Tensor {
	t.Helper()

	data := make([]float32, n*h*w)
	for c := 0; c < n; c++ {
		for p := 0; p < h*w; p++ {
			data[c*h*w+p] = float32(c+1) + float32(p)*0.01
		}
	}

	protos, err := NewTensor(data, 1, n, h, w)
	require.NoError(t, err)

	return protos
}

func threeLabels() *classes.Table {
	return classes.NewTable("person", "bicycle", "car")
}
