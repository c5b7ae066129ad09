package postprocess

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models/classes"
)

func TestNewDecoderEmptyLabels(t *testing.T) {
	_, err := NewDecoder(classes.NewTable(), 0.5)
	assert.True(t, errors.Is(err, ErrEmptyLabels))

	_, err = NewDecoder(nil, 0.5)
	assert.True(t, errors.Is(err, ErrEmptyLabels))
}

// TestDecodeEmitsEveryQualifyingAnchor checks anchor order, class choice and
// the copied fields of each candidate.
func TestDecodeEmitsEveryQualifyingAnchor(t *testing.T) {
	out := buildOutput(t, 3, 0,
		anchor{box: images.NewBox(10, 10, 4, 4), scores: []float32{0.1, 0.9, 0.2}},
		anchor{box: images.NewBox(50, 50, 8, 8), scores: []float32{0.2, 0.1, 0.3}},
		anchor{box: images.NewBox(90, 90, 2, 6), scores: []float32{0.1, 0.1, 0.7}},
	)

	dec, err := NewDecoder(threeLabels(), 0.5)
	require.NoError(t, err)

	dets, err := dec.Decode(out, 0)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	assert.Equal(t, "bicycle", dets[0].Class.Name)
	assert.Equal(t, 1, dets[0].Class.Index)
	assert.Equal(t, float32(0.9), dets[0].Score)
	assert.Equal(t, images.NewBox(10, 10, 4, 4), dets[0].Box)
	assert.Nil(t, dets[0].MaskWeights)

	assert.Equal(t, "car", dets[1].Class.Name)
	assert.Equal(t, float32(0.7), dets[1].Score)
	assert.Equal(t, images.NewBox(90, 90, 2, 6), dets[1].Box)
}

// TestDecodeArgmaxTie checks that the lowest class index wins a tie.
func TestDecodeArgmaxTie(t *testing.T) {
	out := buildOutput(t, 3, 0,
		anchor{box: images.NewBox(1, 1, 1, 1), scores: []float32{0.2, 0.8, 0.8}},
		anchor{box: images.NewBox(1, 1, 1, 1), scores: []float32{0.6, 0.6, 0.6}},
	)

	dec, err := NewDecoder(threeLabels(), 0.5)
	require.NoError(t, err)

	dets, err := dec.Decode(out, 0)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, 1, dets[0].Class.Index)
	assert.Equal(t, 0, dets[1].Class.Index)
}

// TestDecodeThresholdIsExclusive checks that a score equal to the threshold
// is dropped.
func TestDecodeThresholdIsExclusive(t *testing.T) {
	out := buildOutput(t, 3, 0,
		anchor{box: images.NewBox(1, 1, 1, 1), scores: []float32{0.5, 0, 0}},
		anchor{box: images.NewBox(1, 1, 1, 1), scores: []float32{0.50001, 0, 0}},
	)

	dec, err := NewDecoder(threeLabels(), 0.5)
	require.NoError(t, err)

	dets, err := dec.Decode(out, 0)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, float32(0.50001), dets[0].Score)
}

// TestDecodeMaskWeights checks that weights are copied out of the tensor.
func TestDecodeMaskWeights(t *testing.T) {
	out := buildOutput(t, 3, 2,
		anchor{box: images.NewBox(1, 1, 1, 1), scores: []float32{0.9, 0, 0}, weights: []float32{0.25, -0.5}},
	)

	dec, err := NewDecoder(threeLabels(), 0.5)
	require.NoError(t, err)

	dets, err := dec.Decode(out, 2)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, []float32{0.25, -0.5}, dets[0].MaskWeights)

	for i := range out.Data {
		out.Data[i] = 0
	}
	assert.Equal(t, []float32{0.25, -0.5}, dets[0].MaskWeights, "weights must not alias the tensor")
}

func TestDecodeShapeMismatch(t *testing.T) {
	dec, err := NewDecoder(threeLabels(), 0.5)
	require.NoError(t, err)

	// 4 + 3 classes + 2 mask channels, decoded as if there were no masks.
	out := buildOutput(t, 3, 2,
		anchor{box: images.NewBox(1, 1, 1, 1), scores: []float32{0.9, 0, 0}, weights: []float32{1, 2}},
	)
	_, err = dec.Decode(out, 0)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = dec.Decode(out, 3)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = dec.Decode(out, -1)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestDecodeZeroAnchors(t *testing.T) {
	out, err := NewTensor(nil, 1, 7, 0)
	require.NoError(t, err)

	dec, err := NewDecoder(threeLabels(), 0.5)
	require.NoError(t, err)

	dets, err := dec.Decode(out, 0)
	require.NoError(t, err)
	assert.NotNil(t, dets)
	assert.Empty(t, dets)
}

// TestDecodeDeterministic checks that repeated calls produce identical
// results.
func TestDecodeDeterministic(t *testing.T) {
	anchors := make([]anchor, 0, 64)
	for i := 0; i < 64; i++ {
		f := float32(i)
		anchors = append(anchors, anchor{
			box:     images.NewBox(f*3, f*2, 5+f/10, 7),
			scores:  []float32{float32(i%7) / 7, float32(i%5) / 5, float32(i%3) / 3},
			weights: []float32{f, -f},
		})
	}
	out := buildOutput(t, 3, 2, anchors...)

	dec, err := NewDecoder(threeLabels(), 0.3)
	require.NoError(t, err)

	first, err := dec.Decode(out, 2)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	for i := 0; i < 5; i++ {
		again, err := dec.Decode(out, 2)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
