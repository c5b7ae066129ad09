package postprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrototypeMaskSet(t *testing.T) {
	set, err := NewPrototypeMaskSet(buildPrototypes(t, 4, 3, 5))
	require.NoError(t, err)

	assert.Equal(t, 4, set.Channels())
	assert.Equal(t, 3, set.Height())
	assert.Equal(t, 5, set.Width())
	assert.InDelta(t, 2+0.07, set.At(1, 1, 2), 1e-6)
}

func TestNewPrototypeMaskSetShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		shape []int
	}{
		{"rank 3", []int{4, 3, 5}},
		{"rank 5", []int{1, 1, 4, 3, 5}},
		{"batch of two", []int{2, 2, 3, 5}},
		{"empty channel", []int{1, 0, 3, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 1
			for _, d := range tt.shape {
				n *= d
			}
			protos, err := NewTensor(make([]float32, n), tt.shape...)
			require.NoError(t, err)

			_, err = NewPrototypeMaskSet(protos)
			assert.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
		})
	}
}

// TestWeightedMaskOneHot checks that a one-hot weight vector selects a
// single prototype.
func TestWeightedMaskOneHot(t *testing.T) {
	set, err := NewPrototypeMaskSet(buildPrototypes(t, 4, 3, 5))
	require.NoError(t, err)

	for c := 0; c < set.Channels(); c++ {
		weights := make([]float32, set.Channels())
		weights[c] = 1

		m, err := set.WeightedMask(weights)
		require.NoError(t, err)
		require.Equal(t, 3, m.Height)
		require.Equal(t, 5, m.Width)

		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				assert.InDelta(t, set.At(c, y, x), m.At(y, x), 1e-6)
			}
		}
	}
}

// TestWeightedMaskLinear checks mask(w1 + w2) == mask(w1) + mask(w2).
func TestWeightedMaskLinear(t *testing.T) {
	set, err := NewPrototypeMaskSet(buildPrototypes(t, 4, 6, 6))
	require.NoError(t, err)

	w1 := []float32{0.5, -1.25, 2, 0.125}
	w2 := []float32{-3, 0.75, 0.5, 1}
	sum := make([]float32, len(w1))
	for i := range w1 {
		sum[i] = w1[i] + w2[i]
	}

	m1, err := set.WeightedMask(w1)
	require.NoError(t, err)
	m2, err := set.WeightedMask(w2)
	require.NoError(t, err)
	ms, err := set.WeightedMask(sum)
	require.NoError(t, err)

	for i := range ms.Data {
		assert.InDelta(t, m1.Data[i]+m2.Data[i], ms.Data[i], 1e-4, "pixel %d", i)
	}
}

func TestWeightedMaskWeightCount(t *testing.T) {
	set, err := NewPrototypeMaskSet(buildPrototypes(t, 4, 2, 2))
	require.NoError(t, err)

	_, err = set.WeightedMask([]float32{1, 2, 3})
	assert.True(t, errors.Is(err, ErrMaskWeights))

	_, err = set.WeightedMask(nil)
	assert.True(t, errors.Is(err, ErrMaskWeights))
}

// TestPrototypeMaskSetOwnsData checks that the set does not alias the
// runtime buffer it was built from.
func TestPrototypeMaskSetOwnsData(t *testing.T) {
	protos := buildPrototypes(t, 2, 2, 2)
	set, err := NewPrototypeMaskSet(protos)
	require.NoError(t, err)

	before := set.At(1, 1, 1)
	for i := range protos.Data {
		protos.Data[i] = 0
	}
	assert.Equal(t, before, set.At(1, 1, 1))
}

func TestBinarize(t *testing.T) {
	m := &WeightedMask{Height: 2, Width: 2, Data: []float32{-1, 0, 0.5, 2}}

	img := m.Binarize(0)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, uint8(0), img.AlphaAt(0, 0).A)
	assert.Equal(t, uint8(0), img.AlphaAt(1, 0).A, "a value equal to the threshold is outside")
	assert.Equal(t, uint8(0xff), img.AlphaAt(0, 1).A)
	assert.Equal(t, uint8(0xff), img.AlphaAt(1, 1).A)
}

func TestRasterize(t *testing.T) {
	m := &WeightedMask{Height: 2, Width: 3, Data: []float32{-1, 0, 0.5, 2, 0, 3}}
	clr := color.RGBA{R: 255, G: 56, B: 56, A: 255}

	img := Rasterize(m, 0, clr)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	transparent := color.NRGBA{}
	filled := color.NRGBA{R: 255, G: 56, B: 56, A: MaskAlpha}

	assert.Equal(t, transparent, img.NRGBAAt(0, 0))
	assert.Equal(t, transparent, img.NRGBAAt(1, 0))
	assert.Equal(t, filled, img.NRGBAAt(2, 0))
	assert.Equal(t, filled, img.NRGBAAt(0, 1))
	assert.Equal(t, transparent, img.NRGBAAt(1, 1))
	assert.Equal(t, filled, img.NRGBAAt(2, 1))
}

func TestUpscale(t *testing.T) {
	m := &WeightedMask{Height: 4, Width: 4, Data: make([]float32, 16)}
	for i := range m.Data {
		m.Data[i] = 1
	}

	up := Upscale(Rasterize(m, 0, color.RGBA{G: 200}), 16, 12)
	assert.Equal(t, 16, up.Bounds().Dx())
	assert.Equal(t, 12, up.Bounds().Dy())

	_, _, _, a := up.At(8, 6).RGBA()
	assert.NotZero(t, a)
}

func TestSigmoidLogit(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-6)
	assert.InDelta(t, 0, Logit(0.5), 1e-6)
	assert.InDelta(t, 0.8, Sigmoid(Logit(0.8)), 1e-5)
}
