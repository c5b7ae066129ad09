package postprocess

import (
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// PrototypeMaskSet holds the N low resolution prototype masks a segmentation
// head emits once per image. Every instance mask is a linear combination of
// them, weighted by that instance's mask coefficients.
//
// The set is immutable after construction and safe for concurrent use.
type PrototypeMaskSet struct {
	n, h, w int
	// protos is N rows of H*W values.
	protos blas32.General
}

// NewPrototypeMaskSet materializes the prototype grid from the raw
// 1 x N x H x W tensor.
//
// Arguments:
//   - t: The prototype tensor.
//
// Returns:
//   - *PrototypeMaskSet: The prototype masks.
//   - error: ErrShapeMismatch if the rank is not 4, the batch dimension is not
//     1, or the data length does not match the shape.
func NewPrototypeMaskSet(t Tensor) (*PrototypeMaskSet, error) {
	if len(t.Shape) != 4 {
		return nil, errors.Wrapf(ErrShapeMismatch, "prototype tensor has rank %d, want 4 (1,N,H,W)", len(t.Shape))
	}
	if t.Shape[0] != 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "prototype tensor batch dimension is %d, want 1", t.Shape[0])
	}

	n, h, w := t.Shape[1], t.Shape[2], t.Shape[3]
	if n <= 0 || h <= 0 || w <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "prototype tensor shape %v has an empty dimension", t.Shape)
	}
	if len(t.Data) != n*h*w {
		return nil, errors.Wrapf(ErrShapeMismatch, "prototype shape %v holds %d values, got %d", t.Shape, n*h*w, len(t.Data))
	}

	data := make([]float32, len(t.Data))
	copy(data, t.Data)

	return &PrototypeMaskSet{
		n: n,
		h: h,
		w: w,
		protos: blas32.General{
			Rows:   n,
			Cols:   h * w,
			Stride: h * w,
			Data:   data,
		},
	}, nil
}

// Channels returns N, the number of prototype masks.
func (p *PrototypeMaskSet) Channels() int {
	return p.n
}

// Height returns the prototype mask height.
func (p *PrototypeMaskSet) Height() int {
	return p.h
}

// Width returns the prototype mask width.
func (p *PrototypeMaskSet) Width() int {
	return p.w
}

// At returns the value of prototype c at row y, column x.
func (p *PrototypeMaskSet) At(c, y, x int) float32 {
	return p.protos.Data[c*p.protos.Stride+y*p.w+x]
}

// WeightedMask combines the prototypes into one instance mask: every pixel is
// the dot product of weights with the N prototype values at that pixel.
//
// The whole mask is a single matrix-vector product, protosᵀ · weights.
//
// Arguments:
//   - weights: The detection's mask coefficients, one per prototype.
//
// Returns:
//   - *WeightedMask: The H x W mask.
//   - error: ErrMaskWeights if len(weights) != Channels().
func (p *PrototypeMaskSet) WeightedMask(weights []float32) (*WeightedMask, error) {
	if len(weights) != p.n {
		return nil, errors.Wrapf(ErrMaskWeights, "got %d weights, have %d prototypes", len(weights), p.n)
	}

	out := make([]float32, p.h*p.w)
	blas32.Gemv(blas.Trans, 1,
		p.protos,
		blas32.Vector{N: p.n, Data: weights, Inc: 1},
		0,
		blas32.Vector{N: len(out), Data: out, Inc: 1},
	)

	return &WeightedMask{Height: p.h, Width: p.w, Data: out}, nil
}

// WeightedMask is a dense H x W grid of mask logits for one detection, row
// major. It is computed on demand and not cached.
type WeightedMask struct {
	Height int
	Width  int
	Data   []float32
}

// At returns the value at row y, column x.
func (m *WeightedMask) At(y, x int) float32 {
	return m.Data[y*m.Width+x]
}

// Binarize thresholds the mask into a membership image: pixels strictly above
// threshold are opaque, all others transparent.
//
// Arguments:
//   - threshold: The scalar cutoff.
//
// Returns:
//   - *image.Alpha: The binary mask at prototype resolution.
func (m *WeightedMask) Binarize(threshold float32) *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Data {
		if v > threshold {
			img.Pix[(i/m.Width)*img.Stride+i%m.Width] = 0xff
		}
	}

	return img
}
