package postprocess

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-seg/images"
)

// Tensor is a raw float32 model output together with its logical shape.
//
// The data is laid out row-major (C order) the way onnxruntime and most
// runtimes hand it back, so a 1x116x8400 output is 116 rows of 8400 anchors.
type Tensor struct {
	Shape tensor.Shape
	Data  []float32
}

// NewTensor wraps a raw output slice.
//
// Arguments:
//   - data: The backing data, row-major.
//   - shape: The logical dimensions.
//
// Returns:
//   - Tensor: The tensor.
//   - error: ErrShapeMismatch if len(data) differs from the shape volume.
func NewTensor(data []float32, shape ...int) (Tensor, error) {
	s := tensor.Shape(shape).Clone()
	if volume(s) != len(data) {
		return Tensor{}, errors.Wrapf(ErrShapeMismatch, "shape %v holds %d values, got %d", s, volume(s), len(data))
	}

	return Tensor{Shape: s, Data: data}, nil
}

// TensorFromDense converts a gorgonia dense tensor into a Tensor without
// copying its backing array.
//
// Arguments:
//   - d: A float32 dense tensor.
//
// Returns:
//   - Tensor: The tensor.
//   - error: An error if d is nil or not float32.
func TensorFromDense(d *tensor.Dense) (Tensor, error) {
	if d == nil {
		return Tensor{}, errors.New("dense tensor is nil")
	}
	if d.Dtype() != tensor.Float32 {
		return Tensor{}, errors.Errorf("dense tensor has dtype %v, want float32", d.Dtype())
	}

	data, ok := d.Data().([]float32)
	if !ok {
		// a single element tensor reports a scalar
		v, ok := d.Data().(float32)
		if !ok {
			return Tensor{}, errors.Errorf("unexpected dense backing %T", d.Data())
		}
		data = []float32{v}
	}

	return NewTensor(data, d.Shape()...)
}

// TensorFromFloat16 decodes an IEEE 754 half precision output, as produced
// by models exported with half=True, into a float32 Tensor.
//
// Arguments:
//   - bits: The raw float16 values.
//   - shape: The logical dimensions.
//
// Returns:
//   - Tensor: The float32 tensor.
//   - error: ErrShapeMismatch if len(bits) differs from the shape volume.
func TensorFromFloat16(bits []uint16, shape ...int) (Tensor, error) {
	data := make([]float32, len(bits))
	for i, b := range bits {
		data[i] = float16.Frombits(b).Float32()
	}

	return NewTensor(data, shape...)
}

// Dense returns a gorgonia view sharing the Tensor's backing array.
func (t Tensor) Dense() *tensor.Dense {
	return tensor.New(tensor.WithShape(t.Shape.Clone()...), tensor.WithBacking(t.Data))
}

// volume is the element count of a shape; the empty shape is a scalar.
func volume(s tensor.Shape) int {
	n := 1
	for _, d := range s {
		if d < 0 {
			return -1
		}
		n *= d
	}
	return n
}

// OutputLayout is the channel partition of a detection head output:
//
//	[0, 4)                    box centre x, centre y, width, height
//	[4, 4+Classes)            per-class scores
//	[4+Classes, 4+Classes+M)  mask weights, one per prototype channel
type OutputLayout struct {
	Classes      int
	MaskChannels int
}

// Channels returns the total channel count the layout expects.
func (l OutputLayout) Channels() int {
	return 4 + l.Classes + l.MaskChannels
}

// OutputView is a typed accessor over a channel x anchor detection tensor.
// All the index arithmetic for the head layout lives here.
type OutputView struct {
	layout  OutputLayout
	anchors int
	data    []float32
}

// NewOutputView validates a detection tensor against a layout.
//
// The tensor must be 2D (channels x anchors) or 3D with a unit batch
// dimension (1 x channels x anchors), and the channel count must match the
// layout exactly.
//
// Arguments:
//   - t: The raw detection tensor.
//   - layout: The expected channel partition.
//
// Returns:
//   - *OutputView: The accessor.
//   - error: ErrShapeMismatch when the tensor does not fit the layout.
func NewOutputView(t Tensor, layout OutputLayout) (*OutputView, error) {
	shape := t.Shape
	switch {
	case len(shape) == 3 && shape[0] == 1:
		shape = shape[1:]
	case len(shape) == 2:
	default:
		return nil, errors.Wrapf(ErrShapeMismatch, "detection tensor shape %v, want (1,C,A) or (C,A)", t.Shape)
	}

	if shape[0] != layout.Channels() {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"detection tensor has %d channels, want %d (4 box + %d classes + %d mask)",
			shape[0], layout.Channels(), layout.Classes, layout.MaskChannels)
	}
	if volume(shape) != len(t.Data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "shape %v holds %d values, got %d", t.Shape, volume(shape), len(t.Data))
	}

	return &OutputView{
		layout:  layout,
		anchors: shape[1],
		data:    t.Data,
	}, nil
}

// Anchors returns the number of candidate anchors.
func (v *OutputView) Anchors() int {
	return v.anchors
}

// Layout returns the channel partition of the view.
func (v *OutputView) Layout() OutputLayout {
	return v.layout
}

func (v *OutputView) at(channel, anchor int) float32 {
	return v.data[channel*v.anchors+anchor]
}

// Box reads the four box channels of an anchor.
func (v *OutputView) Box(anchor int) images.Box {
	return images.NewBox(
		v.at(0, anchor),
		v.at(1, anchor),
		v.at(2, anchor),
		v.at(3, anchor),
	)
}

// Score reads the score of a class for an anchor.
func (v *OutputView) Score(class, anchor int) float32 {
	return v.at(4+class, anchor)
}

// MaskWeight reads the weight of a prototype channel for an anchor.
func (v *OutputView) MaskWeight(proto, anchor int) float32 {
	return v.at(4+v.layout.Classes+proto, anchor)
}
