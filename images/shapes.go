// Package images - Box geometry shared by the post-processing pipeline.
package images

import "github.com/chewxy/math32"

// Rect is a box in corner form. It is always derived from a Box and never
// stored alongside one.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Area returns the area of the rectangle.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Box is an axis-aligned box in center form, as emitted by YOLO style heads.
//
// The units are those of the model input resolution (640x640 for the stock
// YOLOv8 exports). Mapping a Box onto the pixels of the source image is the
// job of the renderer, see Scale.
type Box struct {
	// X is the horizontal center.
	X float32 `json:"x" yaml:"x"`
	// Y is the vertical center.
	Y float32 `json:"y" yaml:"y"`
	// W is the width, never negative.
	W float32 `json:"w" yaml:"w"`
	// H is the height, never negative.
	H float32 `json:"h" yaml:"h"`
}

// NewBox creates a Box from its center point and size.
//
// Arguments:
//   - x, y: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Box: The box.
func NewBox(x, y, w, h float32) Box {
	return Box{X: x, Y: y, W: w, H: h}
}

// Corners converts the box to corner form.
//
// Returns:
//   - Rect: The top-left (X1, Y1) and bottom-right (X2, Y2) corners computed as
//     center ± size/2.
//
// Example:
//
// ```go
//
//	r := images.NewBox(10, 10, 4, 4).Corners() // {8 8 12 12}
//
// ```
func (b Box) Corners() Rect {
	hw := b.W * 0.5
	hh := b.H * 0.5

	return Rect{
		X1: b.X - hw,
		Y1: b.Y - hh,
		X2: b.X + hw,
		Y2: b.Y + hh,
	}
}

// Area returns the area of the box.
func (b Box) Area() float32 {
	return b.W * b.H
}

// Scale maps the box into another coordinate space, for example from the
// 640x640 model input to the pixels of the photo it was computed from.
//
// Arguments:
//   - sx: The horizontal scale factor (target width / model width).
//   - sy: The vertical scale factor (target height / model height).
//
// Returns:
//   - Box: The scaled box.
func (b Box) Scale(sx, sy float32) Box {
	return Box{X: b.X * sx, Y: b.Y * sy, W: b.W * sx, H: b.H * sy}
}

// CalculateIoU measures how much two boxes overlap as the area of their
// intersection divided by the area of their union.
//
// The result is always within [0, 1]:
//
//	IoU = Area(A ∩ B) / (Area(A) + Area(B) - Area(A ∩ B))
//
//	- 1.0 means the boxes are identical.
//	- 0.0 means they do not overlap, or only touch along an edge.
//
// A zero or negative intersection width or height yields 0 straight away.
// Two zero-area boxes have a union of zero as well; by convention their IoU is
// 0 instead of 0/0, so IoU(a, a) is 1 only when a has a positive area.
//
// Arguments:
//   - a: The first box.
//   - b: The second box.
//
// Returns:
//   - float32: The IoU score in [0, 1].
//
// Example:
//
// ```go
//
//	a := images.NewBox(5, 5, 10, 10)   // corners (0,0)-(10,10)
//	b := images.NewBox(10, 10, 10, 10) // corners (5,5)-(15,15)
//
//	iou := images.CalculateIoU(a, b) // 25 / (100 + 100 - 25) = 0.142857
//
// ```
func CalculateIoU(a, b Box) float32 {
	ra := a.Corners()
	rb := b.Corners()

	interW := math32.Min(ra.X2, rb.X2) - math32.Max(ra.X1, rb.X1)
	interH := math32.Min(ra.Y2, rb.Y2) - math32.Max(ra.Y1, rb.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	interArea := interW * interH

	unionArea := ra.Area() + rb.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	iou := interArea / unionArea
	if iou > 1 {
		// rounding on near-identical boxes
		return 1
	}

	return iou
}
