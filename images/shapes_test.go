package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// boxFromCorners builds a center-form Box from corner coordinates so the cases
// below stay readable.
func boxFromCorners(x1, y1, x2, y2 float32) Box {
	return NewBox((x1+x2)/2, (y1+y2)/2, x2-x1, y2-y1)
}

// TestCorners validates the center to corner conversion.
func TestCorners(t *testing.T) {
	r := NewBox(10, 10, 4, 4).Corners()
	assert.Equal(t, Rect{X1: 8, Y1: 8, X2: 12, Y2: 12}, r)

	r = NewBox(0, 0, 0, 0).Corners()
	assert.Equal(t, Rect{}, r)

	r = NewBox(320, 240, 100, 50).Corners()
	assert.LessOrEqual(t, r.X1, r.X2)
	assert.LessOrEqual(t, r.Y1, r.Y2)
	assert.InDelta(t, 100, r.Width(), 1e-4)
	assert.InDelta(t, 50, r.Height(), 1e-4)
}

// TestScale validates mapping a box from model resolution onto image pixels.
func TestScale(t *testing.T) {
	b := NewBox(320, 320, 64, 32).Scale(2, 0.5)
	assert.Equal(t, NewBox(640, 160, 128, 16), b)
}

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		a        Box
		b        Box
		expected float32
	}{
		{
			name:     "Identical boxes",
			a:        boxFromCorners(0, 0, 100, 100),
			b:        boxFromCorners(0, 0, 100, 100),
			expected: 1.0,
		},
		{
			name:     "No overlap",
			a:        boxFromCorners(0, 0, 100, 100),
			b:        boxFromCorners(200, 200, 300, 300),
			expected: 0.0,
		},
		{
			name:     "Touching edges",
			a:        boxFromCorners(0, 0, 100, 100),
			b:        boxFromCorners(100, 0, 200, 100),
			expected: 0.0,
		},
		{
			name:     "Quarter overlap",
			a:        boxFromCorners(0, 0, 100, 100),
			b:        boxFromCorners(50, 50, 150, 150),
			expected: 0.142857, // 2500 / (10000 + 10000 - 2500)
		},
		{
			name:     "Small overlap",
			a:        boxFromCorners(0, 0, 100, 100),
			b:        boxFromCorners(90, 90, 190, 190),
			expected: 0.005025, // 100 / 19900
		},
		{
			name:     "One inside other",
			a:        boxFromCorners(0, 0, 100, 100),
			b:        boxFromCorners(25, 25, 75, 75),
			expected: 0.25,
		},
		{
			name:     "Same center, twice the size",
			a:        NewBox(10, 10, 4, 4),
			b:        NewBox(10, 10, 8, 8),
			expected: 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.001)

			// IoU(A, B) must equal IoU(B, A).
			assert.Equal(t, result, CalculateIoU(tt.b, tt.a), "IoU must be symmetric")
		})
	}
}

// TestIoU_NoOverlapIsExactlyZero ensures disjoint boxes never produce a
// rounding residue.
func TestIoU_NoOverlapIsExactlyZero(t *testing.T) {
	a := NewBox(10.3, 10.7, 2.1, 2.9)
	b := NewBox(100.1, 100.9, 7.7, 3.3)
	assert.Equal(t, float32(0), CalculateIoU(a, b))
	assert.Equal(t, float32(0), CalculateIoU(b, a))
}

// TestIoU_vs_ImageRectangle compares our implementation against image.Rectangle
// for boxes with integral corners.
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   image.Rectangle
		r2   image.Rectangle
	}{
		{"No overlap", image.Rect(0, 0, 100, 100), image.Rect(200, 200, 300, 300)},
		{"Partial overlap", image.Rect(0, 0, 100, 100), image.Rect(50, 50, 150, 150)},
		{"Full overlap", image.Rect(50, 50, 150, 150), image.Rect(50, 50, 150, 150)},
		{"One inside other", image.Rect(0, 0, 100, 100), image.Rect(25, 25, 75, 75)},
		{"Large boxes", image.Rect(0, 0, 1920, 1080), image.Rect(960, 540, 1920, 1080)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := boxFromCorners(float32(tc.r1.Min.X), float32(tc.r1.Min.Y), float32(tc.r1.Max.X), float32(tc.r1.Max.Y))
			b := boxFromCorners(float32(tc.r2.Min.X), float32(tc.r2.Min.Y), float32(tc.r2.Max.X), float32(tc.r2.Max.Y))

			customResult := CalculateIoU(a, b)
			imageResult := imageRectangleIoU(tc.r1, tc.r2)

			if math.Abs(float64(customResult-imageResult)) > 0.0001 {
				t.Errorf("Results differ: custom=%v, image.Rectangle=%v", customResult, imageResult)
			}
		})
	}
}

// imageRectangleIoU implements IoU using Go's standard library image.Rectangle
func imageRectangleIoU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	r1Area := r1.Dx() * r1.Dy()
	r2Area := r2.Dx() * r2.Dy()
	union := r1Area + r2Area - intersectArea

	return float32(intersectArea) / float32(union)
}

// TestIoU_EdgeCases tests edge cases and boundary conditions
func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		a    Box
		b    Box
	}{
		{"Zero area box 1", NewBox(0, 0, 0, 0), boxFromCorners(0, 0, 100, 100)},
		{"Zero area box 2", boxFromCorners(0, 0, 100, 100), NewBox(50, 50, 0, 0)},
		{"Both zero area", NewBox(0, 0, 0, 0), NewBox(10, 10, 0, 0)},
		{"Zero width line", NewBox(50, 50, 0, 100), boxFromCorners(0, 0, 100, 100)},
		{"Negative coordinates", boxFromCorners(-100, -100, 0, 0), boxFromCorners(-50, -50, 50, 50)},
		{"Single pixel", boxFromCorners(0, 0, 1, 1), boxFromCorners(0, 0, 1, 1)},
		{"Very large coordinates", boxFromCorners(0, 0, 999999, 999999), boxFromCorners(500000, 500000, 999999, 999999)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.a, tt.b)
			assert.GreaterOrEqual(t, result, float32(0))
			assert.LessOrEqual(t, result, float32(1))
			assert.False(t, math.IsNaN(float64(result)))

			reverse := CalculateIoU(tt.b, tt.a)
			assert.Equal(t, result, reverse)
		})
	}
}

// TestIoU_ZeroSizeSelf checks the 0/0 convention: a degenerate box compared
// with itself has IoU 0 rather than NaN.
func TestIoU_ZeroSizeSelf(t *testing.T) {
	a := NewBox(12, 34, 0, 0)
	assert.Equal(t, float32(0), CalculateIoU(a, a))

	line := NewBox(12, 34, 5, 0)
	assert.Equal(t, float32(0), CalculateIoU(line, line))
}

// TestIoU_Self checks IoU(a, a) == 1 for well-formed boxes.
func TestIoU_Self(t *testing.T) {
	for _, b := range []Box{
		NewBox(10, 10, 4, 4),
		NewBox(320.5, 100.25, 33.3, 77.7),
		NewBox(-5, -5, 0.5, 0.25),
	} {
		assert.InDelta(t, 1.0, CalculateIoU(b, b), 1e-6)
	}
}
