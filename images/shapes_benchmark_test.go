package images

import (
	"math/rand"
	"testing"
)

// BenchmarkIoU_NonOverlapping tests boxes that don't overlap.
// This is the early return path for a non-positive intersection.
func BenchmarkIoU_NonOverlapping(b *testing.B) {
	a := NewBox(50, 50, 100, 100)
	c := NewBox(250, 250, 100, 100)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(a, c)
	}
}

// BenchmarkIoU_FullOverlap tests identical boxes (IoU = 1.0).
func BenchmarkIoU_FullOverlap(b *testing.B) {
	a := NewBox(100, 100, 100, 100)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(a, a)
	}
}

// BenchmarkIoU_PartialOverlap tests the common NMS case of neighbouring
// predictions for one object.
func BenchmarkIoU_PartialOverlap(b *testing.B) {
	a := NewBox(50, 50, 100, 100)
	c := NewBox(100, 100, 100, 100)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(a, c)
	}
}

// BenchmarkIoU_RandomPairs tests pairs spread over a 640x640 model input.
func BenchmarkIoU_RandomPairs(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	boxes := make([]Box, 1024)
	for i := range boxes {
		boxes[i] = NewBox(rng.Float32()*640, rng.Float32()*640, rng.Float32()*200+10, rng.Float32()*200+10)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(boxes[i%len(boxes)], boxes[(i+1)%len(boxes)])
	}
}
