package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput resizes an image to the model input and writes it into dst as
// planar RGB (CHW) scaled to [0, 1].
//
// The image is stretched rather than letterboxed, so boxes map back to the
// source with independent horizontal and vertical factors.
//
// Arguments:
//   - img: The image to prepare.
//   - width, height: The model input size.
//   - dst: The destination, at least 3*width*height long.
//
// Returns:
//   - error: An error if dst is too short.
func PrepareInput(img image.Image, width, height int, dst []float32) error {
	channelSize := width * height
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination only holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		img = resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
		b = img.Bounds()
	}

	i := 0
	for y := b.Min.Y; y < b.Min.Y+height; y++ {
		for x := b.Min.X; x < b.Min.X+width; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(bl>>8) / 255.0
			i++
		}
	}

	return nil
}

// ScaleFactors returns the factors that map model input coordinates onto an
// image of the given size.
func ScaleFactors(imgWidth, imgHeight, inputWidth, inputHeight int) (sx, sy float32) {
	return float32(imgWidth) / float32(inputWidth), float32(imgHeight) / float32(inputHeight)
}
