package postprocess

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
)

// MaskAlpha is the opacity of rasterized mask pixels, about half transparent
// so the photo stays visible underneath.
const MaskAlpha = 127

// Rasterize converts a weighted mask into an overlay bitmap at prototype
// resolution. Pixels strictly above threshold get clr at MaskAlpha, all others
// are fully transparent.
//
// Arguments:
//   - m: The weighted mask.
//   - threshold: The logit cutoff; 0 matches a 0.5 sigmoid probability.
//   - clr: The overlay color, its alpha is ignored.
//
// Returns:
//   - *image.NRGBA: The overlay.
func Rasterize(m *WeightedMask, threshold float32, clr color.RGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))

	for y := 0; y < m.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < m.Width; x++ {
			if m.At(y, x) <= threshold {
				continue
			}
			p := row[x*4 : x*4+4]
			p[0] = clr.R
			p[1] = clr.G
			p[2] = clr.B
			p[3] = MaskAlpha
		}
	}

	return img
}

// Upscale resizes a rasterized mask from prototype resolution (160x160 for
// YOLOv8) to the model input or image resolution with bilinear sampling.
//
// Arguments:
//   - img: The overlay to resize.
//   - width, height: The target size in pixels.
//
// Returns:
//   - image.Image: The resized overlay.
func Upscale(img image.Image, width, height int) image.Image {
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// Sigmoid maps a mask logit to a probability.
func Sigmoid(v float32) float32 {
	return 1 / (1 + math32.Exp(-v))
}

// Logit maps a probability threshold (0, 1) to the equivalent logit cutoff
// for Rasterize and Binarize.
func Logit(p float32) float32 {
	return math32.Log(p / (1 - p))
}
