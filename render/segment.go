package render

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-seg/models/postprocess"
)

// MaskOptions controls how instance masks are painted.
type MaskOptions struct {
	// Threshold is the mask logit cutoff; 0 is a 0.5 probability.
	Threshold float32
	// CropToBox clears mask pixels outside the detection box.
	CropToBox bool
}

// DefaultMaskOptions returns the threshold the segmentation heads are
// trained for, with masks cropped to their boxes.
func DefaultMaskOptions() MaskOptions {
	return MaskOptions{Threshold: 0, CropToBox: true}
}

// SegmentMasks paints the instance mask of every detection over the image.
//
// Each mask is computed from the prototypes, rasterized at prototype
// resolution, upscaled to the image and alpha blended in the class color.
//
// Arguments:
//   - img: The BGR image, modified in place.
//   - out: A pipeline output carrying prototypes.
//   - sx, sy: Image size divided by model input size.
//   - opts: Threshold and cropping.
//
// Returns:
//   - error: postprocess.ErrNoPrototypes, or an error building a mask.
func SegmentMasks(img *gocv.Mat, out *postprocess.Output, sx, sy float32, opts MaskOptions) error {
	if !out.HasMasks() {
		return postprocess.ErrNoPrototypes
	}

	width := img.Cols()
	height := img.Rows()
	bounds := image.Rect(0, 0, width, height)

	// Pixel access through cgo is too slow, so blend on a copy of the bytes
	// and copy the result back once.
	data, err := img.DataPtrUint8()
	if err != nil {
		return errors.Wrap(err, "access image data")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	for i, det := range out.Detections {
		mask, err := out.Mask(i)
		if err != nil {
			return errors.Wrapf(err, "mask of detection %d", i)
		}

		overlay := postprocess.Rasterize(mask, opts.Threshold, ClassColor(det.Class.Index))
		scaled := postprocess.Upscale(overlay, width, height)

		clip := bounds
		if opts.CropToBox {
			clip = ImageRect(det, sx, sy).Intersect(bounds)
		}
		blendOverlay(buf, width, scaled, clip)
	}

	tmp, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return errors.Wrap(err, "wrap blended image")
	}
	defer tmp.Close()
	tmp.CopyTo(img)

	return nil
}

// blendOverlay alpha blends an overlay into packed BGR bytes within clip.
func blendOverlay(bgr []byte, width int, overlay image.Image, clip image.Rectangle) {
	// premultiplied, which is what the bilinear resize hands back
	rgba, ok := overlay.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(overlay.Bounds())
		draw.Draw(rgba, rgba.Bounds(), overlay, overlay.Bounds().Min, draw.Src)
	}
	origin := rgba.Bounds().Min

	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			c := rgba.RGBAAt(origin.X+x, origin.Y+y)
			if c.A == 0 {
				continue
			}
			keep := 1 - float32(c.A)/255
			p := (y*width + x) * 3
			bgr[p+0] = uint8(min(float32(bgr[p+0])*keep+float32(c.B), 255))
			bgr[p+1] = uint8(min(float32(bgr[p+1])*keep+float32(c.G), 255))
			bgr[p+2] = uint8(min(float32(bgr[p+2])*keep+float32(c.R), 255))
		}
	}
}
