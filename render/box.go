package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Font defines the parameters for rendering text on an image using GoCV.
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding around the text inside its label box.
	Pad int
}

// DefaultFont returns default font settings.
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		Pad:       4,
	}
}

// boxLabel defines where a detection label is rendered.
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// ImageRect maps a detection box from model input units onto image pixels.
//
// Arguments:
//   - det: The detection.
//   - sx, sy: Image size divided by model input size.
//
// Returns:
//   - image.Rectangle: The box in image pixels.
func ImageRect(det postprocess.Detection, sx, sy float32) image.Rectangle {
	r := det.Box.Scale(sx, sy).Corners()
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Canon()
}

// DetectionBoxes renders a box and a "label score" tag for every detection.
//
// Arguments:
//   - img: The BGR image, modified in place.
//   - dets: The detections, boxes in model input units.
//   - sx, sy: Image size divided by model input size.
//   - font: The label font.
//   - thickness: The box line thickness.
func DetectionBoxes(img *gocv.Mat, dets []postprocess.Detection, sx, sy float32, font Font, thickness int) {
	labels := make([]boxLabel, 0, len(dets))

	for _, det := range dets {
		clr := ClassColor(det.Class.Index)
		rect := ImageRect(det, sx, sy)
		gocv.Rectangle(img, rect, clr, thickness)

		text := fmt.Sprintf("%s %.2f", det.Class.Name, det.Score)
		size := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		top := rect.Min.Y
		if top-size.Y-2*font.Pad < 0 {
			// no room above the box, draw the label inside it
			top = rect.Min.Y + size.Y + 2*font.Pad
		}

		labels = append(labels, boxLabel{
			rect:    image.Rect(rect.Min.X, top-size.Y-2*font.Pad, rect.Min.X+size.X+2*font.Pad, top),
			clr:     clr,
			text:    text,
			textPos: image.Pt(rect.Min.X+font.Pad, top-font.Pad),
		})
	}

	// labels go last so no box line crosses them
	for _, l := range labels {
		gocv.Rectangle(img, l.rect, l.clr, -1)
		gocv.PutTextWithParams(img, l.text, l.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}
