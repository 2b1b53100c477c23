package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	contourColor = color.RGBA{G: 255, A: 255}
	hullColor    = color.RGBA{R: 255, A: 255}
	gapColor     = color.RGBA{B: 255, A: 255}
	textColor    = color.RGBA{G: 255, A: 255}
)

// DrawOverlay draws the contour, its hull, the finger-gap points and a text
// caption onto frame. Only the debug view uses it.
func DrawOverlay(frame *gocv.Mat, c Contour, m Metrics, caption string) {
	if frame == nil || frame.Empty() {
		return
	}

	if !c.Empty() {
		outline := gocv.NewPointsVectorFromPoints([][]image.Point{c.Points})
		gocv.DrawContours(frame, outline, -1, contourColor, 2)
		outline.Close()
	}

	if len(m.Hull) >= 3 {
		hull := gocv.NewPointsVectorFromPoints([][]image.Point{m.Hull})
		gocv.DrawContours(frame, hull, -1, hullColor, 2)
		hull.Close()
	}

	for _, d := range m.Defects {
		if d.Gap {
			gocv.Circle(frame, d.Far, 5, gapColor, -1)
		}
	}

	if caption != "" {
		gocv.PutText(frame, caption, image.Pt(10, 30), gocv.FontHersheySimplex, 0.9, textColor, 2)
	}
}
