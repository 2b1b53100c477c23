package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Contour is the outer boundary of the selected hand region.
type Contour struct {
	Points []image.Point   `json:"-"`
	Area   float64         `json:"area"`
	Bounds image.Rectangle `json:"bounds"`
}

// Empty reports whether the contour has no points.
func (c Contour) Empty() bool {
	return len(c.Points) == 0
}

// SelectContour extracts the external contours of mask and returns the
// largest one that passes the area and aspect-ratio filters.
// Among equal areas the first contour found wins.
func SelectContour(mask gocv.Mat, cfg Config) (Contour, bool) {
	if mask.Empty() || mask.Type() != gocv.MatTypeCV8U {
		return Contour{}, false
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var best Contour
	found := false

	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)

		area := gocv.ContourArea(pv)
		if area < cfg.MinArea {
			continue
		}

		rect := gocv.BoundingRect(pv)
		if !cfg.aspectOK(rect.Dx(), rect.Dy()) {
			continue
		}

		if !found || area > best.Area {
			best = Contour{
				Points: pv.ToPoints(),
				Area:   area,
				Bounds: rect,
			}
			found = true
		}
	}

	return best, found
}
