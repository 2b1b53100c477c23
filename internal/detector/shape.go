package detector

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Defect is one convexity defect of a contour: the contour dips from the hull
// edge Start-End down to Far.
type Defect struct {
	Start image.Point `json:"start"`
	End   image.Point `json:"end"`
	Far   image.Point `json:"far"`
	// Depth is the distance from Far to the hull edge in pixels.
	Depth float64 `json:"depth"`
	// Angle is the interior angle at Far in degrees.
	Angle float64 `json:"angle"`
	// Gap is true when the defect counts as a gap between two fingers.
	Gap bool `json:"gap"`
}

// Metrics are the shape measurements of a contour.
type Metrics struct {
	Area        float64       `json:"area"`
	Perimeter   float64       `json:"perimeter"`
	Circularity float64       `json:"circularity"`
	HullPoints  int           `json:"hull_points"`
	FingerGaps  int           `json:"finger_gaps"`
	Centroid    image.Point   `json:"centroid"`
	Hull        []image.Point `json:"-"`
	Defects     []Defect      `json:"-"`
}

// Measure computes the shape metrics of c. It returns false when the geometry
// is degenerate (fewer than three points, zero perimeter or a hull that does
// not enclose any area), in which case no gesture can be derived.
func Measure(c Contour, cfg Config) (Metrics, bool) {
	if len(c.Points) < 3 {
		return Metrics{}, false
	}

	pv := gocv.NewPointVectorFromPoints(c.Points)
	defer pv.Close()

	m := Metrics{
		Area:      gocv.ContourArea(pv),
		Perimeter: gocv.ArcLength(pv, true),
	}
	if m.Perimeter == 0 {
		return Metrics{}, false
	}
	m.Circularity = Circularity(m.Area, m.Perimeter)
	m.Centroid = centroid(c.Points, c.Bounds)

	hullPts := gocv.NewMat()
	defer hullPts.Close()
	gocv.ConvexHull(pv, &hullPts, false, true)
	for i := 0; i < hullPts.Rows(); i++ {
		v := hullPts.GetVeciAt(i, 0)
		m.Hull = append(m.Hull, image.Pt(int(v[0]), int(v[1])))
	}
	m.HullPoints = len(m.Hull)
	if m.HullPoints < 3 {
		return Metrics{}, false
	}

	hullIdx := gocv.NewMat()
	defer hullIdx.Close()
	gocv.ConvexHull(pv, &hullIdx, false, false)
	if hullIdx.Rows() < 3 || len(c.Points) < 4 {
		return m, true
	}

	defects := gocv.NewMat()
	defer defects.Close()
	gocv.ConvexityDefects(pv, hullIdx, &defects)

	for i := 0; i < defects.Rows(); i++ {
		v := defects.GetVeciAt(i, 0)
		s, e, f := int(v[0]), int(v[1]), int(v[2])
		if s >= len(c.Points) || e >= len(c.Points) || f >= len(c.Points) {
			continue
		}

		d := Defect{
			Start: c.Points[s],
			End:   c.Points[e],
			Far:   c.Points[f],
			Depth: float64(v[3]) / 256.0,
		}
		angle, ok := DefectAngle(d.Start, d.End, d.Far)
		d.Angle = angle
		d.Gap = ok && angle <= cfg.MaxDefectAngle && d.Depth >= cfg.MinDefectDepth
		if d.Gap {
			m.FingerGaps++
		}
		m.Defects = append(m.Defects, d)
	}

	return m, true
}

// Circularity returns 4π·area/perimeter², which is 1 for a perfect circle.
// A zero perimeter yields 0.
func Circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// DefectAngle returns the angle in degrees at far in the triangle
// (start, end, far), using the law of cosines. It returns false when far
// coincides with start or end.
func DefectAngle(start, end, far image.Point) (float64, bool) {
	a := dist(start, end)
	b := dist(far, start)
	c := dist(end, far)
	if b == 0 || c == 0 {
		return 0, false
	}

	cos := (b*b + c*c - a*a) / (2 * b * c)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, true
}

func dist(p, q image.Point) float64 {
	return math.Hypot(float64(p.X-q.X), float64(p.Y-q.Y))
}

// centroid is the area centroid of the polygon, falling back to the bounding
// box centre for zero-area outlines.
func centroid(pts []image.Point, bounds image.Rectangle) image.Point {
	var a, cx, cy float64
	n := len(pts)
	for i := 0; i < n; i++ {
		p, q := pts[i], pts[(i+1)%n]
		cross := float64(p.X*q.Y - q.X*p.Y)
		a += cross
		cx += float64(p.X+q.X) * cross
		cy += float64(p.Y+q.Y) * cross
	}
	if a == 0 {
		return image.Pt((bounds.Min.X+bounds.Max.X)/2, (bounds.Min.Y+bounds.Max.Y)/2)
	}
	a *= 0.5
	return image.Pt(int(math.Round(cx/(6*a))), int(math.Round(cy/(6*a))))
}
