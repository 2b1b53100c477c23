// Package testutil builds synthetic camera frames for tests.
package testutil

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// White is the BGR color used for synthetic hand shapes.
var White = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// WhiteConfig returns a detector config that segments white pixels in HSV
// only, with no morphology, so synthetic shapes keep their exact outline.
func WhiteConfig() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.ColorSpace = detector.ColorSpaceHSV
	cfg.Skin = WhiteRange()
	cfg.ErodeIterations = 0
	cfg.DilateIterations = 0
	cfg.CloseIterations = 0
	cfg.MinArea = 3000
	return cfg
}

// WhiteRange is an HSV range that covers white and near-white pixels.
func WhiteRange() detector.Range {
	return detector.Range{
		Lower: [3]uint8{0, 0, 200},
		Upper: [3]uint8{179, 40, 255},
	}
}

// Blank returns a black BGR frame. The caller owns the Mat.
func Blank(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
}

// Circle returns a black frame with a filled circle.
func Circle(width, height int, center image.Point, radius int, c color.RGBA) gocv.Mat {
	frame := Blank(width, height)
	gocv.Circle(&frame, center, radius, c, -1)
	return frame
}

// Polygon returns a black frame with a filled polygon.
func Polygon(width, height int, pts []image.Point, c color.RGBA) gocv.Mat {
	frame := Blank(width, height)
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.FillPoly(&frame, pv, c)
	return frame
}

// StarPoints returns the vertices of a star with the given number of tips,
// the first tip pointing straight up.
func StarPoints(center image.Point, tips int, outer, inner float64) []image.Point {
	pts := make([]image.Point, 0, tips*2)
	step := 2 * math.Pi / float64(tips)
	for i := 0; i < tips; i++ {
		a := -math.Pi/2 + float64(i)*step
		pts = append(pts, polar(center, outer, a))
		pts = append(pts, polar(center, inner, a+step/2))
	}
	return pts
}

func polar(c image.Point, r, a float64) image.Point {
	return image.Pt(
		c.X+int(math.Round(r*math.Cos(a))),
		c.Y+int(math.Round(r*math.Sin(a))),
	)
}

// Star returns a black frame with a filled five-pointed star whose inner
// vertices are sharp enough to count as finger gaps.
func Star(size int) gocv.Mat {
	c := image.Pt(size/2, size/2)
	outer := float64(size) * 0.42
	return Polygon(size, size, StarPoints(c, 5, outer, outer*0.12), White)
}

// VShape returns a black frame with a two-finger "V" outline: one deep
// narrow concavity between two raised fingers.
func VShape() gocv.Mat {
	pts := []image.Point{
		{100, 300}, {40, 60}, {80, 50}, {150, 220},
		{220, 50}, {260, 60}, {200, 300},
	}
	return Polygon(320, 340, pts, White)
}

// Close releases every frame in frames.
func Close(frames ...*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
