package detector

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

var (
	// ErrOutOfBounds is returned when a calibration sample lies outside the frame.
	ErrOutOfBounds = errors.New("sample point outside frame")
	// ErrInvalidFrame is returned when a frame is empty or not 8-bit BGR.
	ErrInvalidFrame = errors.New("frame is empty or not 8-bit BGR")
)

// Margins are the per-channel half-widths used to build a range around a
// sampled HSV color.
type Margins struct {
	Hue        uint8 `json:"hue" yaml:"hue"`
	Saturation uint8 `json:"saturation" yaml:"saturation"`
	Value      uint8 `json:"value" yaml:"value"`
}

// DefaultMargins returns ±15 hue and -60 saturation/value.
func DefaultMargins() Margins {
	return Margins{Hue: 15, Saturation: 60, Value: 60}
}

// maxHue is the top of OpenCV's 8-bit hue scale.
const maxHue = 179

// RangeAround derives a skin range from one HSV sample. Hue is widened
// symmetrically and clamped to [0,179]; saturation and value keep only a
// lower bound, their upper bounds are fixed at 255.
func RangeAround(hsv [3]uint8, m Margins) Range {
	return Range{
		Lower: [3]uint8{
			subClamp(hsv[0], m.Hue),
			subClamp(hsv[1], m.Saturation),
			subClamp(hsv[2], m.Value),
		},
		Upper: [3]uint8{
			uint8(min(int(hsv[0])+int(m.Hue), maxHue)),
			255,
			255,
		},
	}
}

func subClamp(v, d uint8) uint8 {
	if d > v {
		return 0
	}
	return v - d
}

// SampleHSV returns the HSV color of the pixel at pt.
func SampleHSV(frame gocv.Mat, pt image.Point) ([3]uint8, error) {
	if frame.Empty() || frame.Type() != gocv.MatTypeCV8UC3 {
		return [3]uint8{}, ErrInvalidFrame
	}
	if pt.X < 0 || pt.Y < 0 || pt.X >= frame.Cols() || pt.Y >= frame.Rows() {
		return [3]uint8{}, ErrOutOfBounds
	}

	px := frame.Region(image.Rect(pt.X, pt.Y, pt.X+1, pt.Y+1))
	defer px.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(px, &hsv, gocv.ColorBGRToHSV)

	v := hsv.GetVecbAt(0, 0)
	return [3]uint8{v[0], v[1], v[2]}, nil
}

// Calibrate samples the pixel at pt and returns the range around it.
func Calibrate(frame gocv.Mat, pt image.Point, m Margins) (Range, error) {
	hsv, err := SampleHSV(frame, pt)
	if err != nil {
		return Range{}, err
	}
	return RangeAround(hsv, m), nil
}
