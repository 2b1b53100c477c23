// Package detector isolates a skin-coloured hand region in a video frame and
// measures the shape of its outline.
//
// The pipeline is segmentation (Segment), contour selection (SelectContour)
// and shape scoring (Measure). None of the stages return errors for
// well-formed frames; a frame without a usable region is reported through the
// boolean results instead.
package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ColorSpace selects which perceptual color spaces segmentation thresholds.
type ColorSpace string

const (
	// ColorSpaceHSV thresholds the frame in HSV only.
	ColorSpaceHSV ColorSpace = "hsv"
	// ColorSpaceHSVYCrCb thresholds in HSV and YCrCb and ANDs the two masks.
	ColorSpaceHSVYCrCb ColorSpace = "hsv+ycrcb"
)

// Range is an inclusive per-channel bound in a three-channel color space.
type Range struct {
	Lower [3]uint8 `json:"lower" yaml:"lower"`
	Upper [3]uint8 `json:"upper" yaml:"upper"`
}

// Contains reports whether px lies inside the range on every channel.
func (r Range) Contains(px [3]uint8) bool {
	for i := 0; i < 3; i++ {
		if px[i] < r.Lower[i] || px[i] > r.Upper[i] {
			return false
		}
	}
	return true
}

func (r Range) scalars() (gocv.Scalar, gocv.Scalar) {
	lo := gocv.NewScalar(float64(r.Lower[0]), float64(r.Lower[1]), float64(r.Lower[2]), 0)
	hi := gocv.NewScalar(float64(r.Upper[0]), float64(r.Upper[1]), float64(r.Upper[2]), 0)
	return lo, hi
}

// Config holds the segmentation and contour parameters.
type Config struct {
	// ColorSpace selects single (HSV) or combined (HSV AND YCrCb) thresholding.
	ColorSpace ColorSpace `json:"color_space" yaml:"color_space"`

	// Skin is the initial HSV skin range. Calibration replaces the active
	// range held by the classifier, not this value.
	Skin Range `json:"skin" yaml:"skin"`

	// YCrCb is the fixed chroma range used when ColorSpace is ColorSpaceHSVYCrCb.
	YCrCb Range `json:"ycrcb" yaml:"ycrcb"`

	// KernelSize is the diameter of the elliptical structuring element.
	KernelSize int `json:"kernel_size" yaml:"kernel_size"`

	// ErodeIterations must not exceed DilateIterations.
	ErodeIterations  int `json:"erode_iterations" yaml:"erode_iterations"`
	DilateIterations int `json:"dilate_iterations" yaml:"dilate_iterations"`
	CloseIterations  int `json:"close_iterations" yaml:"close_iterations"`

	// MinArea is the smallest contour area in px² that can be a hand.
	MinArea float64 `json:"min_area" yaml:"min_area"`

	// AspectMin and AspectMax bound the bounding-box width/height ratio.
	// Both zero disables the filter.
	AspectMin float64 `json:"aspect_min" yaml:"aspect_min"`
	AspectMax float64 `json:"aspect_max" yaml:"aspect_max"`

	// MaxDefectAngle is the widest angle, in degrees, at a defect's far
	// point for it to count as a finger gap.
	MaxDefectAngle float64 `json:"max_defect_angle" yaml:"max_defect_angle"`

	// MinDefectDepth is the shallowest defect, in pixels, that can count as
	// a finger gap. A one-pixel stair step on a diagonal edge is a defect
	// with a 90 degree corner and a depth of about 0.7 px. Zero counts every
	// defect that passes the angle test.
	MinDefectDepth float64 `json:"min_defect_depth" yaml:"min_defect_depth"`
}

// DefaultConfig returns the combined HSV/YCrCb configuration with the
// thresholds used by the launcher.
func DefaultConfig() Config {
	return Config{
		ColorSpace: ColorSpaceHSVYCrCb,
		Skin: Range{
			Lower: [3]uint8{0, 30, 60},
			Upper: [3]uint8{20, 150, 255},
		},
		YCrCb: Range{
			Lower: [3]uint8{0, 135, 85},
			Upper: [3]uint8{255, 180, 135},
		},
		KernelSize:       5,
		ErodeIterations:  1,
		DilateIterations: 2,
		CloseIterations:  2,
		MinArea:          5000,
		AspectMin:        0.5,
		AspectMax:        1.5,
		MaxDefectAngle:   90,
		MinDefectDepth:   8,
	}
}

// aspectOK reports whether a w/h ratio passes the configured bounds.
func (c Config) aspectOK(w, h int) bool {
	if c.AspectMin == 0 && c.AspectMax == 0 {
		return true
	}
	if h == 0 {
		return false
	}
	ratio := float64(w) / float64(h)
	return ratio >= c.AspectMin && ratio <= c.AspectMax
}

// Validate checks the parameter invariants.
func (c Config) Validate() error {
	switch c.ColorSpace {
	case ColorSpaceHSV, ColorSpaceHSVYCrCb:
	default:
		return fmt.Errorf("unknown color_space %q", c.ColorSpace)
	}
	for i := 0; i < 3; i++ {
		if c.Skin.Lower[i] > c.Skin.Upper[i] {
			return fmt.Errorf("skin range channel %d: lower %d above upper %d", i, c.Skin.Lower[i], c.Skin.Upper[i])
		}
	}
	for i := 0; i < 3; i++ {
		if c.YCrCb.Lower[i] > c.YCrCb.Upper[i] {
			return fmt.Errorf("ycrcb range channel %d: lower %d above upper %d", i, c.YCrCb.Lower[i], c.YCrCb.Upper[i])
		}
	}
	if c.Skin.Upper[0] > maxHue {
		return fmt.Errorf("skin hue upper bound %d exceeds %d", c.Skin.Upper[0], maxHue)
	}
	if c.KernelSize < 1 {
		return fmt.Errorf("kernel_size must be positive, got %d", c.KernelSize)
	}
	if c.ErodeIterations < 0 || c.DilateIterations < 0 || c.CloseIterations < 0 {
		return fmt.Errorf("morphology iterations must not be negative")
	}
	if c.ErodeIterations > c.DilateIterations {
		return fmt.Errorf("erode_iterations (%d) must not exceed dilate_iterations (%d)", c.ErodeIterations, c.DilateIterations)
	}
	if c.MinArea <= 0 {
		return fmt.Errorf("min_area must be positive, got %v", c.MinArea)
	}
	if c.AspectMin < 0 || c.AspectMin > c.AspectMax {
		return fmt.Errorf("aspect range [%v,%v] is invalid", c.AspectMin, c.AspectMax)
	}
	if c.MaxDefectAngle <= 0 || c.MaxDefectAngle > 180 {
		return fmt.Errorf("max_defect_angle must be in (0,180], got %v", c.MaxDefectAngle)
	}
	if c.MinDefectDepth < 0 {
		return fmt.Errorf("min_defect_depth must not be negative, got %v", c.MinDefectDepth)
	}
	return nil
}
