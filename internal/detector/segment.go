package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Segment returns a binary mask (CV_8U, 0 or 255) of the pixels of frame that
// fall inside skin, cleaned with erosion, dilation and closing.
//
// The caller owns the returned Mat. Frames that are empty or not 8-bit BGR
// yield an all-zero mask of the same size (or an empty Mat for an empty frame).
func Segment(frame gocv.Mat, cfg Config, skin Range) gocv.Mat {
	if frame.Empty() {
		return gocv.NewMat()
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return blankMask(frame.Rows(), frame.Cols())
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	lo, hi := skin.scalars()
	gocv.InRangeWithScalar(hsv, lo, hi, &mask)

	if cfg.ColorSpace == ColorSpaceHSVYCrCb {
		ycrcb := gocv.NewMat()
		defer ycrcb.Close()
		gocv.CvtColor(frame, &ycrcb, gocv.ColorBGRToYCrCb)

		chroma := gocv.NewMat()
		defer chroma.Close()
		clo, chi := cfg.YCrCb.scalars()
		gocv.InRangeWithScalar(ycrcb, clo, chi, &chroma)

		gocv.BitwiseAnd(mask, chroma, &mask)
	}

	clean(&mask, cfg)
	return mask
}

// clean applies erode, dilate and close passes in place.
func clean(mask *gocv.Mat, cfg Config) {
	size := cfg.KernelSize
	if size <= 0 {
		return
	}

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(size, size))
	defer kernel.Close()

	for i := 0; i < cfg.ErodeIterations; i++ {
		gocv.Erode(*mask, mask, kernel)
	}
	for i := 0; i < cfg.DilateIterations; i++ {
		gocv.Dilate(*mask, mask, kernel)
	}
	for i := 0; i < cfg.CloseIterations; i++ {
		gocv.MorphologyEx(*mask, mask, gocv.MorphClose, kernel)
	}
}

func blankMask(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
}
