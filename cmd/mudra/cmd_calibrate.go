package main

import (
	"errors"
	"fmt"
	"image"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

// warmupFrames are discarded so auto exposure can settle.
const warmupFrames = 10

var (
	calibrateX     int
	calibrateY     int
	calibrateImage string
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Sample skin color at a point and store the new range",
	Long: `Captures one frame (or reads --image), samples the pixel at --x/--y
(the frame centre by default), widens it by the configured margins and saves
the resulting skin range. The next run uses it.

Example:
  mudra calibrate --x 320 --y 240`,
	Args: cobra.NoArgs,
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().IntVar(&calibrateX, "x", -1, "sample column (default: frame centre)")
	calibrateCmd.Flags().IntVar(&calibrateY, "y", -1, "sample row (default: frame centre)")
	calibrateCmd.Flags().StringVar(&calibrateImage, "image", "", "calibrate from an image file instead of the camera")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	if (calibrateX < 0) != (calibrateY < 0) {
		return errors.New("--x and --y must be given together")
	}

	frame, err := calibrationFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	pt := image.Pt(calibrateX, calibrateY)
	if calibrateX < 0 && calibrateY < 0 {
		pt = image.Pt(frame.Cols()/2, frame.Rows()/2)
	}

	r, err := detector.Calibrate(frame, pt, cfg.Calibration.Margins)
	if err != nil {
		if errors.Is(err, detector.ErrOutOfBounds) {
			return fmt.Errorf("point %v is outside the %dx%d frame: %w", pt, frame.Cols(), frame.Rows(), err)
		}
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Settings().SetJSON(store.SettingSkinRange, r); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}

	logger.Info("calibration saved", zap.Int("x", pt.X), zap.Int("y", pt.Y))
	fmt.Fprintf(cmd.OutOrStdout(), "skin range lower=%v upper=%v\n", r.Lower, r.Upper)
	return nil
}

func calibrationFrame() (gocv.Mat, error) {
	if calibrateImage != "" {
		m := gocv.IMRead(calibrateImage, gocv.IMReadColor)
		if m.Empty() {
			m.Close()
			return gocv.Mat{}, fmt.Errorf("read %s: not a readable image", calibrateImage)
		}
		return m, nil
	}

	cam := capture.NewCamera(cfg.Camera)
	if err := cam.Open(); err != nil {
		return gocv.Mat{}, fmt.Errorf("open camera: %w", err)
	}
	defer cam.Close()

	var last *gocv.Mat
	for i := 0; i < warmupFrames; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			continue
		}
		if last != nil {
			last.Close()
		}
		last = f
	}
	if last == nil {
		return gocv.Mat{}, fmt.Errorf("no frame from camera %d: %w", cfg.Camera.DeviceID, capture.ErrEmptyFrame)
	}
	return *last, nil
}
