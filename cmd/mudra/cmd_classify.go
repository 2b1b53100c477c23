package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

var (
	classifyJSON       bool
	classifyOverlayDir string
	classifyNoStore    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>...",
	Short: "Classify still images and print label and shape metrics",
	Long: `Runs the classifier on each image and prints the label, circularity,
finger-gap count and contour area. The calibrated skin range is read from the
store unless --no-store is given.

Example:
  mudra classify hand1.jpg hand2.jpg --overlay /tmp/annotated`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print one JSON object per image")
	classifyCmd.Flags().StringVar(&classifyOverlayDir, "overlay", "", "write annotated copies to this directory")
	classifyCmd.Flags().BoolVar(&classifyNoStore, "no-store", false, "ignore the calibrated skin range in the store")
}

type classification struct {
	Image       string        `json:"image"`
	Label       gesture.Label `json:"label"`
	Found       bool          `json:"found"`
	Circularity float64       `json:"circularity"`
	FingerGaps  int           `json:"finger_gaps"`
	Area        float64       `json:"area"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	classifier := gesture.NewClassifier(cfg.Detector, cfg.Policy, cfg.Calibration.Margins)
	if !classifyNoStore {
		if r, ok := storedSkinRange(); ok {
			classifier.SetSkinRange(r)
		}
	}

	if classifyOverlayDir != "" {
		if err := os.MkdirAll(classifyOverlayDir, 0o755); err != nil {
			return fmt.Errorf("create overlay directory: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if !classifyJSON {
		fmt.Fprintln(tw, "IMAGE\tLABEL\tCIRCULARITY\tGAPS\tAREA")
	}

	for _, path := range args {
		c, err := classifyFile(classifier, path)
		if err != nil {
			return err
		}
		if classifyJSON {
			if err := enc.Encode(c); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%d\t%.0f\n", c.Image, c.Label, c.Circularity, c.FingerGaps, c.Area)
	}
	return tw.Flush()
}

func classifyFile(classifier *gesture.Classifier, path string) (classification, error) {
	frame := gocv.IMRead(path, gocv.IMReadColor)
	defer frame.Close()
	if frame.Empty() {
		return classification{}, fmt.Errorf("read %s: not a readable image", path)
	}

	res := classifier.Classify(frame)
	defer res.Close()

	if classifyOverlayDir != "" {
		annotated := frame.Clone()
		defer annotated.Close()
		detector.DrawOverlay(&annotated, res.Contour, res.Metrics, res.Label.String())
		dst := filepath.Join(classifyOverlayDir, filepath.Base(path))
		if !gocv.IMWrite(dst, annotated) {
			logger.Warn("write overlay failed", zap.String("path", dst))
		}
	}

	return classification{
		Image:       path,
		Label:       res.Label,
		Found:       res.Found,
		Circularity: res.Metrics.Circularity,
		FingerGaps:  res.Metrics.FingerGaps,
		Area:        res.Contour.Area,
	}, nil
}

// storedSkinRange reads the calibrated range without creating a database
// that does not exist yet.
func storedSkinRange() (detector.Range, bool) {
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		return detector.Range{}, false
	}
	st, err := openStore()
	if err != nil {
		logger.Warn("calibration unavailable", zap.Error(err))
		return detector.Range{}, false
	}
	defer st.Close()

	var r detector.Range
	err = st.Settings().GetJSON(store.SettingSkinRange, &r)
	if errors.Is(err, store.ErrNotFound) {
		return detector.Range{}, false
	}
	if err != nil {
		logger.Warn("calibration unavailable", zap.Error(err))
		return detector.Range{}, false
	}
	return r, true
}
