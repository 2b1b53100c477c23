package gesture_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/testutil"
)

func newWhiteClassifier() *gesture.Classifier {
	return gesture.NewClassifier(testutil.WhiteConfig(), gesture.DefaultPolicy(), detector.DefaultMargins())
}

func TestClassify_Shapes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	tests := []struct {
		name      string
		frame     func() gocv.Mat
		wantLabel gesture.Label
		wantFound bool
	}{
		{
			name:      "blank frame",
			frame:     func() gocv.Mat { return testutil.Blank(100, 100) },
			wantLabel: gesture.LabelNone,
		},
		{
			name: "filled circle is rock",
			frame: func() gocv.Mat {
				return testutil.Circle(100, 100, image.Pt(50, 50), 40, testutil.White)
			},
			wantLabel: gesture.LabelRock,
			wantFound: true,
		},
		{
			name:      "five pointed star is paper",
			frame:     func() gocv.Mat { return testutil.Star(360) },
			wantLabel: gesture.LabelPaper,
			wantFound: true,
		},
		{
			name:      "v shape is scissors",
			frame:     testutil.VShape,
			wantLabel: gesture.LabelScissors,
			wantFound: true,
		},
		{
			name: "region below minimum area",
			frame: func() gocv.Mat {
				return testutil.Circle(100, 100, image.Pt(50, 50), 25, testutil.White)
			},
			wantLabel: gesture.LabelNone,
		},
	}

	c := newWhiteClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := tt.frame()
			defer frame.Close()

			res := c.Classify(frame)
			defer res.Close()

			assert.Equal(t, tt.wantLabel, res.Label)
			assert.Equal(t, tt.wantFound, res.Found)
			assert.Equal(t, tt.wantFound, res.Measured)
			assert.False(t, res.Mask.Empty(), "mask should be returned for a valid frame")
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	c := newWhiteClassifier()
	frame := testutil.Star(360)
	defer frame.Close()

	first := c.Classify(frame)
	defer first.Close()
	second := c.Classify(frame)
	defer second.Close()

	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Metrics.FingerGaps, second.Metrics.FingerGaps)
	assert.InDelta(t, first.Metrics.Circularity, second.Metrics.Circularity, 1e-12)
}

func TestClassify_OnlyAllowedLabels(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	c := newWhiteClassifier()
	frames := []gocv.Mat{
		testutil.Blank(64, 48),
		testutil.Circle(200, 200, image.Pt(100, 100), 70, testutil.White),
		testutil.Star(360),
		testutil.VShape(),
	}
	defer func() {
		for i := range frames {
			frames[i].Close()
		}
	}()

	for _, f := range frames {
		res := c.Classify(f)
		_, err := gesture.ParseLabel(res.Label.String())
		assert.NoError(t, err)
		res.Close()
	}
}

func TestClassifier_Calibrate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	orange := color.RGBA{R: 200, G: 120, B: 40, A: 255}
	frame := testutil.Circle(200, 200, image.Pt(100, 100), 60, orange)
	defer frame.Close()

	c := newWhiteClassifier()
	before := c.SkinRange()

	t.Run("out of bounds keeps previous range", func(t *testing.T) {
		_, err := c.Calibrate(frame, image.Pt(500, 10))
		require.Error(t, err)
		assert.True(t, errors.Is(err, detector.ErrOutOfBounds))
		assert.Equal(t, before, c.SkinRange())
	})

	t.Run("new range becomes active", func(t *testing.T) {
		r, err := c.Calibrate(frame, image.Pt(100, 100))
		require.NoError(t, err)
		assert.Equal(t, r, c.SkinRange())
		assert.NotEqual(t, before, r)

		res := c.Classify(frame)
		defer res.Close()
		assert.True(t, res.Found, "calibrated range should segment the sampled region")
		assert.Equal(t, gesture.LabelRock, res.Label)
	})

	t.Run("repeat calibration is idempotent", func(t *testing.T) {
		first, err := c.Calibrate(frame, image.Pt(100, 100))
		require.NoError(t, err)
		second, err := c.Calibrate(frame, image.Pt(100, 100))
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestClassifier_Reconfigure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	c := newWhiteClassifier()
	frame := testutil.Circle(100, 100, image.Pt(50, 50), 40, testutil.White)
	defer frame.Close()

	res := c.Classify(frame)
	require.Equal(t, gesture.LabelRock, res.Label)
	res.Close()

	cfg := testutil.WhiteConfig()
	cfg.MinArea = 10000
	c.Reconfigure(cfg, gesture.DefaultPolicy(), detector.DefaultMargins())

	res = c.Classify(frame)
	defer res.Close()
	assert.Equal(t, gesture.LabelNone, res.Label)
	assert.Equal(t, testutil.WhiteRange(), c.SkinRange(), "reconfigure keeps the active range")
}
