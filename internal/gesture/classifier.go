package gesture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// Result is the outcome of classifying one frame.
type Result struct {
	Label   Label
	Found   bool // a qualifying contour was selected
	Contour detector.Contour
	// Measured is false when the contour geometry was degenerate; Metrics
	// is then zero.
	Measured bool
	Metrics  detector.Metrics
	// Mask is the cleaned skin mask. The caller must Close the Result.
	Mask gocv.Mat
}

// Close releases the mask.
func (r *Result) Close() {
	r.Mask.Close()
}

// Classifier labels frames as rock, paper, scissors or none.
//
// The active skin range is the only mutable state; Calibrate and SetSkinRange
// replace it and the next Classify call uses the new value.
type Classifier struct {
	mu      sync.RWMutex
	cfg     detector.Config
	policy  Policy
	margins detector.Margins
	skin    detector.Range
}

// NewClassifier creates a Classifier whose active skin range starts at cfg.Skin.
func NewClassifier(cfg detector.Config, policy Policy, margins detector.Margins) *Classifier {
	return &Classifier{
		cfg:     cfg,
		policy:  policy,
		margins: margins,
		skin:    cfg.Skin,
	}
}

// Classify segments frame, selects the hand contour and applies the policy.
// It never fails: frames without a qualifying region, and degenerate
// geometry, produce LabelNone.
func (c *Classifier) Classify(frame gocv.Mat) Result {
	c.mu.RLock()
	cfg, policy, skin := c.cfg, c.policy, c.skin
	c.mu.RUnlock()

	res := Result{Label: LabelNone}
	res.Mask = detector.Segment(frame, cfg, skin)

	contour, ok := detector.SelectContour(res.Mask, cfg)
	if !ok {
		return res
	}
	res.Found = true
	res.Contour = contour

	metrics, ok := detector.Measure(contour, cfg)
	if !ok {
		return res
	}
	res.Measured = true
	res.Metrics = metrics
	res.Label = policy.Decide(metrics)
	return res
}

// Calibrate samples frame at pt and makes the derived range active.
// On error the active range is left unchanged.
func (c *Classifier) Calibrate(frame gocv.Mat, pt image.Point) (detector.Range, error) {
	c.mu.RLock()
	margins := c.margins
	c.mu.RUnlock()

	r, err := detector.Calibrate(frame, pt, margins)
	if err != nil {
		return detector.Range{}, err
	}

	c.SetSkinRange(r)
	return r, nil
}

// SkinRange returns the active skin range.
func (c *Classifier) SkinRange() detector.Range {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skin
}

// SetSkinRange replaces the active skin range.
func (c *Classifier) SetSkinRange(r detector.Range) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skin = r
}

// Policy returns the current decision thresholds.
func (c *Classifier) Policy() Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy
}

// Reconfigure swaps segmentation parameters, policy and calibration margins.
// The active skin range is kept.
func (c *Classifier) Reconfigure(cfg detector.Config, policy Policy, margins detector.Margins) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.policy = policy
	c.margins = margins
}
