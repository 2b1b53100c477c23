package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size used to suppress sensor noise.
	GaussianBlurSize = 21
	// DiffThreshold is the per-pixel intensity change counted as motion.
	DiffThreshold = 25
)

// MotionDetector compares consecutive frames by blurred grey-level
// differencing.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a detector that reports motion when more than
// threshold percent of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion was
// seen and the percentage of changed pixels. The first frame after creation
// or Reset only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(GaussianBlurSize, GaussianBlurSize), 0, 0, gocv.BorderDefault)

	// A resolution change invalidates the baseline.
	if !m.initialized || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	changePercent := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0

	blurred.CopyTo(&m.prevGray)

	return changePercent > m.threshold, changePercent
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline frame. The detector stays usable.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// SetThreshold changes the change percentage. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// GateConfig configures a MotionGate.
type GateConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Threshold is the percentage of changed pixels that counts as motion.
	Threshold float64 `yaml:"threshold" json:"threshold"`
	IdleFPS   int     `yaml:"idle_fps" json:"idle_fps"`
	ActiveFPS int     `yaml:"active_fps" json:"active_fps"`
	// IdleAfter is how long without motion before dropping back to idle.
	IdleAfter time.Duration `yaml:"idle_after" json:"idle_after"`
}

// DefaultGateConfig samples at 5 fps while idle and 15 fps after motion,
// going idle again after 10s of stillness.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Enabled:   true,
		Threshold: 1.0,
		IdleFPS:   5,
		ActiveFPS: 15,
		IdleAfter: 10 * time.Second,
	}
}

// MotionGate switches between an idle and an active sampling rate. The frame
// loop only classifies while the gate is active. A disabled gate is always
// active.
type MotionGate struct {
	cfg        GateConfig
	detector   *MotionDetector
	now        func() time.Time
	active     bool
	lastMotion time.Time
}

// NewMotionGate creates a gate. It starts idle unless disabled.
func NewMotionGate(cfg GateConfig) *MotionGate {
	return &MotionGate{
		cfg:      cfg,
		detector: NewMotionDetector(cfg.Threshold),
		now:      time.Now,
		active:   !cfg.Enabled,
	}
}

// Observe feeds a frame and reports whether the gate is active afterwards.
// A held hand is nearly still, so the gate stays active for IdleAfter after
// the last motion instead of closing on the first quiet frame.
func (g *MotionGate) Observe(frame *gocv.Mat) bool {
	if !g.cfg.Enabled {
		return true
	}

	moved, _ := g.detector.Detect(frame)
	now := g.now()
	if moved {
		g.active = true
		g.lastMotion = now
		return true
	}
	if g.active && now.Sub(g.lastMotion) >= g.cfg.IdleAfter {
		g.active = false
	}
	return g.active
}

// Active reports the current state.
func (g *MotionGate) Active() bool {
	return g.active
}

// FPS returns the sampling rate for the current state.
func (g *MotionGate) FPS() int {
	if g.active {
		return g.cfg.ActiveFPS
	}
	return g.cfg.IdleFPS
}

// Close releases the detector baseline.
func (g *MotionGate) Close() {
	g.detector.Close()
}
