package gesture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// Policy holds the decision thresholds applied to shape metrics.
type Policy struct {
	// RockCircularity: circularity strictly above it is rock.
	RockCircularity float64 `json:"circularity_rock_threshold" yaml:"circularity_rock_threshold"`
	// PaperFingers: at least this many finger gaps is paper.
	PaperFingers int `json:"finger_paper_threshold" yaml:"finger_paper_threshold"`
	// ScissorsMin and ScissorsMax bound (inclusive) the finger gaps for scissors.
	ScissorsMin int `json:"finger_scissors_min" yaml:"finger_scissors_min"`
	ScissorsMax int `json:"finger_scissors_max" yaml:"finger_scissors_max"`
}

// DefaultPolicy returns circularity > 0.85 for rock, >= 4 gaps for paper
// and 1-3 gaps for scissors.
func DefaultPolicy() Policy {
	return Policy{
		RockCircularity: 0.85,
		PaperFingers:    4,
		ScissorsMin:     1,
		ScissorsMax:     3,
	}
}

// Validate checks that the thresholds describe a usable decision tree.
func (p Policy) Validate() error {
	if p.RockCircularity <= 0 || p.RockCircularity > 1 {
		return fmt.Errorf("circularity_rock_threshold must be in (0,1], got %v", p.RockCircularity)
	}
	if p.PaperFingers < 1 {
		return fmt.Errorf("finger_paper_threshold must be at least 1, got %d", p.PaperFingers)
	}
	if p.ScissorsMin < 0 || p.ScissorsMin > p.ScissorsMax {
		return fmt.Errorf("finger_scissors range [%d,%d] is invalid", p.ScissorsMin, p.ScissorsMax)
	}
	return nil
}

// Decide maps metrics to a label. Rules are checked in order: rock, paper,
// scissors, none.
func (p Policy) Decide(m detector.Metrics) Label {
	switch {
	case m.Perimeter <= 0:
		return LabelNone
	case m.Circularity > p.RockCircularity:
		return LabelRock
	case m.FingerGaps >= p.PaperFingers:
		return LabelPaper
	case m.FingerGaps >= p.ScissorsMin && m.FingerGaps <= p.ScissorsMax:
		return LabelScissors
	}
	return LabelNone
}
