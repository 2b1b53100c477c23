// Package gesture turns hand shape measurements into rock/paper/scissors
// labels and decides when a label has been held long enough to act on.
package gesture

import "fmt"

// Label is the discrete classifier output.
type Label string

const (
	// LabelNone means no qualifying hand region, or a shape that matches no rule.
	LabelNone Label = "none"
	// LabelRock is a closed fist: a compact, nearly circular outline.
	LabelRock Label = "rock"
	// LabelPaper is an open hand: many finger gaps.
	LabelPaper Label = "paper"
	// LabelScissors is two or three extended fingers: a few finger gaps.
	LabelScissors Label = "scissors"
)

// Actionable lists the labels that can be bound to actions.
var Actionable = []Label{LabelRock, LabelPaper, LabelScissors}

// ParseLabel converts a string to a Label.
func ParseLabel(s string) (Label, error) {
	switch l := Label(s); l {
	case LabelNone, LabelRock, LabelPaper, LabelScissors:
		return l, nil
	}
	return LabelNone, fmt.Errorf("unknown gesture label %q", s)
}

// IsActionable reports whether l is one of rock, paper or scissors.
func (l Label) IsActionable() bool {
	return l == LabelRock || l == LabelPaper || l == LabelScissors
}

func (l Label) String() string {
	return string(l)
}
