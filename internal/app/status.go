package app

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Event is the per-frame classification published to subscribers.
type Event struct {
	Label       gesture.Label `json:"label"`
	Found       bool          `json:"found"`
	Circularity float64       `json:"circularity"`
	FingerGaps  int           `json:"finger_gaps"`
	Area        float64       `json:"area"`
	// Held is the label the stabilizer is timing and Progress how far
	// through the hold it is, in [0,1].
	Held      gesture.Label `json:"held"`
	Progress  float64       `json:"progress"`
	Triggered bool          `json:"triggered"`
	Time      time.Time     `json:"time"`
}

// Status is a snapshot of the runtime for the API and tray.
type Status struct {
	Enabled     bool           `json:"enabled"`
	Running     bool           `json:"running"`
	Active      bool           `json:"active"`
	Label       gesture.Label  `json:"label"`
	Found       bool           `json:"found"`
	Circularity float64        `json:"circularity"`
	FingerGaps  int            `json:"finger_gaps"`
	Area        float64        `json:"area"`
	Held        gesture.Label  `json:"held"`
	Progress    float64        `json:"progress"`
	SkinRange   detector.Range `json:"skin_range"`
	LastTrigger *time.Time     `json:"last_trigger,omitempty"`
	Frames      uint64         `json:"frames"`
}

func (a *App) recordStatus(ev Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.status.Label = ev.Label
	a.status.Found = ev.Found
	a.status.Circularity = ev.Circularity
	a.status.FingerGaps = ev.FingerGaps
	a.status.Area = ev.Area
	a.status.Held = ev.Held
	a.status.Progress = ev.Progress
	a.status.Frames++
	if ev.Triggered {
		t := ev.Time
		a.status.LastTrigger = &t
	}
}

func (a *App) setActive(active bool) {
	a.mu.Lock()
	a.status.Active = active
	if !active {
		a.status.Label = gesture.LabelNone
		a.status.Found = false
		a.status.Held = gesture.LabelNone
		a.status.Progress = 0
	}
	a.mu.Unlock()
}

// Status returns a copy of the current state.
func (a *App) Status() Status {
	a.mu.RLock()
	s := a.status
	a.mu.RUnlock()

	s.Running = a.running.Load()
	if s.LastTrigger != nil {
		t := *s.LastTrigger
		s.LastTrigger = &t
	}
	return s
}
