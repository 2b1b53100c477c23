package gesture

import (
	"sync"
	"time"
)

// Stabilizer turns a stream of per-frame labels into discrete triggers.
//
// A label fires once it has been observed continuously for the hold time.
// After firing the hold restarts, and fires inside the cooldown window are
// swallowed. LabelNone resets the hold. A fire that led to no action can be
// handed back with Release so it does not hold off the next label.
type Stabilizer struct {
	mu       sync.Mutex
	hold     time.Duration
	cooldown time.Duration
	now      func() time.Time

	current  Label
	since    time.Time
	lastFire time.Time
}

// NewStabilizer creates a Stabilizer with the given hold and cooldown.
func NewStabilizer(hold, cooldown time.Duration) *Stabilizer {
	return &Stabilizer{
		hold:     hold,
		cooldown: cooldown,
		now:      time.Now,
		current:  LabelNone,
	}
}

// SetTimings changes hold and cooldown without resetting state.
func (s *Stabilizer) SetTimings(hold, cooldown time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = hold
	s.cooldown = cooldown
}

// Observe records a label and reports whether it should trigger now.
func (s *Stabilizer) Observe(l Label) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if !l.IsActionable() {
		s.current = LabelNone
		return false
	}

	if l != s.current {
		s.current = l
		s.since = now
	}

	if now.Sub(s.since) < s.hold {
		return false
	}

	// Held long enough: restart the hold whether or not the cooldown allows a fire.
	s.current = LabelNone
	if !s.lastFire.IsZero() && now.Sub(s.lastFire) < s.cooldown {
		return false
	}
	s.lastFire = now
	return true
}

// Release ends the cooldown started by the last fire.
func (s *Stabilizer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFire = time.Time{}
}

// Progress returns the label being held and the fraction of the hold time
// elapsed, in [0,1].
func (s *Stabilizer) Progress() (Label, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == LabelNone {
		return LabelNone, 0
	}
	if s.hold <= 0 {
		return s.current, 1
	}
	p := float64(s.now().Sub(s.since)) / float64(s.hold)
	if p > 1 {
		p = 1
	}
	return s.current, p
}

// Reset forgets the held label. The cooldown is kept.
func (s *Stabilizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = LabelNone
}
