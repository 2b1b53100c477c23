package gesture

import "image"

// minCursorSamples is how many positions must be buffered before the mapper
// emits a cursor position.
const minCursorSamples = 3

// CursorMapper maps hand centroids in frame coordinates to smoothed screen
// coordinates. X is mirrored so moving the hand right moves the cursor right
// on an unmirrored camera image.
type CursorMapper struct {
	frame   image.Point
	screen  image.Point
	mirror  bool
	window  int
	samples []image.Point
}

// NewCursorMapper creates a mapper averaging over the last window positions.
func NewCursorMapper(frame, screen image.Point, window int, mirror bool) *CursorMapper {
	if window < minCursorSamples {
		window = minCursorSamples
	}
	return &CursorMapper{
		frame:  frame,
		screen: screen,
		mirror: mirror,
		window: window,
	}
}

// Update adds a centroid and returns the averaged screen position once enough
// samples exist.
func (m *CursorMapper) Update(p image.Point) (image.Point, bool) {
	if m.frame.X <= 0 || m.frame.Y <= 0 {
		return image.Point{}, false
	}

	sx := p.X * m.screen.X / m.frame.X
	if m.mirror {
		sx = m.screen.X - sx
	}
	sy := p.Y * m.screen.Y / m.frame.Y

	m.samples = append(m.samples, image.Pt(sx, sy))
	if len(m.samples) > m.window {
		m.samples = m.samples[len(m.samples)-m.window:]
	}
	if len(m.samples) < minCursorSamples {
		return image.Point{}, false
	}

	var sum image.Point
	for _, s := range m.samples {
		sum = sum.Add(s)
	}
	return sum.Div(len(m.samples)), true
}

// Reset drops buffered samples, e.g. when the hand leaves the frame.
func (m *CursorMapper) Reset() {
	m.samples = m.samples[:0]
}
