package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Playback replays a fixed sequence of frames as a Camera. It backs the
// replay mode of the run command and the frame-loop tests.
type Playback struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	fps     int
	mu      sync.Mutex
	running bool
}

// NewPlayback creates a Playback over frames. The frames stay owned by the
// caller; ReadFrame returns clones.
func NewPlayback(frames []*gocv.Mat, loop bool) *Playback {
	return &Playback{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

// LoadPlayback reads image files into a Playback. The returned Playback owns
// the frames; call Release when done.
func LoadPlayback(paths []string, loop bool) (*Playback, error) {
	frames := make([]*gocv.Mat, 0, len(paths))
	for _, p := range paths {
		m := gocv.IMRead(p, gocv.IMReadColor)
		if m.Empty() {
			m.Close()
			releaseAll(frames)
			return nil, fmt.Errorf("load frame %s: unreadable image", p)
		}
		frames = append(frames, &m)
	}
	if len(frames) == 0 {
		return nil, errors.New("load playback: no frames")
	}
	return NewPlayback(frames, loop), nil
}

func (c *Playback) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *Playback) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a clone of the next frame, or ErrEndOfStream once a
// non-looping sequence is exhausted.
func (c *Playback) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if c.index >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, ErrEndOfStream
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *Playback) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *Playback) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *Playback) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reset restarts playback from the beginning
func (c *Playback) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}

// Release closes frames loaded by LoadPlayback.
func (c *Playback) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	releaseAll(c.frames)
	c.frames = nil
}

func releaseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
