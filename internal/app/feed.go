package app

import (
	"bytes"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// subscriberBuffer is how many events a slow subscriber may lag before
// events are dropped for it.
const subscriberBuffer = 16

type subscribers struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func (s *subscribers) init() {
	s.subs = make(map[int]chan Event)
}

// publish never blocks the frame loop.
func (s *subscribers) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *subscribers) subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribe returns a channel of per-frame events and a function that ends
// the subscription and closes the channel.
func (a *App) Subscribe() (<-chan Event, func()) {
	return a.hub.subscribe()
}

// previewBuffer holds the latest annotated frame and mask as JPEG.
type previewBuffer struct {
	mu    sync.RWMutex
	frame []byte
	mask  []byte
	seq   uint64
}

func (a *App) updatePreview(frame *gocv.Mat, res gesture.Result) {
	annotated := frame.Clone()
	defer annotated.Close()

	caption := res.Label.String()
	if res.Found {
		caption = fmt.Sprintf("%s  circ %.2f  gaps %d", res.Label, res.Metrics.Circularity, res.Metrics.FingerGaps)
	}
	detector.DrawOverlay(&annotated, res.Contour, res.Metrics, caption)

	frameJPEG, err := encodeJPEG(annotated)
	if err != nil {
		a.logger.Debug("encode preview", zap.Error(err))
		return
	}
	maskJPEG, err := encodeJPEG(res.Mask)
	if err != nil {
		a.logger.Debug("encode mask", zap.Error(err))
		maskJPEG = nil
	}

	a.preview.mu.Lock()
	a.preview.frame = frameJPEG
	a.preview.mask = maskJPEG
	a.preview.seq++
	a.preview.mu.Unlock()
}

func encodeJPEG(m gocv.Mat) ([]byte, error) {
	if m.Empty() {
		return nil, capture.ErrEmptyFrame
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	// GetBytes aliases native memory released by Close.
	return bytes.Clone(buf.GetBytes()), nil
}

// LatestJPEG returns the most recent annotated frame and a sequence number
// that increases with each update. It returns nil before the first
// classified frame.
func (a *App) LatestJPEG() ([]byte, uint64) {
	a.preview.mu.RLock()
	defer a.preview.mu.RUnlock()
	return a.preview.frame, a.preview.seq
}

// MaskJPEG returns the most recent skin mask.
func (a *App) MaskJPEG() []byte {
	a.preview.mu.RLock()
	defer a.preview.mu.RUnlock()
	return a.preview.mask
}
