package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

// Run drives the frame loop until ctx is cancelled, a finite source ends, or
// the camera fails repeatedly. The camera is opened on entry and always
// closed on exit; in-flight plugin runs are awaited before returning.
//
// Per frame: keep a copy for calibration, feed the motion gate, and while
// active classify every Nth frame, publish the label, update the preview and
// dispatch labels the stabilizer reports as held.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.logger.Warn("close camera", zap.Error(err))
		}
	}()
	defer a.gate.Close()
	defer a.dispatchWG.Wait()

	fps := a.gate.FPS()
	a.camera.SetFPS(fps)
	ticker := time.NewTicker(frameInterval(fps))
	defer ticker.Stop()

	a.logger.Info("frame loop started", zap.Int("fps", fps))
	defer a.logger.Info("frame loop stopped")

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			return nil
		}
		if err != nil {
			failures++
			a.logger.Warn("read frame", zap.Int("consecutive", failures), zap.Error(err))
			if failures >= maxReadFailures {
				return fmt.Errorf("camera failed %d times in a row: %w", failures, err)
			}
			continue
		}
		failures = 0

		a.processFrame(ctx, frame)
		frame.Close()

		if next := a.gate.FPS(); next != fps {
			fps = next
			a.camera.SetFPS(fps)
			ticker.Reset(frameInterval(fps))
			a.logger.Debug("capture rate changed", zap.Int("fps", fps), zap.Bool("active", a.gate.Active()))
		}
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// processFrame handles one captured frame. It never fails; problems with a
// single frame are logged.
func (a *App) processFrame(ctx context.Context, frame *gocv.Mat) {
	a.keepFrame(frame)

	if !a.gate.Observe(frame) {
		a.stabilizer.Reset()
		a.setActive(false)
		return
	}
	a.setActive(true)

	cfg := a.config()
	a.frameCount++
	if n := uint64(cfg.Trigger.EveryNFrames); n > 1 && a.frameCount%n != 0 {
		return
	}

	res := a.classifier.Classify(*frame)
	defer res.Close()

	enabled := a.IsEnabled()
	fired := false
	if enabled {
		fired = a.stabilizer.Observe(res.Label)
	}
	held, progress := a.stabilizer.Progress()

	if cfg.Cursor.Enabled && enabled {
		a.trackCursor(ctx, res)
	}

	now := time.Now()
	ev := Event{
		Label:       res.Label,
		Found:       res.Found,
		Circularity: res.Metrics.Circularity,
		FingerGaps:  res.Metrics.FingerGaps,
		Area:        res.Contour.Area,
		Held:        held,
		Progress:    progress,
		Triggered:   fired,
		Time:        now,
	}
	a.recordStatus(ev)
	a.hub.publish(ev)

	if cfg.Server.Enabled {
		a.updatePreview(frame, res)
	}

	if fired {
		a.logger.Info("gesture triggered", zap.String("label", res.Label.String()))
		a.dispatch(ctx, res.Label)
	}
}

// keepFrame retains a copy of the raw frame for calibration.
func (a *App) keepFrame(frame *gocv.Mat) {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	frame.CopyTo(&a.lastFrame)
}

func (a *App) trackCursor(ctx context.Context, res gesture.Result) {
	a.mu.RLock()
	mapper := a.cursor
	a.mu.RUnlock()

	if !res.Found {
		mapper.Reset()
		return
	}
	// Zero metrics would pull the average towards the corner.
	if !res.Measured {
		return
	}
	if p, ok := mapper.Update(res.Metrics.Centroid); ok {
		a.moveCursor(ctx, p)
	}
}
