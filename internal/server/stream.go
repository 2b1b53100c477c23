package server

import (
	"fmt"
	"net/http"
	"time"
)

// defaultStreamInterval polls for new preview frames at about 15 fps.
const defaultStreamInterval = 66 * time.Millisecond

// FrameSource provides the latest annotated frame as JPEG together with a
// sequence number that changes whenever the frame does.
type FrameSource interface {
	LatestJPEG() ([]byte, uint64)
}

// StreamHandler serves the debug preview as MJPEG.
type StreamHandler struct {
	source   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a StreamHandler. A non-positive interval uses the
// default polling rate.
func NewStreamHandler(source FrameSource, interval time.Duration) *StreamHandler {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return &StreamHandler{source: source, interval: interval}
}

// ServeHTTP writes each new frame as a multipart part until the client goes
// away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		if buf, seq := h.source.LatestJPEG(); len(buf) > 0 && seq != last {
			last = seq
			if err := writePart(w, buf); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
