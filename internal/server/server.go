// Package server provides the HTTP API, the debug MJPEG stream and the live
// label feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Runtime is the part of the gesture runtime the server drives. *app.App
// implements it.
type Runtime interface {
	Status() app.Status
	SetEnabled(enabled bool)
	Calibrate(pt image.Point) (detector.Range, error)
	CalibrateCenter() (detector.Range, error)
	Trigger(ctx context.Context, label gesture.Label) error
	LatestJPEG() ([]byte, uint64)
	MaskJPEG() []byte
	Subscribe() (<-chan app.Event, func())
}

// Config holds the server configuration. Routes whose dependency is nil are
// not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Plugins   *plugin.Manager
	Runtime   Runtime
	Logger    *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	config Config
	logger *zap.Logger
	mux    *http.ServeMux
	start  time.Time
}

// New creates a Server with its routes registered.
func New(config Config) *Server {
	s := &Server{
		config: config,
		logger: logging.OrNop(config.Logger),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		var catalog api.PluginCatalog
		if s.config.Plugins != nil {
			catalog = s.config.Plugins
		}
		bindings := api.NewBindingHandler(s.config.Store, catalog)
		s.mux.Handle("/api/bindings", bindings)
		s.mux.Handle("/api/bindings/", bindings)
		s.mux.Handle("/api/events", api.NewEventHandler(s.config.Store))
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginHandler(s.config.Plugins))
	}

	if rt := s.config.Runtime; rt != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/enable", s.handleEnable)
		s.mux.HandleFunc("/api/calibrate", s.handleCalibrate)
		s.mux.HandleFunc("/api/trigger/", s.handleTrigger)
		s.mux.Handle("/api/stream", NewStreamHandler(rt, 0))
		s.mux.HandleFunc("/api/mask", s.handleMask)
		s.mux.Handle("/api/labels", NewLabelsHandler(rt.Subscribe, s.logger.Named("ws")))
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	api.WriteJSON(w, http.StatusOK, s.config.Runtime.Status())
}

type enableRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req enableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		api.WriteError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}

	s.config.Runtime.SetEnabled(*req.Enabled)
	api.WriteJSON(w, http.StatusOK, s.config.Runtime.Status())
}

type calibrateRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type calibrateResponse struct {
	SkinRange detector.Range `json:"skin_range"`
}

// handleCalibrate samples the last frame at {x,y}, or at its centre when the
// body is empty or omits the point.
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req calibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var (
		rng detector.Range
		err error
	)
	switch {
	case req.X != nil && req.Y != nil:
		rng, err = s.config.Runtime.Calibrate(image.Pt(*req.X, *req.Y))
	case req.X == nil && req.Y == nil:
		rng, err = s.config.Runtime.CalibrateCenter()
	default:
		api.WriteError(w, http.StatusBadRequest, "x and y must be given together")
		return
	}

	switch {
	case err == nil:
		api.WriteJSON(w, http.StatusOK, calibrateResponse{SkinRange: rng})
	case errors.Is(err, app.ErrNoFrame):
		api.WriteError(w, http.StatusConflict, "No frame captured yet")
	case errors.Is(err, detector.ErrOutOfBounds):
		api.WriteError(w, http.StatusBadRequest, "Point is outside the frame")
	default:
		s.logger.Warn("calibration failed", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "Calibration failed")
	}
}

// handleTrigger runs the action bound to /api/trigger/{label} once.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	label, err := gesture.ParseLabel(strings.TrimPrefix(r.URL.Path, "/api/trigger/"))
	if err != nil || !label.IsActionable() {
		api.WriteError(w, http.StatusBadRequest, "label must be rock, paper or scissors")
		return
	}

	err = s.config.Runtime.Trigger(r.Context(), label)
	switch {
	case err == nil:
		api.WriteJSON(w, http.StatusOK, map[string]string{"label": label.String(), "status": "executed"})
	case errors.Is(err, app.ErrUnbound):
		api.WriteError(w, http.StatusNotFound, "No enabled binding for "+label.String())
	default:
		api.WriteError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mask := s.config.Runtime.MaskJPEG()
	if len(mask) == 0 {
		api.WriteError(w, http.StatusServiceUnavailable, "No mask available yet")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(mask)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		// Streaming handlers end with their request context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
