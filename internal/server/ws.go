package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/logging"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LabelsHandler pushes every classified frame to WebSocket clients as JSON.
type LabelsHandler struct {
	subscribe func() (<-chan app.Event, func())
	logger    *zap.Logger
}

// NewLabelsHandler creates a LabelsHandler that opens one subscription per
// connection.
func NewLabelsHandler(subscribe func() (<-chan app.Event, func()), logger *zap.Logger) *LabelsHandler {
	return &LabelsHandler{subscribe: subscribe, logger: logging.OrNop(logger)}
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects or the server shuts down.
func (h *LabelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.subscribe()
	defer unsubscribe()

	// The client never sends data; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	h.logger.Debug("label feed client connected", zap.String("remote", r.RemoteAddr))
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("label feed write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
