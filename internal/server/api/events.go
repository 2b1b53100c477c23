package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/store"
)

// EventHandler serves the trigger history.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type eventResponse struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	PluginName string `json:"plugin_name"`
	ActionName string `json:"action_name"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type pruneEventsResponse struct {
	Deleted int64 `json:"deleted"`
}

// ServeHTTP handles GET /api/events?limit=N and
// DELETE /api/events?before=<RFC3339>.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.prune(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events, err := h.store.Events().ListRecent(limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		response.Events = append(response.Events, eventResponse{
			ID:         e.ID,
			Label:      e.Label,
			PluginName: e.PluginName,
			ActionName: e.ActionName,
			Success:    e.Success,
			Error:      e.Error,
			CreatedAt:  formatTime(e.CreatedAt),
		})
	}
	WriteJSON(w, http.StatusOK, response)
}

func (h *EventHandler) prune(w http.ResponseWriter, r *http.Request) {
	before := time.Now()
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "before must be an RFC3339 time")
			return
		}
		before = t
	}

	n, err := h.store.Events().DeleteBefore(before)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to delete events")
		return
	}
	WriteJSON(w, http.StatusOK, pruneEventsResponse{Deleted: n})
}
