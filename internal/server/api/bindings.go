package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// PluginCatalog looks up installed plugins. *plugin.Manager implements it.
type PluginCatalog interface {
	Get(name string) (*plugin.Plugin, error)
}

// BindingHandler handles HTTP requests for label bindings.
type BindingHandler struct {
	store   *store.Store
	plugins PluginCatalog
}

// NewBindingHandler creates a BindingHandler. When plugins is non-nil,
// bindings must name an installed plugin and one of its actions.
func NewBindingHandler(s *store.Store, plugins PluginCatalog) *BindingHandler {
	return &BindingHandler{store: s, plugins: plugins}
}

// ServeHTTP routes /api/bindings and /api/bindings/{id}.
func (h *BindingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/bindings"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createBindingRequest struct {
	Label      string          `json:"label"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
}

type updateBindingRequest struct {
	Label      string          `json:"label"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type bindingResponse struct {
	ID         string          `json:"id"`
	Label      string          `json:"label"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

func toBindingResponse(b *store.Binding) bindingResponse {
	config := b.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return bindingResponse{
		ID:         b.ID,
		Label:      b.Label,
		PluginName: b.PluginName,
		ActionName: b.ActionName,
		Config:     config,
		Enabled:    b.Enabled,
		CreatedAt:  formatTime(b.CreatedAt),
		UpdatedAt:  formatTime(b.UpdatedAt),
	}
}

func (h *BindingHandler) list(w http.ResponseWriter) {
	bindings, err := h.store.Bindings().List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}

	response := listBindingsResponse{Bindings: make([]bindingResponse, 0, len(bindings))}
	for _, b := range bindings {
		response.Bindings = append(response.Bindings, toBindingResponse(b))
	}
	WriteJSON(w, http.StatusOK, response)
}

func (h *BindingHandler) get(w http.ResponseWriter, id string) {
	b, err := h.store.Bindings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Binding not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}
	WriteJSON(w, http.StatusOK, toBindingResponse(b))
}

// validate checks the label and, when a catalog is set, the plugin action.
// It returns a client-facing message, or "" when b is acceptable.
func (h *BindingHandler) validate(b *store.Binding) string {
	label, err := gesture.ParseLabel(b.Label)
	if err != nil || !label.IsActionable() {
		return "label must be rock, paper or scissors"
	}
	if b.PluginName == "" {
		return "plugin_name is required"
	}
	if b.ActionName == "" {
		return "action_name is required"
	}
	if len(b.Config) > 0 && !json.Valid(b.Config) {
		return "config must be valid JSON"
	}
	if h.plugins != nil {
		p, err := h.plugins.Get(b.PluginName)
		if err != nil {
			return "plugin not installed: " + b.PluginName
		}
		if !p.Manifest.Supports(b.ActionName) {
			return "plugin " + b.PluginName + " has no action " + b.ActionName
		}
	}
	return ""
}

func (h *BindingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	b := &store.Binding{
		Label:      req.Label,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    true,
	}
	if msg := h.validate(b); msg != "" {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := h.store.Bindings().GetByLabel(b.Label)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to check existing binding")
		return
	}
	if existing != nil {
		WriteError(w, http.StatusConflict, "Label is already bound")
		return
	}

	if err := h.store.Bindings().Create(b); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to create binding")
		return
	}
	WriteJSON(w, http.StatusCreated, toBindingResponse(b))
}

func (h *BindingHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	b, err := h.store.Bindings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Binding not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to get binding")
		return
	}

	var req updateBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label != "" && req.Label != b.Label {
		other, err := h.store.Bindings().GetByLabel(req.Label)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to check existing binding")
			return
		}
		if other != nil {
			WriteError(w, http.StatusConflict, "Label is already bound")
			return
		}
		b.Label = req.Label
	}
	if req.PluginName != "" {
		b.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		b.ActionName = req.ActionName
	}
	if req.Config != nil {
		b.Config = req.Config
	}
	if req.Enabled != nil {
		b.Enabled = *req.Enabled
	}
	if msg := h.validate(b); msg != "" {
		WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Bindings().Update(b); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to update binding")
		return
	}
	WriteJSON(w, http.StatusOK, toBindingResponse(b))
}

func (h *BindingHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Bindings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Binding not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
