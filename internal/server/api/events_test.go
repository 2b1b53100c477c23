package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/store"
)

func TestEventHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, label := range []string{"rock", "paper", "scissors"} {
		e := &store.Event{
			Label:      label,
			PluginName: "launcher",
			ActionName: "open",
			Success:    label != "scissors",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if label == "scissors" {
			e.Error = "exit status 1"
		}
		if err := s.Events().Create(e); err != nil {
			t.Fatalf("failed to create event: %v", err)
		}
	}

	rec := do(t, handler, http.MethodGet, "/api/events?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listEventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(response.Events))
	}
	if response.Events[0].Label != "scissors" || response.Events[0].Success {
		t.Errorf("expected newest failed scissors event first, got %+v", response.Events[0])
	}
	if response.Events[0].Error != "exit status 1" {
		t.Errorf("expected error text, got %q", response.Events[0].Error)
	}
	if response.Events[1].Label != "paper" {
		t.Errorf("expected paper second, got %q", response.Events[1].Label)
	}

	rec = do(t, handler, http.MethodGet, "/api/events?limit=-3", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit: expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestEventHandler_Prune(t *testing.T) {
	s := newTestStore(t)
	handler := NewEventHandler(s)

	old := &store.Event{Label: "rock", PluginName: "launcher", ActionName: "open", CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	recent := &store.Event{Label: "paper", PluginName: "launcher", ActionName: "open", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	for _, e := range []*store.Event{old, recent} {
		if err := s.Events().Create(e); err != nil {
			t.Fatalf("failed to create event: %v", err)
		}
	}

	rec := do(t, handler, http.MethodDelete, "/api/events?before=2025-01-01T00:00:00Z", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var response pruneEventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", response.Deleted)
	}

	rec = do(t, handler, http.MethodDelete, "/api/events?before=yesterday", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad time: expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
