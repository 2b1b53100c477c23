package store

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBindingRepository_Create(t *testing.T) {
	repo := newTestStore(t).Bindings()

	b := &Binding{
		Label:      "paper",
		PluginName: "launcher",
		ActionName: "open",
		Config:     json.RawMessage(`{"path":"/tmp/a.txt"}`),
		Enabled:    true,
	}
	if err := repo.Create(b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.ID == "" {
		t.Fatal("Create() should assign an ID")
	}

	got, err := repo.GetByID(b.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Label != "paper" || got.PluginName != "launcher" || got.ActionName != "open" {
		t.Errorf("GetByID() = %+v", got)
	}
	if string(got.Config) != `{"path":"/tmp/a.txt"}` {
		t.Errorf("Config = %s", got.Config)
	}
	if !got.Enabled {
		t.Error("Enabled should round-trip as true")
	}
}

func TestBindingRepository_Create_Constraints(t *testing.T) {
	repo := newTestStore(t).Bindings()

	if err := repo.Create(&Binding{Label: "rock", PluginName: "launcher", ActionName: "open"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name  string
		label string
	}{
		{"duplicate label", "rock"},
		{"none is not bindable", "none"},
		{"unknown label", "lizard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(&Binding{Label: tt.label, PluginName: "launcher", ActionName: "open"})
			if err == nil {
				t.Errorf("Create(%q) should fail", tt.label)
			}
		})
	}
}

func TestBindingRepository_GetByLabel(t *testing.T) {
	repo := newTestStore(t).Bindings()

	got, err := repo.GetByLabel("scissors")
	if err != nil || got != nil {
		t.Fatalf("GetByLabel() on unbound label = %v, %v; want nil, nil", got, err)
	}

	repo.Create(&Binding{Label: "scissors", PluginName: "cursor", ActionName: "move", Enabled: true})

	got, err = repo.GetByLabel("scissors")
	if err != nil {
		t.Fatalf("GetByLabel() error = %v", err)
	}
	if got == nil || got.PluginName != "cursor" {
		t.Errorf("GetByLabel() = %+v", got)
	}
	if string(got.Config) != "{}" {
		t.Errorf("empty config should default to {}, got %s", got.Config)
	}
}

func TestBindingRepository_List(t *testing.T) {
	repo := newTestStore(t).Bindings()

	for _, l := range []string{"scissors", "paper", "rock"} {
		if err := repo.Create(&Binding{Label: l, PluginName: "launcher", ActionName: "open"}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d bindings, want 3", len(list))
	}
	if list[0].Label != "paper" || list[1].Label != "rock" || list[2].Label != "scissors" {
		t.Errorf("List() not ordered by label: %s, %s, %s", list[0].Label, list[1].Label, list[2].Label)
	}
}

func TestBindingRepository_Update(t *testing.T) {
	repo := newTestStore(t).Bindings()

	b := &Binding{Label: "rock", PluginName: "launcher", ActionName: "open", Enabled: true}
	repo.Create(b)

	b.Enabled = false
	b.Config = json.RawMessage(`{"path":"/tmp/b"}`)
	if err := repo.Update(b); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(b.ID)
	if got.Enabled {
		t.Error("Enabled should be false after update")
	}
	if string(got.Config) != `{"path":"/tmp/b"}` {
		t.Errorf("Config = %s", got.Config)
	}

	err := repo.Update(&Binding{ID: "missing", Label: "rock"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() on missing ID error = %v, want ErrNotFound", err)
	}
}

func TestBindingRepository_Delete(t *testing.T) {
	repo := newTestStore(t).Bindings()

	b := &Binding{Label: "paper", PluginName: "launcher", ActionName: "open"}
	repo.Create(b)

	if err := repo.Delete(b.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
