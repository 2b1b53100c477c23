package store

import (
	"errors"
	"testing"
)

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() on missing key error = %v, want ErrNotFound", err)
	}

	if err := repo.Set(SettingEnabled, "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(SettingEnabled, "false"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, _ := repo.Get(SettingEnabled); v != "false" {
		t.Errorf("Get() = %q, want false", v)
	}

	if err := repo.Delete(SettingEnabled); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(SettingEnabled); err != nil {
		t.Errorf("Delete() on missing key error = %v", err)
	}
}

func TestSettingsRepository_JSON(t *testing.T) {
	repo := newTestStore(t).Settings()

	type skin struct {
		Lower [3]uint8 `json:"lower"`
		Upper [3]uint8 `json:"upper"`
	}
	want := skin{Lower: [3]uint8{0, 40, 60}, Upper: [3]uint8{25, 255, 255}}

	if err := repo.SetJSON(SettingSkinRange, want); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	var got skin
	if err := repo.GetJSON(SettingSkinRange, &got); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got != want {
		t.Errorf("GetJSON() = %+v, want %+v", got, want)
	}

	if err := repo.GetJSON("absent", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJSON() on missing key error = %v, want ErrNotFound", err)
	}

	repo.Set("broken", "{")
	if err := repo.GetJSON("broken", &got); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("GetJSON() on malformed value error = %v, want decode error", err)
	}
}
