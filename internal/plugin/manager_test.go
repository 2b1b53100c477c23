package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeManifest(t *testing.T, root, dir string, m Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, "launcher", Manifest{
		Name:        "launcher",
		Version:     "1.0.0",
		Description: "Opens files",
		Executable:  "launcher",
		Actions:     []string{"open"},
	})

	manager := NewManager(tmpDir, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "launcher" {
		t.Errorf("expected plugin name 'launcher', got %q", plugin.Manifest.Name)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if want := filepath.Join(pluginDir, "launcher"); plugin.Executable != want {
		t.Errorf("expected executable %q, got %q", want, plugin.Executable)
	}
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "b", Manifest{Name: "cursor", Executable: "cursor"})
	writeManifest(t, tmpDir, "a", Manifest{Name: "launcher", Executable: "launcher"})
	if err := os.MkdirAll(filepath.Join(tmpDir, "no-manifest"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "stray.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(tmpDir, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(plugins))
	}
	if plugins[0].Manifest.Name != "cursor" || plugins[1].Manifest.Name != "launcher" {
		t.Errorf("List() not sorted by name: %q, %q", plugins[0].Manifest.Name, plugins[1].Manifest.Name)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, "launcher", Manifest{Name: "launcher"})

	manager := NewManager(tmpDir, nil)
	manager.Discover()
	if len(manager.List()) != 1 {
		t.Fatal("expected plugin after first scan")
	}

	if err := os.RemoveAll(pluginDir); err != nil {
		t.Fatal(err)
	}
	manager.Discover()
	if len(manager.List()) != 0 {
		t.Error("removed plugin should disappear after rescan")
	}
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "cursor", Manifest{Name: "cursor", Actions: []string{"move"}})

	manager := NewManager(tmpDir, nil)
	manager.Discover()

	plugin, err := manager.Get("cursor")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !plugin.Manifest.Supports("move") {
		t.Error("cursor should support move")
	}
	if plugin.Manifest.Supports("open") {
		t.Error("cursor should not support open")
	}

	_, err = manager.Get("nonexistent-plugin")
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	pluginDir := "/path/to/plugins"
	manager := NewManager(pluginDir, nil)

	if manager.PluginDir() != pluginDir {
		t.Errorf("expected plugin dir %q, got %q", pluginDir, manager.PluginDir())
	}
}

func TestManager_Discover_InvalidManifest(t *testing.T) {
	tmpDir := t.TempDir()

	badDir := filepath.Join(tmpDir, "bad-plugin")
	if err := os.MkdirAll(badDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, ManifestFile), []byte("not valid json"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	writeManifest(t, tmpDir, "nameless", Manifest{Executable: "x"})

	core, logs := observer.New(zapcore.WarnLevel)
	manager := NewManager(tmpDir, zap.New(core))

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
	if got := logs.FilterMessage("skipping plugin").Len(); got != 2 {
		t.Errorf("expected 2 skip warnings, got %d", got)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist", nil)

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}

	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}
