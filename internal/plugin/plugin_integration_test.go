package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPlugin_Launcher_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("launcher")
	if pluginDir == "" {
		t.Skip("launcher plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir), nil)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("launcher")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	executor := NewExecutor(5*time.Second, nil)

	// A missing target avoids opening anything on the test machine.
	req := &Request{
		Action: "open",
		Label:  "paper",
		Config: json.RawMessage(`{"path":"/definitely/not/here.lnk"}`),
	}

	resp, err := executor.Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Success {
		t.Error("expected failure for a missing path")
	}
}

func TestPlugin_Cursor_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("cursor")
	if pluginDir == "" {
		t.Skip("cursor plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir), nil)
	mgr.Discover()

	plug, err := mgr.Get("cursor")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	resp, err := NewExecutor(5*time.Second, nil).Execute(context.Background(), plug, &Request{
		Action: "move",
		Params: json.RawMessage(`{"x":-5,"y":0}`),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if resp.Success {
		t.Error("expected failure for negative coordinates")
	}
}

// findPluginDir returns the plugin source directory when its binary has been
// built next to the manifest.
func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return dir
		}
	}
	return ""
}
