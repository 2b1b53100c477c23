// Package main is the launcher plugin. It opens the configured file, folder
// or shortcut with the operating system's default handler.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// OpenConfig is the binding config for the open action.
type OpenConfig struct {
	Path string `json:"path"`
}

func main() {
	resp := handle(os.Stdin, openWithSystem)
	json.NewEncoder(os.Stdout).Encode(resp)
}

type opener func(path string) error

func handle(r io.Reader, open opener) plugin.Response {
	var req plugin.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return failure("failed to decode request: %v", err)
	}

	if req.Action != "open" {
		return failure("unknown action: %s", req.Action)
	}

	var cfg OpenConfig
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return failure("invalid config: %v", err)
		}
	}
	// Paths copied from a file manager often arrive wrapped in quotes.
	cfg.Path = strings.Trim(strings.TrimSpace(cfg.Path), `"`)
	if cfg.Path == "" {
		return failure("no path configured for %s", req.Label)
	}

	// A missing target is reported, never fatal to the caller.
	if _, err := os.Stat(cfg.Path); errors.Is(err, os.ErrNotExist) {
		return failure("path not found: %s", cfg.Path)
	}

	if err := open(cfg.Path); err != nil {
		return failure("open %s: %v", cfg.Path, err)
	}

	data, _ := json.Marshal(map[string]string{"opened": cfg.Path})
	return plugin.Response{Success: true, Data: data}
}

func failure(format string, args ...any) plugin.Response {
	return plugin.Response{Success: false, Error: fmt.Sprintf(format, args...)}
}

// openWithSystem starts the platform opener and does not wait for the
// launched application.
func openWithSystem(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
