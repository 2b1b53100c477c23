// Package main is the cursor plugin. It moves the pointer to absolute screen
// coordinates using the platform's automation tool.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/ayusman/mudra/internal/plugin"
)

// MoveParams are the request params for the move action.
type MoveParams struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func main() {
	resp := handle(os.Stdin, moveCommand)
	json.NewEncoder(os.Stdout).Encode(resp)
}

type commandFunc func(x, y int) *exec.Cmd

func handle(r io.Reader, command commandFunc) plugin.Response {
	var req plugin.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return failure("failed to decode request: %v", err)
	}

	if req.Action != "move" {
		return failure("unknown action: %s", req.Action)
	}

	var p MoveParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return failure("invalid params: %v", err)
	}
	if p.X == nil || p.Y == nil {
		return failure("x and y are required")
	}
	if *p.X < 0 || *p.Y < 0 {
		return failure("coordinates must be non-negative, got %d,%d", *p.X, *p.Y)
	}

	cmd := command(*p.X, *p.Y)
	if out, err := cmd.CombinedOutput(); err != nil {
		return failure("move failed: %v: %s", err, out)
	}
	return plugin.Response{Success: true}
}

func failure(format string, args ...any) plugin.Response {
	return plugin.Response{Success: false, Error: fmt.Sprintf(format, args...)}
}

func moveCommand(x, y int) *exec.Cmd {
	xs, ys := strconv.Itoa(x), strconv.Itoa(y)
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("cliclick", "m:"+xs+","+ys)
	case "windows":
		script := fmt.Sprintf("Add-Type -AssemblyName System.Windows.Forms; "+
			"[System.Windows.Forms.Cursor]::Position = New-Object System.Drawing.Point(%d,%d)", x, y)
		return exec.Command("powershell", "-NoProfile", "-Command", script)
	default:
		return exec.Command("xdotool", "mousemove", xs, ys)
	}
}
