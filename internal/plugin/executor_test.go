package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	scriptPath := filepath.Join(tmpDir, name+".sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest:   Manifest{Name: name, Version: "1.0.0", Executable: name + ".sh"},
		Path:       tmpDir,
		Executable: scriptPath,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "ok", `echo '{"success":true,"data":{"message":"opened"}}'
`)

	executor := NewExecutor(5*time.Second, nil)
	response, err := executor.Execute(context.Background(), plugin, &Request{Action: "open", Label: "paper"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}

	var data map[string]string
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "opened" {
		t.Errorf("expected message 'opened', got %q", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	request := &Request{
		Action: "open",
		Label:  "scissors",
		Config: json.RawMessage(`{"path":"/tmp/notes.txt"}`),
	}

	executor := NewExecutor(5*time.Second, nil)
	response, err := executor.Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	if data.Received.Action != "open" {
		t.Errorf("expected action 'open', got %q", data.Received.Action)
	}
	if data.Received.Label != "scissors" {
		t.Errorf("expected label 'scissors', got %q", data.Received.Label)
	}
	if string(data.Received.Config) != `{"path":"/tmp/notes.txt"}` {
		t.Errorf("unexpected config %s", data.Received.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow", `sleep 10
echo '{"success":true}'
`)

	executor := NewExecutor(100*time.Millisecond, nil)
	_, err := executor.Execute(context.Background(), plugin, &Request{Action: "slow"})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
}

func TestExecutor_Cancelled(t *testing.T) {
	plugin := scriptPlugin(t, "slow", `sleep 10
echo '{"success":true}'
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewExecutor(5*time.Second, nil)
	_, err := executor.Execute(ctx, plugin, &Request{Action: "slow"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		wantErr   bool
		wantError string
	}{
		{
			name:      "error response",
			script:    `echo '{"success":false,"error":"path not found"}'`,
			wantError: "path not found",
		},
		{
			name:    "invalid json",
			script:  `echo 'not valid json'`,
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			script:  "echo \"Error: something failed\" >&2\nexit 1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := scriptPlugin(t, "p", tt.script+"\n")

			executor := NewExecutor(5*time.Second, nil)
			response, err := executor.Execute(context.Background(), plugin, &Request{Action: "open"})

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if response.Success {
				t.Errorf("expected success=false, got true")
			}
			if response.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, response.Error)
			}
		})
	}
}

func TestNewExecutor(t *testing.T) {
	if got := NewExecutor(3*time.Second, nil).Timeout(); got != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", got)
	}
	if got := NewExecutor(0, nil).Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want default %v", got, DefaultTimeout)
	}
}
