// Package tray provides the system tray menu: dispatch toggle, last label,
// calibrate at centre, open the preview and quit.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onCalibrate func()
	onSettings  func()
	onQuit      func()
	enabled     bool
	lastLabel   string
	mu          sync.RWMutex

	menuToggle    *systray.MenuItem
	menuLastLabel *systray.MenuItem
}

// New creates a Tray whose toggle starts in the given state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback for the enable/disable item.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnCalibrate sets the callback for "Calibrate at centre".
func (t *Tray) OnCalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCalibrate = fn
}

// OnSettings sets the callback for "Open preview".
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback for "Quit".
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run shows the tray and blocks until Quit is chosen or ctx is done. On
// macOS it must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	exited := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			systray.Quit()
		case <-exited:
		}
	}()
	systray.Run(t.onReady, func() { close(exited) })
}

func (t *Tray) onReady() {
	systray.SetTitle("mudra")
	systray.SetTooltip("mudra hand gestures")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture actions")
	systray.AddSeparator()
	t.menuLastLabel = systray.AddMenuItem(lastLabelTitle(t.lastLabel), "Last triggered gesture")
	t.menuLastLabel.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuCalibrate := systray.AddMenuItem("Calibrate at centre", "Sample skin color at the frame centre")
	menuSettings := systray.AddMenuItem("Open preview...", "Open the debug preview in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuCalibrate.ClickedCh:
				t.call(func() func() { return t.onCalibrate })
			case <-menuSettings.ClickedCh:
				t.call(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastLabelTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}

// call runs the callback chosen by pick outside the lock.
func (t *Tray) call(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// SetEnabled reflects a state change made elsewhere, such as the API.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetLastLabel updates the last triggered label shown in the menu.
func (t *Tray) SetLastLabel(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastLabel = label
	if t.menuLastLabel != nil {
		t.menuLastLabel.SetTitle(lastLabelTitle(label))
	}
}

// LastLabel returns the label last passed to SetLastLabel.
func (t *Tray) LastLabel() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastLabel
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
