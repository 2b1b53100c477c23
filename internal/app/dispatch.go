package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// ErrUnbound is returned by Trigger for labels with no enabled binding.
var ErrUnbound = errors.New("label has no enabled binding")

// target is a resolved plugin action.
type target struct {
	plugin string
	action string
	config json.RawMessage
}

// resolve finds the action bound to label. A stored binding wins, even when
// disabled; labels without one fall back to the configured action map.
func (a *App) resolve(label gesture.Label) (target, error) {
	if a.store != nil {
		b, err := a.store.Bindings().GetByLabel(label.String())
		if err != nil {
			return target{}, fmt.Errorf("look up binding: %w", err)
		}
		if b != nil {
			if !b.Enabled {
				return target{}, ErrUnbound
			}
			return target{plugin: b.PluginName, action: b.ActionName, config: b.Config}, nil
		}
	}

	ac, ok := a.config().Actions[label]
	if !ok {
		return target{}, ErrUnbound
	}
	raw, err := actionConfigJSON(ac)
	if err != nil {
		return target{}, err
	}
	return target{plugin: ac.Plugin, action: ac.Action, config: raw}, nil
}

func actionConfigJSON(ac config.ActionConfig) (json.RawMessage, error) {
	if len(ac.Config) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(ac.Config)
	if err != nil {
		return nil, fmt.Errorf("encode action config: %w", err)
	}
	return raw, nil
}

// dispatch runs the action bound to label in the background. The frame loop
// never waits on a plugin; Run waits for in-flight runs before returning.
//
// The cooldown only follows a successful action: an unbound label or a
// failed run releases the fire.
func (a *App) dispatch(ctx context.Context, label gesture.Label) {
	t, err := a.resolve(label)
	if errors.Is(err, ErrUnbound) {
		a.logger.Debug("no action bound", zap.String("label", label.String()))
		a.stabilizer.Release()
		return
	}
	if err != nil {
		a.logger.Warn("resolve action", zap.String("label", label.String()), zap.Error(err))
		a.stabilizer.Release()
		return
	}

	a.dispatchWG.Add(1)
	go func() {
		defer a.dispatchWG.Done()
		if err := a.execute(ctx, label, t); err != nil {
			a.stabilizer.Release()
		}
	}()
}

// Trigger runs the action bound to label synchronously, as if the label had
// just been held. It is used by the API to test a binding.
func (a *App) Trigger(ctx context.Context, label gesture.Label) error {
	if !label.IsActionable() {
		return fmt.Errorf("%w: %s", ErrUnbound, label)
	}
	t, err := a.resolve(label)
	if err != nil {
		return err
	}
	return a.execute(ctx, label, t)
}

func (a *App) execute(ctx context.Context, label gesture.Label, t target) error {
	log := a.logger.With(
		zap.String("label", label.String()),
		zap.String("plugin", t.plugin),
		zap.String("action", t.action))

	err := a.runPlugin(ctx, t.plugin, &plugin.Request{
		Action: t.action,
		Label:  label.String(),
		Config: t.config,
	})
	if err != nil {
		log.Warn("action failed", zap.Error(err))
	} else {
		log.Info("action executed")
	}

	if a.store != nil {
		ev := &store.Event{
			Label:      label.String(),
			PluginName: t.plugin,
			ActionName: t.action,
			Success:    err == nil,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		if serr := a.store.Events().Create(ev); serr != nil {
			log.Warn("record event", zap.Error(serr))
		}
	}
	return err
}

func (a *App) runPlugin(ctx context.Context, name string, req *plugin.Request) error {
	p, err := a.pluginMgr.Get(name)
	if err != nil {
		return err
	}
	if !p.Manifest.Supports(req.Action) {
		return fmt.Errorf("plugin %s does not support action %q", name, req.Action)
	}

	resp, err := a.pluginExec.Execute(ctx, p, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", name, resp.Error)
	}
	return nil
}

// moveCursor sends p to the cursor plugin. At most one move is in flight;
// positions produced while one runs are dropped.
func (a *App) moveCursor(ctx context.Context, p image.Point) {
	if !a.cursorBusy.CompareAndSwap(false, true) {
		return
	}

	cfg := a.config().Cursor
	params, _ := json.Marshal(map[string]int{"x": p.X, "y": p.Y})

	a.dispatchWG.Add(1)
	go func() {
		defer a.dispatchWG.Done()
		defer a.cursorBusy.Store(false)

		err := a.runPlugin(ctx, cfg.Plugin, &plugin.Request{
			Action: cfg.Action,
			Label:  gesture.LabelNone.String(),
			Params: params,
		})
		if err != nil && ctx.Err() == nil {
			a.logger.Debug("cursor move failed", zap.Int("x", p.X), zap.Int("y", p.Y), zap.Error(err))
		}
	}()
}

// SeedBindings stores the configured action for every label that has no
// binding yet. It returns the number of bindings created.
func (a *App) SeedBindings() (int, error) {
	if a.store == nil {
		return 0, nil
	}

	repo := a.store.Bindings()
	created := 0
	for _, label := range gesture.Actionable {
		ac, ok := a.config().Actions[label]
		if !ok {
			continue
		}
		existing, err := repo.GetByLabel(label.String())
		if err != nil {
			return created, fmt.Errorf("look up binding for %s: %w", label, err)
		}
		if existing != nil {
			continue
		}

		raw, err := actionConfigJSON(ac)
		if err != nil {
			return created, err
		}
		b := &store.Binding{
			Label:      label.String(),
			PluginName: ac.Plugin,
			ActionName: ac.Action,
			Config:     raw,
			Enabled:    true,
		}
		if err := repo.Create(b); err != nil {
			return created, fmt.Errorf("seed binding for %s: %w", label, err)
		}
		created++
	}

	if created > 0 {
		a.logger.Info("bindings seeded from config", zap.Int("count", created))
	}
	return created, nil
}
