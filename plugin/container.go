package plugin

import (
	"context"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/utils"
)

// Container is a forged, live container. It owns every plugin's state; any
// hook handler or action may read or write any plugin's state through it.
//
// A Container is not safe for concurrent use. Hook dispatch and actions are
// meant to run as a single sequential flow (one story at a time). The
// resource store behind Resource is the exception and may be used from any
// goroutine.
type Container struct {
	// Plugins in registration order. Handlers may modify the list.
	Plugins []*Plugin
	// Actions holds every plugin's decorated actions.
	Actions Actions

	logger    logging.Logger
	runHooks  Action
	getPlugin Action
	resources resources
}

// Actions maps action names to decorated actions.
type Actions map[string]Action

// Call runs the named action.
func (a Actions) Call(ctx context.Context, name string, payload any) (any, error) {
	action, ok := a[name]
	if !ok {
		return nil, apperrors.New(apperrors.ErrorTypeNotFound, apperrors.MsgMissingAction).WithDetail("name", name)
	}
	return action(ctx, payload)
}

// Names returns the action names in sorted order.
func (a Actions) Names() []string {
	return utils.SortedKeys(a)
}

// GetPlugin returns the live plugin named name; the returned pointer is the
// container's own, not a copy.
func (c *Container) GetPlugin(name string) (*Plugin, error) {
	lookup := c.getPlugin
	if lookup == nil {
		lookup = c.lookup
	}
	out, err := lookup(context.Background(), name)
	if err != nil {
		return nil, err
	}
	return out.(*Plugin), nil
}

// RunHooks dispatches name with payload. See dispatch for the ordering.
func (c *Container) RunHooks(ctx context.Context, name HookName, payload any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	run := c.runHooks
	if run == nil {
		run = c.dispatch
	}
	_, err := run(ctx, Envelope{Name: name, Payload: payload})
	return err
}

// Logger returns the container's logger, already restricted to the forge
// verbosity.
func (c *Container) Logger() logging.Logger {
	if c.logger == nil {
		return logging.Nop()
	}
	return c.logger
}

// PluginLogger returns the logger a plugin should log with.
func (c *Container) PluginLogger(p *Plugin) logging.Logger {
	return c.Logger().Named(p.ShortName())
}

func (c *Container) lookup(_ context.Context, args any) (any, error) {
	name, _ := args.(string)
	if p := c.find(name); p != nil {
		return p, nil
	}
	return nil, apperrors.MissingPlugin(map[string]any{"name": name})
}

func (c *Container) find(name string) *Plugin {
	for _, p := range c.Plugins {
		if p != nil && p.Name == name {
			return p
		}
	}
	return nil
}
