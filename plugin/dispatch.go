package plugin

import (
	"context"

	apperrors "github.com/leeforge/hookforge/errors"
)

// dispatch is the undecorated runHooks. It runs three phases, each visiting
// plugins in registration order and hooks in declaration order:
//
//  1. every BeforeHook handler, with the Envelope
//  2. every handler registered for the envelope's name, with its payload
//  3. every AfterHook handler, with the Envelope
//
// A later plugin's BeforeHook therefore runs before an earlier plugin's own
// handler. The first error stops the call.
func (c *Container) dispatch(ctx context.Context, args any) (any, error) {
	env, _ := args.(Envelope)

	if err := c.runPhase(ctx, BeforeHook, env.Name, env); err != nil {
		return nil, err
	}
	if err := c.runPhase(ctx, env.Name, env.Name, env.Payload); err != nil {
		return nil, err
	}
	if err := c.runPhase(ctx, AfterHook, env.Name, env); err != nil {
		return nil, err
	}
	return nil, nil
}

// runPhase re-reads c.Plugins on every step so plugins added by a handler are
// visited too.
func (c *Container) runPhase(ctx context.Context, phase, dispatched HookName, payload any) error {
	for i := 0; i < len(c.Plugins); i++ {
		p := c.Plugins[i]
		if p == nil {
			continue
		}
		for _, h := range p.Hooks {
			if h.Name != phase {
				continue
			}
			if err := ctx.Err(); err != nil {
				return apperrors.Timeout(err, map[string]any{
					"hook":   dispatched,
					"phase":  phase,
					"plugin": p.Name,
				})
			}
			if err := h.Handler(c)(ctx, payload); err != nil {
				return err
			}
		}
	}
	return nil
}
