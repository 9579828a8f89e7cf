package plugin

import (
	"context"
	"fmt"

	apperrors "github.com/leeforge/hookforge/errors"
)

// Act builds an ActionFactory from a typed action. A payload of another type
// fails with a validation error.
func Act[In, Out any](factory func(c *Container) func(ctx context.Context, in In) (Out, error)) ActionFactory {
	return func(c *Container) Action {
		body := factory(c)
		if body == nil {
			return nil
		}
		return func(ctx context.Context, payload any) (any, error) {
			in, err := payloadAs[In]("action", payload)
			if err != nil {
				return nil, err
			}
			return body(ctx, in)
		}
	}
}

// Call runs the named action and asserts its result to Out.
func Call[Out any](ctx context.Context, c *Container, name string, in any) (Out, error) {
	var zero Out
	out, err := c.Actions.Call(ctx, name, in)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	typed, ok := out.(Out)
	if !ok {
		return zero, apperrors.New(apperrors.ErrorTypeValidation, apperrors.MsgPayloadMismatch).
			WithDetail("target", name).
			WithDetail("want", fmt.Sprintf("%T", zero)).
			WithDetail("got", fmt.Sprintf("%T", out))
	}
	return typed, nil
}

// StateOf returns the live state of the named plugin as T.
func StateOf[T any](c *Container, name string) (T, error) {
	var zero T
	p, err := c.GetPlugin(name)
	if err != nil {
		return zero, err
	}
	typed, ok := p.State.(T)
	if !ok {
		return zero, apperrors.New(apperrors.ErrorTypeValidation, apperrors.MsgStateMismatch).
			WithDetail("name", name).
			WithDetail("want", fmt.Sprintf("%T", zero)).
			WithDetail("got", fmt.Sprintf("%T", p.State))
	}
	return typed, nil
}

// MustStateOf is like StateOf but panics on error. Use it in handlers of the
// plugin that owns the state.
func MustStateOf[T any](c *Container, name string) T {
	s, err := StateOf[T](c, name)
	if err != nil {
		panic(err)
	}
	return s
}
