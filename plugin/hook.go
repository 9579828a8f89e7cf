package plugin

import (
	"context"
	"fmt"

	apperrors "github.com/leeforge/hookforge/errors"
)

// HookName identifies a hook. Plugin packages declare their hook names as
// typed constants.
type HookName string

// Reserved hooks dispatched around every RunHooks call. Their handlers receive
// an Envelope naming the hook actually being run.
const (
	BeforeHook HookName = "beforeHook"
	AfterHook  HookName = "afterHook"
)

// HookFunc is the body of a hook handler.
type HookFunc func(ctx context.Context, payload any) error

// HookHandler closes over the live container and returns the hook body. It
// is called at every dispatch.
type HookHandler func(c *Container) HookFunc

// Hook binds a handler to a hook name.
type Hook struct {
	Name    HookName    `validate:"required"`
	Handler HookHandler `validate:"required"`
}

// Envelope is the payload of BeforeHook and AfterHook handlers.
type Envelope struct {
	Name    HookName `json:"name"`
	Payload any      `json:"payload,omitempty"`
}

// On builds a Hook whose body receives a typed payload. Dispatching a payload
// of another type fails with a validation error.
func On[P any](name HookName, handler func(c *Container) func(ctx context.Context, payload P) error) Hook {
	return Hook{
		Name: name,
		Handler: func(c *Container) HookFunc {
			body := handler(c)
			return func(ctx context.Context, payload any) error {
				typed, err := payloadAs[P](string(name), payload)
				if err != nil {
					return err
				}
				return body(ctx, typed)
			}
		},
	}
}

// payloadAs asserts payload to P. A nil payload yields P's zero value.
func payloadAs[P any](target string, payload any) (P, error) {
	var zero P
	if payload == nil {
		return zero, nil
	}
	typed, ok := payload.(P)
	if !ok {
		return zero, apperrors.New(apperrors.ErrorTypeValidation, apperrors.MsgPayloadMismatch).
			WithDetail("target", target).
			WithDetail("want", fmt.Sprintf("%T", zero)).
			WithDetail("got", fmt.Sprintf("%T", payload))
	}
	return typed, nil
}
