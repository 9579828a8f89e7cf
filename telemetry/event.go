package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/leeforge/hookforge/plugin"
)

var (
	// ErrBusClosed is returned when publishing to a closed Bus.
	ErrBusClosed = errors.New("telemetry bus is closed")

	// ErrPublishTimeout is returned when the publish buffer is full and context expires.
	ErrPublishTimeout = errors.New("telemetry publish timeout: buffer full")
)

// AllHooks subscribes to every dispatched hook.
const AllHooks = "*"

// Phase tells whether an event was observed before or after the hook's own handlers ran.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// Event is one observed hook dispatch.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Hook      plugin.HookName `json:"hook"`
	Phase     Phase           `json:"phase"`
	Payload   string          `json:"payload,omitempty"` // secure-stringified
	Timestamp time.Time       `json:"timestamp"`
}

// Handler receives published events.
type Handler func(ctx context.Context, event Event) error

// Subscription represents an active subscription.
type Subscription interface {
	Unsubscribe()
}

// Bus delivers events asynchronously to subscribers.
type Bus interface {
	// Publish sends an event. Blocks if buffer is full until ctx expires.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler for a hook name, or AllHooks.
	Subscribe(hook string, handler Handler) Subscription

	// Close drains pending events and waits for in-flight handlers to complete.
	Close() error
}
