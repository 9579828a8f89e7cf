package telemetry

import (
	"context"
	"errors"

	"github.com/creasty/defaults"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/json"
	"github.com/leeforge/hookforge/plugin"
)

// Name is the plugin name.
const Name = "telemetry@1.0.0"

// Actions exposed by the plugin.
const (
	ActionSubscribe = "telemetrySubscribe"
	ActionEvents    = "telemetryEvents"
	ActionClose     = "telemetryClose"
)

// Config configures the telemetry plugin.
type Config struct {
	// BufferSize is the event bus buffer.
	BufferSize int `mapstructure:"buffer-size" json:"bufferSize" yaml:"buffer-size" default:"256" validate:"gte=1"`
	// CloseOn is the hook after which the bus is closed.
	CloseOn string `mapstructure:"close-on" json:"closeOn" yaml:"close-on" default:"storytellerFinished"`
	// MaxRecorded caps the events kept in state; a negative value disables recording.
	MaxRecorded int `mapstructure:"max-recorded" json:"maxRecorded" yaml:"max-recorded" default:"1000"`
}

// State is the plugin state: the most recent recorded events.
type State struct {
	Events []Event `json:"events"`
}

// SubscribeRequest is the payload of the telemetrySubscribe action.
type SubscribeRequest struct {
	Hook    string // a hook name or AllHooks
	Handler Handler
}

// New returns the telemetry plugin. It observes every dispatch through the
// reserved before/after hooks and republishes them on its own bus.
func New(cfg Config) plugin.Plugin {
	_ = defaults.Set(&cfg)

	busFor := func(c *plugin.Container) (Bus, error) {
		return plugin.Resource(c, Name, func() Bus {
			return NewBus(cfg.BufferSize, c.Logger().Named("telemetry"))
		})
	}

	observe := func(phase Phase) plugin.HookHandler {
		return func(c *plugin.Container) plugin.HookFunc {
			return func(ctx context.Context, payload any) error {
				env, _ := payload.(plugin.Envelope)
				event := Event{
					ID:      uuid.New(),
					Hook:    env.Name,
					Phase:   phase,
					Payload: json.SecureStringify(env.Payload),
				}
				record(c, cfg.MaxRecorded, event)

				b, err := busFor(c)
				if err != nil {
					return err
				}
				if err := b.Publish(context.WithoutCancel(ctx), event); err != nil && !errors.Is(err, ErrBusClosed) {
					return apperrors.Wrap(err, apperrors.ErrorTypePlugin, "telemetry publish failed").
						WithDetail("hook", env.Name)
				}
				if phase == PhaseAfter && string(env.Name) == cfg.CloseOn {
					c.Logger().Named("telemetry").Debug("closing telemetry bus", zap.String("hook", cfg.CloseOn))
					return b.Close()
				}
				return nil
			}
		}
	}

	return plugin.Plugin{
		Name:  Name,
		State: &State{},
		Actions: map[string]plugin.ActionFactory{
			ActionSubscribe: plugin.Act(func(c *plugin.Container) func(context.Context, SubscribeRequest) (Subscription, error) {
				return func(_ context.Context, req SubscribeRequest) (Subscription, error) {
					if req.Handler == nil {
						return nil, apperrors.New(apperrors.ErrorTypeValidation, "telemetry handler is required")
					}
					hook := req.Hook
					if hook == "" {
						hook = AllHooks
					}
					b, err := busFor(c)
					if err != nil {
						return nil, err
					}
					return b.Subscribe(hook, req.Handler), nil
				}
			}),
			ActionEvents: plugin.Act(func(c *plugin.Container) func(context.Context, any) ([]Event, error) {
				return func(context.Context, any) ([]Event, error) {
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return nil, err
					}
					return append([]Event(nil), state.Events...), nil
				}
			}),
			ActionClose: plugin.Act(func(c *plugin.Container) func(context.Context, any) (any, error) {
				return func(context.Context, any) (any, error) {
					b, err := busFor(c)
					if err != nil {
						return nil, err
					}
					return nil, b.Close()
				}
			}),
		},
		Hooks: []plugin.Hook{
			{Name: plugin.BeforeHook, Handler: observe(PhaseBefore)},
			{Name: plugin.AfterHook, Handler: observe(PhaseAfter)},
		},
	}
}

func record(c *plugin.Container, limit int, event Event) {
	if limit < 0 {
		return
	}
	state, err := plugin.StateOf[*State](c, Name)
	if err != nil {
		return
	}
	state.Events = append(state.Events, event)
	if over := len(state.Events) - limit; over > 0 {
		state.Events = append([]Event(nil), state.Events[over:]...)
	}
}
