package storyteller

import (
	"context"
	"fmt"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/plugin"
)

// Name is the plugin name.
const Name = "storyteller@1.0.0"

// Actions exposed by the plugin.
const (
	ActionCreateStory = "storytellerCreateStory"
	ActionCreateStep  = "storytellerCreateStep"
)

// Config configures the storyteller plugin.
type Config struct {
	// LogSteps logs step progress at info level instead of debug.
	LogSteps bool `mapstructure:"log-steps" json:"logSteps" yaml:"log-steps"`
	// UnsetName is the story name reported before the first story starts.
	UnsetName string `mapstructure:"unset-name" json:"unsetName" yaml:"unset-name" default:"STORY_NAME_NOT_SET"`
	// NameGetter is tried before the built-in getters.
	NameGetter *NameGetter `mapstructure:"-" json:"-" yaml:"-"`
}

// StepStatus is the lifecycle status of a step.
type StepStatus string

const (
	StepStatusCreated  StepStatus = "created"
	StepStatusStarted  StepStatus = "started"
	StepStatusFinished StepStatus = "finished"
	StepStatusErrored  StepStatus = "errored"
)

// Step is the record of one step run in the current story.
type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
}

// Global holds the counters that survive the reset between stories.
type Global struct {
	Created   int    `json:"created"`
	Started   int    `json:"started"`
	Finished  int    `json:"finished"`
	Errored   int    `json:"errored"`
	StoryName string `json:"storyName"`
	Done      bool   `json:"done"`
}

// State is the storyteller state.
type State struct {
	Steps  []*Step `json:"steps"`
	Global Global  `json:"global"`
	// DefaultStates holds every plugin's state as it was when the storyteller
	// was created.
	DefaultStates plugin.Snapshot `json:"-"`
}

// DeepCopy implements json.DeepCopier; the snapshot is immutable and shared.
func (s *State) DeepCopy() any {
	if s == nil {
		return (*State)(nil)
	}
	cp := &State{Global: s.Global, DefaultStates: s.DefaultStates}
	if s.Steps != nil {
		cp.Steps = make([]*Step, len(s.Steps))
		for i, step := range s.Steps {
			if step != nil {
				v := *step
				cp.Steps[i] = &v
			}
		}
	}
	return cp
}

func (s *State) count(match func(StepStatus) bool) int {
	n := 0
	for _, step := range s.Steps {
		if step != nil && match(step.Status) {
			n++
		}
	}
	return n
}

func (s *State) progress() string {
	started := s.count(func(st StepStatus) bool { return st != StepStatusCreated })
	finished := s.count(func(st StepStatus) bool { return st == StepStatusFinished })
	errored := s.count(func(st StepStatus) bool { return st == StepStatusErrored })
	return fmt.Sprintf("%d started, %d finished, %d errored", started, finished, errored)
}

// New returns the storyteller plugin.
func New(cfg Config) plugin.Plugin {
	_ = defaults.Set(&cfg)
	getters := nameGetters(cfg.NameGetter)

	stepLog := func(c *plugin.Container, ctx context.Context, msg string, fields ...zap.Field) {
		l := loggerFor(c, ctx)
		if cfg.LogSteps {
			l.Info(msg, fields...)
			return
		}
		l.Debug(msg, fields...)
	}

	return plugin.Plugin{
		Name:  Name,
		State: &State{Global: Global{StoryName: cfg.UnsetName}},
		Actions: map[string]plugin.ActionFactory{
			ActionCreateStory: plugin.Act(func(c *plugin.Container) func(context.Context, Story) (Runner, error) {
				return func(_ context.Context, story Story) (Runner, error) {
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return nil, err
					}
					state.Global.Created++
					return newRunner(c, story, getters), nil
				}
			}),
			ActionCreateStep: plugin.Act(func(c *plugin.Container) func(context.Context, StepSpec) (Section, error) {
				return func(ctx context.Context, spec StepSpec) (Section, error) {
					if spec.Name == "" || spec.Handler == nil {
						return nil, apperrors.New(apperrors.ErrorTypeValidation, "step name and handler are required").
							WithDetail("step", spec.Name)
					}
					if err := c.RunHooks(ctx, StepCreated, StepPayload{Step: Step{Name: spec.Name, Status: StepStatusCreated}}); err != nil {
						return nil, err
					}
					return newStep(c, spec), nil
				}
			}),
		},
		Hooks: []plugin.Hook{
			plugin.On(StorytellerCreated, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return err
					}
					snapshot, err := c.Snapshot()
					if err != nil {
						return err
					}
					state.DefaultStates = snapshot
					loggerFor(c, ctx).Debug("default states captured", zap.Strings("plugins", snapshot.Names()))
					return nil
				}
			}),
			plugin.On(StoryStarted, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return err
					}
					if state.DefaultStates.IsZero() {
						return apperrors.PluginError("missing plugin default state", map[string]any{
							"story": state.Global.StoryName,
						})
					}
					if err := c.RestoreExcept(state.DefaultStates, Name); err != nil {
						return err
					}
					state.Steps = nil
					loggerFor(c, ctx).Infof("story started %q - %d started, %d created",
						state.Global.StoryName, state.Global.Started, state.Global.Created)
					return nil
				}
			}),
			plugin.On(StoryFinished, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					g := plugin.MustStateOf[*State](c, Name).Global
					loggerFor(c, ctx).Infof("story finished %q - %d started, %d created", g.StoryName, g.Started, g.Created)
					return nil
				}
			}),
			plugin.On(StoryErrored, func(c *plugin.Container) func(context.Context, ErrorPayload) error {
				return func(ctx context.Context, p ErrorPayload) error {
					g := plugin.MustStateOf[*State](c, Name).Global
					loggerFor(c, ctx).Warnf("story errored %q - %d started, %d created: %s",
						g.StoryName, g.Started, g.Created, p.Error)
					return nil
				}
			}),
			sectionLog(ArrangeStarted, "section arrange started"),
			sectionLog(ArrangeFinished, "section arrange finished"),
			sectionLog(ArrangeErrored, "section arrange errored"),
			sectionLog(ActStarted, "section act started"),
			sectionLog(ActFinished, "section act finished"),
			sectionLog(ActErrored, "section act errored"),
			sectionLog(AssertStarted, "section assert started"),
			sectionLog(AssertFinished, "section assert finished"),
			sectionLog(AssertErrored, "section assert errored"),
			plugin.On(StepCreated, func(c *plugin.Container) func(context.Context, StepPayload) error {
				return func(ctx context.Context, p StepPayload) error {
					state := plugin.MustStateOf[*State](c, Name)
					stepLog(c, ctx, fmt.Sprintf("step appended %q - %d index", p.Step.Name, len(state.Steps)))
					return nil
				}
			}),
			plugin.On(StepStarted, func(c *plugin.Container) func(context.Context, StepPayload) error {
				return func(ctx context.Context, p StepPayload) error {
					state := plugin.MustStateOf[*State](c, Name)
					stepLog(c, ctx, fmt.Sprintf("step started %q - %s", p.Step.Name, state.progress()))
					return nil
				}
			}),
			plugin.On(StepFinished, func(c *plugin.Container) func(context.Context, StepPayload) error {
				return func(ctx context.Context, p StepPayload) error {
					state := plugin.MustStateOf[*State](c, Name)
					stepLog(c, ctx, fmt.Sprintf("step finished %q - %s", p.Step.Name, state.progress()))
					return nil
				}
			}),
			plugin.On(StepErrored, func(c *plugin.Container) func(context.Context, StepPayload) error {
				return func(ctx context.Context, p StepPayload) error {
					state := plugin.MustStateOf[*State](c, Name)
					stepLog(c, ctx, fmt.Sprintf("step errored %q - %s: %s", p.Step.Name, state.progress(), p.Error))
					return nil
				}
			}),
		},
	}
}

func sectionLog(name plugin.HookName, msg string) plugin.Hook {
	return plugin.On(name, func(c *plugin.Container) func(context.Context, any) error {
		return func(ctx context.Context, payload any) error {
			l := loggerFor(c, ctx)
			if p, ok := payload.(ErrorPayload); ok {
				l.Warn(msg, zap.String("error", p.Error))
				return nil
			}
			l.Debug(msg)
			return nil
		}
	})
}

func loggerFor(c *plugin.Container, ctx context.Context) logging.Logger {
	return logging.WithContext(c.Logger().Named("storyteller"), ctx)
}
