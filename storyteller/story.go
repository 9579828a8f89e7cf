package storyteller

import (
	"context"
	"os"

	"go.uber.org/zap"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/plugin"
)

// StoryNameEnv is read by the environment name getter.
const StoryNameEnv = "HOOKFORGE_STORY"

// Section is the body of a story section or a step.
type Section func(ctx context.Context, actions plugin.Actions) error

// Story is a test scenario split in three sections. Nil sections are skipped,
// their hooks are still dispatched.
type Story struct {
	Arrange Section
	Act     Section
	Assert  Section
}

// Runner runs a created story once.
type Runner func(ctx context.Context) error

// StepSpec describes a step to create.
type StepSpec struct {
	Name    string
	Handler Section
}

// NameGetter resolves the running story's name, usually from a test runner.
type NameGetter struct {
	Runner    string
	StoryName func(ctx context.Context) (string, bool)
}

// ContextNames reads the story name set with logging.SetStory.
func ContextNames() NameGetter {
	return NameGetter{
		Runner: "context",
		StoryName: func(ctx context.Context) (string, bool) {
			name := logging.GetStory(ctx)
			return name, name != ""
		},
	}
}

// EnvNames reads the story name from StoryNameEnv.
func EnvNames() NameGetter {
	return NameGetter{
		Runner: "env",
		StoryName: func(context.Context) (string, bool) {
			return os.LookupEnv(StoryNameEnv)
		},
	}
}

// TestNames reads the story name from a test, typically a *testing.T.
func TestNames(t interface{ Name() string }) NameGetter {
	return NameGetter{
		Runner: "testing",
		StoryName: func(context.Context) (string, bool) {
			name := t.Name()
			return name, name != ""
		},
	}
}

func nameGetters(first *NameGetter) []NameGetter {
	getters := []NameGetter{ContextNames(), EnvNames()}
	if first != nil && first.StoryName != nil {
		getters = append([]NameGetter{*first}, getters...)
	}
	return getters
}

func resolveStoryName(ctx context.Context, c *plugin.Container, getters []NameGetter) (string, error) {
	for _, g := range getters {
		if name, ok := g.StoryName(ctx); ok && name != "" {
			loggerFor(c, ctx).Debug("story name received from test runner", zap.String("runner", g.Runner))
			return name, nil
		}
	}
	runners := make([]string, len(getters))
	for i, g := range getters {
		runners[i] = g.Runner
	}
	return "", apperrors.PluginError("story name couldn't be received from test runner", map[string]any{
		"runners": runners,
	})
}

func newRunner(c *plugin.Container, story Story, getters []NameGetter) Runner {
	return func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		name, err := resolveStoryName(ctx, c, getters)
		if err != nil {
			return err
		}

		state, err := plugin.StateOf[*State](c, Name)
		if err != nil {
			return err
		}
		state.Global.Started++
		state.Global.StoryName = name
		ctx = logging.SetStory(ctx, name)

		err = runStory(ctx, c, story)
		if err == nil {
			state.Global.Finished++
		} else {
			state.Global.Errored++
			if hookErr := c.RunHooks(ctx, StoryErrored, errorPayload(err)); hookErr != nil {
				err = hookErr
			}
		}

		if finishErr := finishIfDone(ctx, c, state); err == nil {
			err = finishErr
		}
		return err
	}
}

func runStory(ctx context.Context, c *plugin.Container, story Story) error {
	if err := c.RunHooks(ctx, StoryStarted, nil); err != nil {
		return err
	}
	for _, s := range []struct {
		name SectionName
		body Section
	}{
		{Arrange, story.Arrange},
		{Act, story.Act},
		{Assert, story.Assert},
	} {
		if err := runSection(ctx, c, s.name, s.body); err != nil {
			return err
		}
	}
	return c.RunHooks(ctx, StoryFinished, nil)
}

func runSection(ctx context.Context, c *plugin.Container, name SectionName, body Section) error {
	h := hooksOf[name]
	err := c.RunHooks(ctx, h.started, nil)
	if err == nil && body != nil {
		err = body(ctx, c.Actions)
	}
	if err == nil {
		err = c.RunHooks(ctx, h.finished, nil)
	}
	if err != nil {
		if hookErr := c.RunHooks(ctx, h.errored, errorPayload(err)); hookErr != nil {
			return hookErr
		}
		return err
	}
	return nil
}

// finishIfDone dispatches StorytellerFinished once every created story has
// run.
func finishIfDone(ctx context.Context, c *plugin.Container, state *State) error {
	g := state.Global
	if g.Done || g.Started < g.Created || g.Started != g.Finished+g.Errored {
		return nil
	}
	return finish(ctx, c, state)
}

func finish(ctx context.Context, c *plugin.Container, state *State) error {
	if state.Global.Done {
		return nil
	}
	state.Global.Done = true
	loggerFor(c, ctx).Infof("storyteller finished - %d finished, %d errored",
		state.Global.Finished, state.Global.Errored)
	return c.RunHooks(ctx, StorytellerFinished, nil)
}

func newStep(c *plugin.Container, spec StepSpec) Section {
	return func(ctx context.Context, actions plugin.Actions) error {
		state, err := plugin.StateOf[*State](c, Name)
		if err != nil {
			return err
		}
		ref := &Step{Name: spec.Name, Status: StepStatusStarted}
		state.Steps = append(state.Steps, ref)
		ctx = logging.SetStep(ctx, spec.Name)

		if err := c.RunHooks(ctx, StepStarted, StepPayload{Step: *ref}); err != nil {
			return err
		}
		if err := spec.Handler(ctx, actions); err != nil {
			ref.Status = StepStatusErrored
			if hookErr := c.RunHooks(ctx, StepErrored, StepPayload{Step: *ref, Err: err, Error: err.Error()}); hookErr != nil {
				return hookErr
			}
			return err
		}
		ref.Status = StepStatusFinished
		return c.RunHooks(ctx, StepFinished, StepPayload{Step: *ref})
	}
}

// Compose chains sections; the first error stops the chain.
func Compose(sections ...Section) Section {
	return func(ctx context.Context, actions plugin.Actions) error {
		for _, s := range sections {
			if s == nil {
				continue
			}
			if err := s(ctx, actions); err != nil {
				return err
			}
		}
		return nil
	}
}
