package storyteller

import (
	"context"

	"github.com/leeforge/hookforge/plugin"
)

// Teller drives the storyteller plugin of a forged container.
type Teller struct {
	c *plugin.Container
}

// Start dispatches StorytellerCreated, capturing every plugin's default
// state, and returns a Teller bound to c.
func Start(ctx context.Context, c *plugin.Container) (*Teller, error) {
	if _, err := plugin.StateOf[*State](c, Name); err != nil {
		return nil, err
	}
	if err := c.RunHooks(ctx, StorytellerCreated, nil); err != nil {
		return nil, err
	}
	return &Teller{c: c}, nil
}

// Container returns the container the teller runs stories on.
func (t *Teller) Container() *plugin.Container {
	return t.c
}

// RunHooks dispatches a hook on the teller's container.
func (t *Teller) RunHooks(ctx context.Context, name plugin.HookName, payload any) error {
	return t.c.RunHooks(ctx, name, payload)
}

// CreateStory registers story and returns its runner.
func (t *Teller) CreateStory(ctx context.Context, story Story) (Runner, error) {
	return plugin.Call[Runner](ctx, t.c, ActionCreateStory, story)
}

// CreateStep returns a section that runs handler as a named step.
func (t *Teller) CreateStep(ctx context.Context, name string, handler Section) (Section, error) {
	return plugin.Call[Section](ctx, t.c, ActionCreateStep, StepSpec{Name: name, Handler: handler})
}

// Finish dispatches StorytellerFinished unless it already ran. Use it when
// not every created story is run.
func (t *Teller) Finish(ctx context.Context) error {
	state, err := plugin.StateOf[*State](t.c, Name)
	if err != nil {
		return err
	}
	return finish(ctx, t.c, state)
}
