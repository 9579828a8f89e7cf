package plugin

import (
	"context"
	"strings"

	"github.com/leeforge/hookforge/utils"
)

// Action is a ready-to-call plugin operation.
type Action func(ctx context.Context, payload any) (any, error)

// ActionFactory closes over the live container and returns the action. It is
// called once, at forge time.
type ActionFactory func(c *Container) Action

// Plugin is a named bundle of state, actions and hooks.
//
// Name is conventionally "<shortName>@<semver>". Every action key must start
// with the short name. State is deep-copied into the container at forge time;
// use a pointer so that mutations through GetPlugin persist.
type Plugin struct {
	Name            string                   `json:"name" validate:"required"`
	State           any                      `json:"state,omitempty" validate:"-"`
	Actions         map[string]ActionFactory `json:"-" validate:"dive,required"`
	Hooks           []Hook                   `json:"-" validate:"dive"`
	RequiredPlugins []string                 `json:"requiredPlugins,omitempty" validate:"dive,required"`
}

// ShortName returns the part of Name before the first "@".
func (p Plugin) ShortName() string {
	short, _, _ := strings.Cut(p.Name, "@")
	return short
}

// dependency is the name action decorators tag this plugin's calls with.
func (p Plugin) dependency() string {
	return "plugin-" + p.ShortName()
}

// wrongActionNames returns the action keys missing the short-name prefix, in
// sorted order.
func (p Plugin) wrongActionNames() []string {
	short := p.ShortName()
	var wrong []string
	for _, name := range utils.SortedKeys(p.Actions) {
		if !strings.HasPrefix(name, short) {
			wrong = append(wrong, name)
		}
	}
	return wrong
}

// copyDescriptor copies everything but State. Hooks, actions and required
// plugins get fresh backing storage.
func (p Plugin) copyDescriptor() *Plugin {
	out := &Plugin{Name: p.Name}
	if p.Hooks != nil {
		out.Hooks = append([]Hook(nil), p.Hooks...)
	}
	if p.RequiredPlugins != nil {
		out.RequiredPlugins = append([]string(nil), p.RequiredPlugins...)
	}
	if p.Actions != nil {
		out.Actions = make(map[string]ActionFactory, len(p.Actions))
		for k, v := range p.Actions {
			out.Actions[k] = v
		}
	}
	return out
}
