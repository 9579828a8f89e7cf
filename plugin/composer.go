package plugin

// Composer is the composing stage of a container: an ordered list of plugin
// descriptors. It has no actions and cannot dispatch; Forge turns it into a
// live Container. A Composer is never modified after creation.
type Composer struct {
	plugins []Plugin
}

// Step appends to a composer.
type Step func(Composer) Composer

// NewComposer returns a composer with the given plugins.
func NewComposer(plugins ...Plugin) Composer {
	return Composer{plugins: append([]Plugin(nil), plugins...)}
}

// With returns a new composer with p appended. The receiver is unchanged.
func (c Composer) With(p Plugin) Composer {
	next := make([]Plugin, len(c.plugins), len(c.plugins)+1)
	copy(next, c.plugins)
	return Composer{plugins: append(next, p)}
}

// Plugins returns a copy of the registered descriptors in registration order.
func (c Composer) Plugins() []Plugin {
	return append([]Plugin(nil), c.plugins...)
}

// Len returns the number of registered plugins.
func (c Composer) Len() int {
	return len(c.plugins)
}

// CreatePlugin returns the Step appending p. No validation happens until Forge.
func CreatePlugin(p Plugin) Step {
	return func(c Composer) Composer {
		return c.With(p)
	}
}

// Compose applies steps to an empty composer in order.
func Compose(steps ...Step) Composer {
	c := NewComposer()
	for _, step := range steps {
		c = step(c)
	}
	return c
}

func (c Composer) has(name string) bool {
	for _, p := range c.plugins {
		if p.Name == name {
			return true
		}
	}
	return false
}
