package plugin

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/json"
)

// Snapshot is a deep copy of plugin states taken at one point in time.
// Restoring a snapshot does not consume it.
type Snapshot struct {
	ID        uuid.UUID
	CreatedAt time.Time
	states    []stateEntry
}

type stateEntry struct {
	name  string
	state any
}

// Names returns the plugins captured in the snapshot, in registration order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.states))
	for i, e := range s.states {
		names[i] = e.name
	}
	return names
}

// IsZero reports whether s was never taken.
func (s Snapshot) IsZero() bool {
	return s.ID == uuid.Nil
}

// Snapshot captures the state of every plugin.
func (c *Container) Snapshot() (Snapshot, error) {
	names := make([]string, 0, len(c.Plugins))
	for _, p := range c.Plugins {
		if p != nil {
			names = append(names, p.Name)
		}
	}
	return c.SnapshotOf(names...)
}

// SnapshotOf captures the state of the named plugins.
func (c *Container) SnapshotOf(names ...string) (Snapshot, error) {
	s := Snapshot{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		states:    make([]stateEntry, 0, len(names)),
	}
	for _, name := range names {
		p := c.find(name)
		if p == nil {
			return Snapshot{}, apperrors.MissingPlugin(map[string]any{"name": name})
		}
		s.states = append(s.states, stateEntry{name: name, state: json.Clone(p.State)})
	}
	return s, nil
}

// Restore puts every state captured in s back.
func (c *Container) Restore(s Snapshot) error {
	return c.RestoreExcept(s)
}

// RestoreExcept puts the states captured in s back, leaving the plugins named
// in keep untouched.
//
// Pointer states are overwritten in place, so references handlers already
// hold stay valid. Other states are replaced.
func (c *Container) RestoreExcept(s Snapshot, keep ...string) error {
	skip := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		skip[name] = struct{}{}
	}

	for _, e := range s.states {
		if _, ok := skip[e.name]; ok {
			continue
		}
		p := c.find(e.name)
		if p == nil {
			return apperrors.MissingPlugin(map[string]any{"name": e.name, "snapshot": s.ID.String()})
		}
		assignState(p, json.Clone(e.state))
	}
	return nil
}

func assignState(p *Plugin, state any) {
	cur := reflect.ValueOf(p.State)
	next := reflect.ValueOf(state)
	if cur.IsValid() && next.IsValid() && cur.Type() == next.Type() &&
		cur.Kind() == reflect.Pointer && !cur.IsNil() && !next.IsNil() {
		cur.Elem().Set(next.Elem())
		return
	}
	p.State = state
}
