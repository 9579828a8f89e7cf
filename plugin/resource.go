package plugin

import (
	"fmt"
	"sync"

	apperrors "github.com/leeforge/hookforge/errors"
)

// resources holds the runtime values plugins own per container: servers,
// clients, buses. Unlike plugin state they are never copied, snapshotted or
// restored, and two containers forged from one descriptor never share them.
type resources struct {
	mu     sync.Mutex
	values map[string]any
}

// Resource returns the container's value for key, creating it with create on
// first use. It is safe to call from request goroutines.
func Resource[T any](c *Container, key string, create func() T) (T, error) {
	c.resources.mu.Lock()
	defer c.resources.mu.Unlock()

	if v, ok := c.resources.values[key]; ok {
		typed, ok := v.(T)
		if !ok {
			var zero T
			return zero, apperrors.New(apperrors.ErrorTypeValidation, apperrors.MsgStateMismatch).
				WithDetail("resource", key).
				WithDetail("want", fmt.Sprintf("%T", zero)).
				WithDetail("got", fmt.Sprintf("%T", v))
		}
		return typed, nil
	}
	if c.resources.values == nil {
		c.resources.values = make(map[string]any)
	}
	v := create()
	c.resources.values[key] = v
	return v, nil
}

// LookupResource returns the container's value for key without creating it.
func LookupResource[T any](c *Container, key string) (T, bool) {
	c.resources.mu.Lock()
	defer c.resources.mu.Unlock()
	v, ok := c.resources.values[key].(T)
	return v, ok
}

// ReleaseResource forgets the container's value for key and returns it, so
// the caller can close it.
func ReleaseResource[T any](c *Container, key string) (T, bool) {
	c.resources.mu.Lock()
	defer c.resources.mu.Unlock()
	v, ok := c.resources.values[key].(T)
	delete(c.resources.values, key)
	return v, ok
}
