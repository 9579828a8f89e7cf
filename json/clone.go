package json

import (
	clone "github.com/huandu/go-clone"
)

// DeepCopier is implemented by values that copy themselves, e.g. states
// holding resources that must be shared rather than duplicated.
type DeepCopier interface {
	DeepCopy() any
}

// Clone returns a deep copy of v with the same dynamic type.
//
// Values implementing DeepCopier copy themselves. Everything else is copied
// field by field, unexported fields and values held in interfaces included,
// so an int inside a map[string]any stays an int. Pointer cycles and shared
// pointers are preserved. Functions and channels are shared, not copied.
func Clone(v any) any {
	if v == nil {
		return nil
	}
	if c, ok := v.(DeepCopier); ok {
		return c.DeepCopy()
	}
	return clone.Slowly(v)
}

// CloneAs is the typed form of Clone.
func CloneAs[T any](v T) T {
	out, _ := Clone(v).(T)
	return out
}
