package logging

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Hook is called for each written entry with the fields bound through With
// followed by the call-site fields. A hook error does not stop the write.
type Hook func(entry zapcore.Entry, fields []zapcore.Field) error

// hookCore wraps a zapcore.Core and calls hooks on each log entry.
type hookCore struct {
	zapcore.Core
	hooks   []Hook
	context []zapcore.Field
}

// newHookCore creates a new hookCore wrapping the given core.
func newHookCore(core zapcore.Core, hooks []Hook) zapcore.Core {
	return &hookCore{
		Core:  core,
		hooks: hooks,
	}
}

// Check implements zapcore.Core.
func (c *hookCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

// Write implements zapcore.Core.
func (c *hookCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.context)+len(fields))
	all = append(all, c.context...)
	all = append(all, fields...)
	for _, hook := range c.hooks {
		_ = hook(entry, all)
	}
	return c.Core.Write(entry, fields)
}

// With implements zapcore.Core.
func (c *hookCore) With(fields []zapcore.Field) zapcore.Core {
	context := make([]zapcore.Field, 0, len(c.context)+len(fields))
	context = append(context, c.context...)
	context = append(context, fields...)
	return &hookCore{
		Core:    c.Core.With(fields),
		hooks:   c.hooks,
		context: context,
	}
}

// WithHooks creates a new Logger with the hooks attached. Entries still reach
// the wrapped logger's core.
func WithHooks(logger Logger, hooks ...Hook) Logger {
	if len(hooks) == 0 {
		return logger
	}

	zl := logger.Zap()
	return newZapLogger(zl.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return newHookCore(core, hooks)
	})))
}

// Entry is a captured log entry.
type Entry struct {
	zapcore.Entry
	Fields map[string]any
}

// Recorder collects entries written through a logger it observes.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Hook returns the Hook that appends to r.
func (r *Recorder) Hook() Hook {
	return func(entry zapcore.Entry, fields []zapcore.Field) error {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		r.mu.Lock()
		r.entries = append(r.entries, Entry{Entry: entry, Fields: enc.Fields})
		r.mu.Unlock()
		return nil
	}
}

// Entries returns a copy of the recorded entries in write order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Messages returns the message of every recorded entry in order.
func (r *Recorder) Messages() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// NewRecorded returns a logger at level that writes nowhere but records
// every entry into the returned Recorder.
func NewRecorded(level zapcore.Level) (Logger, *Recorder) {
	rec := &Recorder{}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zapcore.EncoderConfig{}), zapcore.AddSync(io.Discard), level)
	return WithHooks(newZapLogger(zap.New(core)), rec.Hook()), rec
}
