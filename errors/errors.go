package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/leeforge/hookforge/json"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Forge-time validation errors
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConflict   ErrorType = "conflict"

	// Lookup errors
	ErrorTypeNotFound ErrorType = "not_found"

	// Plugin errors raised by plugin actions and hooks
	ErrorTypePlugin  ErrorType = "plugin"
	ErrorTypeTimeout ErrorType = "timeout"

	// System errors
	ErrorTypeInternal ErrorType = "internal"
	ErrorTypeExternal ErrorType = "external"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Sentinels for errors.Is checks. Matching is by ErrorType.
var (
	ErrValidation = &AppError{Type: ErrorTypeValidation}
	ErrConflict   = &AppError{Type: ErrorTypeConflict}
	ErrNotFound   = &AppError{Type: ErrorTypeNotFound}
	ErrPlugin     = &AppError{Type: ErrorTypePlugin}
	ErrTimeout    = &AppError{Type: ErrorTypeTimeout}
)

// Messages used by the container. Plugins match on these in tests.
const (
	MsgMissingPlugin     = "missing plugin"
	MsgDuplicatePlugin   = "duplicate plugin"
	MsgInvalidActionName = "action name must start with plugin name"
	MsgInvalidPlugin     = "invalid plugin descriptor"
	MsgInvalidConfig     = "invalid forge config"
	MsgMissingAction     = "missing action"
	MsgDuplicateAction   = "duplicate action"
	MsgPayloadMismatch   = "payload type mismatch"
	MsgStateMismatch     = "state type mismatch"
)

// AppError represents a structured application error.
type AppError struct {
	Type       ErrorType      `json:"type"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	InnerError error          `json:"-"`
	Stack      []string       `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.InnerError != nil:
		b.WriteString(e.InnerError.Error())
	default:
		b.WriteString(string(e.Type))
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(json.SecureStringify(e.Details))
	}
	return b.String()
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// WithMessage adds a message to the error
func (e *AppError) WithMessage(msg string) *AppError {
	e.Message = msg
	return e
}

// WithCode adds a code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithInnerError sets the inner error
func (e *AppError) WithInnerError(err error) *AppError {
	e.InnerError = err
	return e
}

// WithStack captures the call stack
func (e *AppError) WithStack() *AppError {
	e.Stack = captureStack(3) // Skip this method and the caller
	return e
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Code:       string(ErrorTypeUnknown),
		InnerError: err,
	}
}

// Wrap wraps an error with a specific type
func Wrap(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// trail is one provenance entry layered over an error. Each decorated call
// adds its own layer, so the decorated error itself is never modified.
type trail struct {
	segment string
	err     error
}

func (t *trail) Error() string {
	return t.segment + t.err.Error()
}

func (t *trail) Unwrap() error {
	return t.err
}

// Decorate records segment as the newest (outermost) provenance entry of err.
// The result unwraps to err, so errors.Is and errors.As still match it.
func Decorate(err error, segment string) error {
	if err == nil {
		return nil
	}
	return &trail{segment: segment, err: err}
}

// DecorationOf returns the provenance trail recorded on err, outermost call
// first, e.g. "plugin-a.aRun > plugin-b.bLoad > ".
func DecorationOf(err error) string {
	var b strings.Builder
	for err != nil {
		if t, ok := err.(*trail); ok {
			b.WriteString(t.segment)
		}
		err = errors.Unwrap(err)
	}
	return b.String()
}

// MissingPlugin is returned by lookups that find no plugin with the name.
func MissingPlugin(details map[string]any) *AppError {
	return New(ErrorTypeNotFound, MsgMissingPlugin).WithDetails(details)
}

// MissingRequiredPlugins is returned by forge when plugin declares required
// plugins that are not composed.
func MissingRequiredPlugins(plugin string, missing []string) *AppError {
	return New(ErrorTypeValidation, MsgMissingPlugin).
		WithDetail("plugin", plugin).
		WithDetail("missingPlugins", missing)
}

// DuplicatePlugin is returned by forge when two plugins share a name.
func DuplicatePlugin(name string) *AppError {
	return New(ErrorTypeConflict, MsgDuplicatePlugin).WithDetail("name", name)
}

// InvalidActionName is returned by forge when action keys miss the plugin prefix.
func InvalidActionName(pluginName string, wrong []string) *AppError {
	return New(ErrorTypeValidation, MsgInvalidActionName).
		WithDetail("pluginName", pluginName).
		WithDetail("wrongActionNames", wrong)
}

// Validation wraps a validator failure.
func Validation(message string, err error) *AppError {
	return Wrap(err, ErrorTypeValidation, message)
}

// PluginError is the error plugins raise from their own actions and hooks.
func PluginError(message string, details map[string]any) *AppError {
	e := New(ErrorTypePlugin, message)
	if len(details) > 0 {
		e.WithDetails(details)
	}
	return e
}

// Timeout wraps a context error observed between hook handlers.
func Timeout(err error, details map[string]any) *AppError {
	return Wrap(err, ErrorTypeTimeout, fmt.Sprintf("hook dispatch interrupted: %v", err)).WithDetails(details)
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// captureStack captures the call stack
func captureStack(skip int) []string {
	var stack []string
	for i := skip; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		// Shorten function name
		if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
			funcName = funcName[idx+1:]
		}

		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, funcName))
	}
	return stack
}
