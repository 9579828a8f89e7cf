package json

import (
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// logAPI renders log and error text: sorted keys, no HTML escaping.
var logAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Stringifier renders arbitrary values for log lines and error messages,
// replacing the values of sensitive keys. It never fails.
type Stringifier struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewStringifier creates a Stringifier redacting the given keys (case-insensitive).
func NewStringifier(keys ...string) *Stringifier {
	s := &Stringifier{keys: make(map[string]struct{}, len(keys))}
	s.AddKeys(keys...)
	return s
}

// AddKeys registers more keys to redact.
func (s *Stringifier) AddKeys(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.keys[strings.ToLower(k)] = struct{}{}
	}
}

// Stringify returns v as JSON with sensitive values replaced by
// "_SECURE_<kind>key_". Strings are returned verbatim. Values that cannot be
// encoded fall back to their %+v form.
func (s *Stringifier) Stringify(v any) string {
	if str, ok := v.(string); ok {
		return str
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}

	data, err := logAPI.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}

	s.mu.RLock()
	noKeys := len(s.keys) == 0
	s.mu.RUnlock()
	if noKeys {
		return string(data)
	}

	var generic any
	if err := logAPI.Unmarshal(data, &generic); err != nil {
		return string(data)
	}
	out, err := logAPI.MarshalToString(s.redact(generic))
	if err != nil {
		return string(data)
	}
	return out
}

func (s *Stringifier) redact(v any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redactUnlocked(v)
}

// redactUnlocked is redact for callers already holding the read lock.
func (s *Stringifier) redactUnlocked(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if _, secure := s.keys[strings.ToLower(k)]; secure {
				val[k] = replacement(k, inner)
				continue
			}
			val[k] = s.redactUnlocked(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = s.redactUnlocked(inner)
		}
		return val
	default:
		return v
	}
}

func replacement(key string, v any) string {
	kind := "object"
	switch v.(type) {
	case string:
		kind = "string"
	case float64:
		kind = "number"
	case bool:
		kind = "boolean"
	case nil:
		kind = "null"
	case []any:
		kind = "array"
	}
	return fmt.Sprintf("_SECURE_<%s>%s_", kind, key)
}

var defaultStringifier = NewStringifier("password", "authorization", "token", "secret")

// SecureStringify renders v with the default redaction keys.
func SecureStringify(v any) string {
	return defaultStringifier.Stringify(v)
}

// AddSecureKeys extends the default redaction keys.
func AddSecureKeys(keys ...string) {
	defaultStringifier.AddKeys(keys...)
}
