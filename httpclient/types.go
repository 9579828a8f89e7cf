package httpclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/json"
	"github.com/leeforge/hookforge/plugin"
)

// Hooks dispatched by the HTTP client.
const (
	RequestStarted    plugin.HookName = "httpclientRequestStarted"
	RequestConfigured plugin.HookName = "httpclientRequestConfigured"
	RequestFinished   plugin.HookName = "httpclientRequestFinished"
	RequestErrored    plugin.HookName = "httpclientRequestErrored"
)

// Request is the payload of the request action. Configure receives the
// endpoint definition and returns what to send.
type Request struct {
	EndpointName string
	Configure    func(ctx context.Context, def Definition) (Options, error)
}

// Options is one request to send. Empty URL and Method fall back to the
// definition's.
type Options struct {
	URL     string      `json:"url,omitempty"`
	Method  string      `json:"method,omitempty"`
	Headers http.Header `json:"headers,omitempty"`
	Query   url.Values  `json:"query,omitempty"`
	// Body is sent as is when it is a string or []byte and JSON-encoded
	// otherwise.
	Body any `json:"body,omitempty"`
}

// Response is a request sent during the current story. Any status code is
// a response, not an error.
type Response struct {
	Definition
	RequestID  string        `json:"requestId"`
	StatusCode int           `json:"statusCode"`
	Headers    http.Header   `json:"headers,omitempty"`
	Body       string        `json:"body,omitempty"`
	Duration   time.Duration `json:"duration"`
	At         time.Time     `json:"at"`
}

// Decode unmarshals the response body into v.
func (r Response) Decode(v any) error {
	if err := json.Unmarshal([]byte(r.Body), v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "response body is not valid json").
			WithDetail("endpointName", r.EndpointName)
	}
	return nil
}

// Query selects the responses of an endpoint.
type Query struct {
	EndpointName string `json:"endpointName"`
}

// DefinitionPayload is the payload of RequestStarted.
type DefinitionPayload struct {
	Definition Definition `json:"definition"`
}

// ConfiguredPayload is the payload of RequestConfigured.
type ConfiguredPayload struct {
	Definition Definition `json:"definition"`
	Options    Options    `json:"options"`
}

// ErrorPayload is the payload of RequestErrored.
type ErrorPayload struct {
	Definition Definition `json:"definition"`
	Error      string     `json:"error"`
}

// State holds the responses of the current story.
type State struct {
	Responses []Response `json:"responses"`
}
