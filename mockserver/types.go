package mockserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leeforge/hookforge/plugin"
)

// Hooks dispatched by the mock server.
const (
	ServerListening             plugin.HookName = "serverListening"
	ServerClosed                plugin.HookName = "serverClosed"
	RoutesCleared               plugin.HookName = "routesCleared"
	GlobalMiddlewareAdded       plugin.HookName = "globalMiddlewareAdded"
	MockHandlerCreationStarted  plugin.HookName = "mockHandlerCreationStarted"
	MockHandlerCreationFinished plugin.HookName = "mockHandlerCreationFinished"
	MockHandlerExecutionStarted plugin.HookName = "mockHandlerExecutionStarted"
	MockHandlerExecutionDone    plugin.HookName = "mockHandlerExecutionFinished"
	MockHandlersUsageExceeded   plugin.HookName = "mockHandlersUsageExceeded"
	MockWithoutDefinitionFailed plugin.HookName = "mockWithoutDefinitionFailed"
)

// MockRequest is the payload of the mock action. Each request to the
// endpoint consumes the next handler; Definition overrides the configured one.
type MockRequest struct {
	EndpointName string
	Handlers     []http.HandlerFunc
	Definition   *Definition
}

// Query selects a mocked endpoint.
type Query struct {
	EndpointName string `json:"endpointName"`
}

// Mock is a mocked endpoint of the current story.
type Mock struct {
	Definition
	// Path is the route served by the mock server.
	Path string `json:"path"`
	// Handlers is the number of queued handlers.
	Handlers int `json:"handlers"`
}

// RecordedRequest is the part of a request kept in an execution.
type RecordedRequest struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    string              `json:"body,omitempty"`
}

// RecordedResponse is what the mock answered.
type RecordedResponse struct {
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Body       string              `json:"body,omitempty"`
}

// Execution is one request served by a mock.
type Execution struct {
	ID           uuid.UUID        `json:"id"`
	EndpointName string           `json:"endpointName"`
	APIName      string           `json:"apiName"`
	Index        int              `json:"index"`
	Exceeded     bool             `json:"exceeded"`
	Request      RecordedRequest  `json:"request"`
	Response     RecordedResponse `json:"response"`
	At           time.Time        `json:"at"`
}

// State is the mock server state: the mocks and executions of the current
// story.
type State struct {
	Mocks      []Mock      `json:"mocks"`
	Executions []Execution `json:"executions"`
}

// MockPayload is the payload of the mock creation hooks.
type MockPayload struct {
	Mock Mock `json:"mock"`
}

// ExecutionPayload is the payload of the mock execution hooks.
type ExecutionPayload struct {
	Mock  Mock   `json:"mock"`
	Index int    `json:"index"`
	Path  string `json:"path"`
}

// ListeningPayload is the payload of ServerListening.
type ListeningPayload struct {
	Addr string `json:"addr"`
}

// MiddlewarePayload is the payload of GlobalMiddlewareAdded.
type MiddlewarePayload struct {
	Name string `json:"name"`
}
