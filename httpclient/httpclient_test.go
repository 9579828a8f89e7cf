package httpclient

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/mockserver"
	"github.com/leeforge/hookforge/plugin"
	"github.com/leeforge/hookforge/storyteller"
)

var definitions = []Definition{
	{APIName: "google", EndpointName: "googleMainPage", Method: http.MethodGet, URL: "http://localhost:5245/main-page"},
	{APIName: "api2", EndpointName: "otherEndpoint", Method: http.MethodPost, URL: "http://localhost:5245/other-endpoint"},
}

func forge(t *testing.T, extra ...plugin.Plugin) *storyteller.Teller {
	t.Helper()
	client, err := New(Config{Definitions: definitions, Spacing: 1})
	require.NoError(t, err)
	mock, err := mockserver.New(mockserver.Config{Definitions: []mockserver.Definition{
		{APIName: "google", EndpointName: "googleMainPage", Method: http.MethodGet, URL: "http://localhost:5245/main-page"},
		{APIName: "api2", EndpointName: "otherEndpoint", Method: http.MethodPost, URL: "http://localhost:5245/other-endpoint"},
	}})
	require.NoError(t, err)

	steps := []plugin.Step{
		plugin.CreatePlugin(storyteller.New(storyteller.Config{})),
		plugin.CreatePlugin(mock),
		plugin.CreatePlugin(client),
	}
	for _, p := range extra {
		steps = append(steps, plugin.CreatePlugin(p))
	}
	c, err := plugin.Forge(plugin.Compose(steps...), plugin.ForgeConfig{Logger: logging.Nop()})
	require.NoError(t, err)

	teller, err := storyteller.Start(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = teller.Finish(context.Background()) })
	return teller
}

// toMock points a request at the mock server route of its endpoint.
func toMock(c *plugin.Container, opts Options) func(context.Context, Definition) (Options, error) {
	return func(ctx context.Context, def Definition) (Options, error) {
		m, err := plugin.Call[mockserver.Mock](ctx, c, mockserver.ActionGetMock, mockserver.Query{EndpointName: def.EndpointName})
		if err != nil {
			return Options{}, err
		}
		opts.URL = m.URL
		return opts, nil
	}
}

func TestNew_RejectsDuplicateEndpoints(t *testing.T) {
	_, err := New(Config{Definitions: append(definitions, definitions[1])})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Contains(t, err.Error(), "otherEndpoint")
}

func TestNew_RequiresStoryteller(t *testing.T) {
	client, err := New(Config{Definitions: definitions})
	require.NoError(t, err)
	_, err = plugin.Forge(plugin.Compose(plugin.CreatePlugin(client)), plugin.ForgeConfig{Logger: logging.Nop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), storyteller.Name)
}

func TestRequest_MissingDefinition(t *testing.T) {
	teller := forge(t)

	_, err := teller.Container().Actions.Call(context.Background(), ActionRequest, Request{EndpointName: "unknown"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePlugin))
	assert.Contains(t, err.Error(), "plugin-httpclient.httpclientRequest > missing api definition")
}

func TestRequest_AgainstMockServer(t *testing.T) {
	var seen []plugin.HookName
	watch := plugin.Plugin{Name: "watch@1.0.0"}
	for _, name := range []plugin.HookName{RequestStarted, RequestConfigured, RequestFinished, RequestErrored} {
		name := name
		watch.Hooks = append(watch.Hooks, plugin.Hook{Name: name, Handler: func(*plugin.Container) plugin.HookFunc {
			return func(context.Context, any) error {
				seen = append(seen, name)
				return nil
			}
		}})
	}
	teller := forge(t, watch)
	c := teller.Container()
	ctx := logging.SetRequestID(context.Background(), "req-42")

	// Written by the mock server's request goroutine.
	var (
		mu       sync.Mutex
		received []string
	)
	run, err := teller.CreateStory(ctx, storyteller.Story{
		Arrange: func(ctx context.Context, actions plugin.Actions) error {
			_, err := actions.Call(ctx, mockserver.ActionMock, mockserver.MockRequest{
				EndpointName: "otherEndpoint",
				Handlers: []http.HandlerFunc{func(w http.ResponseWriter, r *http.Request) {
					body, _ := io.ReadAll(r.Body)
					mu.Lock()
					received = []string{r.Method, r.URL.Query().Get("page"), r.Header.Get("Content-Type"), r.Header.Get(RequestIDHeader), string(body)}
					mu.Unlock()
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusCreated)
					_, _ = w.Write([]byte(`{"id":7}`))
				}},
			})
			return err
		},
		Act: func(ctx context.Context, actions plugin.Actions) error {
			for i := 0; i < 2; i++ {
				_, err := actions.Call(ctx, ActionRequest, Request{
					EndpointName: "otherEndpoint",
					Configure: toMock(c, Options{
						Query: map[string][]string{"page": {"2"}},
						Body:  map[string]string{"name": "ada"},
					}),
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
		Assert: func(ctx context.Context, actions plugin.Actions) error {
			responses, err := plugin.Call[[]Response](ctx, c, ActionGetResponses, Query{EndpointName: "otherEndpoint"})
			require.NoError(t, err)
			require.Len(t, responses, 2)

			assert.Equal(t, http.StatusCreated, responses[0].StatusCode)
			assert.Equal(t, "req-42", responses[0].RequestID)
			assert.Equal(t, "api2", responses[0].APIName)
			var out struct{ ID int }
			require.NoError(t, responses[0].Decode(&out))
			assert.Equal(t, 7, out.ID)

			assert.Equal(t, http.StatusTeapot, responses[1].StatusCode, "status codes are responses, not errors")

			none, err := plugin.Call[[]Response](ctx, c, ActionGetResponses, Query{EndpointName: "googleMainPage"})
			require.NoError(t, err)
			assert.Empty(t, none)
			return nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, run(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 5)
	assert.Equal(t, []string{http.MethodPost, "2", "application/json", "req-42"}, received[:4])
	assert.JSONEq(t, `{"name":"ada"}`, received[4])

	assert.Equal(t, []plugin.HookName{
		RequestStarted, RequestConfigured, RequestFinished,
		RequestStarted, RequestConfigured, RequestFinished,
	}, seen)
}

func TestRequest_TransportErrorRunsErroredHook(t *testing.T) {
	var errored []ErrorPayload
	watch := plugin.Plugin{Name: "watch@1.0.0", Hooks: []plugin.Hook{
		plugin.On(RequestErrored, func(*plugin.Container) func(context.Context, ErrorPayload) error {
			return func(_ context.Context, p ErrorPayload) error {
				errored = append(errored, p)
				return nil
			}
		}),
	}}
	teller := forge(t, watch)

	_, err := teller.Container().Actions.Call(context.Background(), ActionRequest, Request{
		EndpointName: "googleMainPage",
		Configure: func(context.Context, Definition) (Options, error) {
			return Options{URL: "http://127.0.0.1:1/closed"}, nil
		},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.Contains(t, err.Error(), "request errored")

	require.Len(t, errored, 1)
	assert.Equal(t, "googleMainPage", errored[0].Definition.EndpointName)
	assert.NotEmpty(t, errored[0].Error)

	state := plugin.MustStateOf[*State](teller.Container(), Name)
	assert.Empty(t, state.Responses)
}
