package mockserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/plugin"
	"github.com/leeforge/hookforge/storyteller"
	"github.com/leeforge/hookforge/utils"
)

// Name is the plugin name.
const (
	Name      = "mockserver@1.0.0"
	ShortName = "mockserver"
)

// Actions exposed by the plugin.
var (
	ActionMock          = utils.ActionName(ShortName, "mock")
	ActionGetMock       = utils.ActionName(ShortName, "get_mock")
	ActionGetExecutions = utils.ActionName(ShortName, "get_executions")
	ActionBaseURL       = utils.ActionName(ShortName, "base_url")
)

// New returns the mock server plugin. The server lifecycle follows the
// storyteller: it listens once the storyteller is created, drops every route
// when a story's arrange section starts and shuts down when the storyteller
// finishes.
func New(cfg Config) (plugin.Plugin, error) {
	if err := defaults.Set(&cfg); err != nil {
		return plugin.Plugin{}, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid mock server config")
	}
	if err := cfg.validate(); err != nil {
		return plugin.Plugin{}, err
	}
	serverFor := func(c *plugin.Container) (*server, error) {
		return plugin.Resource(c, Name, func() *server { return newServer(cfg) })
	}

	return plugin.Plugin{
		Name:            Name,
		State:           &State{},
		RequiredPlugins: []string{storyteller.Name},
		Actions: map[string]plugin.ActionFactory{
			ActionMock: plugin.Act(func(c *plugin.Container) func(context.Context, MockRequest) (Mock, error) {
				return func(ctx context.Context, req MockRequest) (Mock, error) {
					s, err := serverFor(c)
					if err != nil {
						return Mock{}, err
					}
					return s.mock(ctx, c, req)
				}
			}),
			ActionGetMock: plugin.Act(func(c *plugin.Container) func(context.Context, Query) (Mock, error) {
				return func(_ context.Context, q Query) (Mock, error) {
					s, err := serverFor(c)
					if err != nil {
						return Mock{}, err
					}
					s.mu.Lock()
					defer s.mu.Unlock()
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return Mock{}, err
					}
					for _, m := range state.Mocks {
						if m.EndpointName == q.EndpointName {
							return m, nil
						}
					}
					return Mock{}, apperrors.PluginError("missing mock", map[string]any{"endpointName": q.EndpointName})
				}
			}),
			ActionGetExecutions: plugin.Act(func(c *plugin.Container) func(context.Context, Query) ([]Execution, error) {
				return func(_ context.Context, q Query) ([]Execution, error) {
					s, err := serverFor(c)
					if err != nil {
						return nil, err
					}
					s.mu.Lock()
					defer s.mu.Unlock()
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return nil, err
					}
					out := []Execution{}
					for _, e := range state.Executions {
						if e.EndpointName == q.EndpointName {
							out = append(out, e)
						}
					}
					return out, nil
				}
			}),
			ActionBaseURL: plugin.Act(func(c *plugin.Container) func(context.Context, any) (string, error) {
				return func(context.Context, any) (string, error) {
					s, ok := plugin.LookupResource[*server](c, Name)
					if !ok || s.baseURL == "" {
						return "", apperrors.PluginError("mock server is not listening", nil)
					}
					return s.baseURL, nil
				}
			}),
		},
		Hooks: []plugin.Hook{
			plugin.On(storyteller.StorytellerCreated, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					s, err := serverFor(c)
					if err != nil {
						return err
					}
					addr, err := s.start(c)
					if err != nil {
						return err
					}
					return c.RunHooks(ctx, ServerListening, ListeningPayload{Addr: addr})
				}
			}),
			plugin.On(storyteller.ArrangeStarted, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					s, err := serverFor(c)
					if err != nil {
						return err
					}
					s.resetRouter()
					return c.RunHooks(ctx, RoutesCleared, nil)
				}
			}),
			plugin.On(storyteller.ArrangeFinished, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					s, err := serverFor(c)
					if err != nil {
						return err
					}
					s.installNotFound()
					if routes, err := utils.Routes(s.currentRouter()); err == nil {
						logger(c, ctx).Debug("routes mounted", zap.Strings("routes", routes))
					}
					return c.RunHooks(ctx, GlobalMiddlewareAdded, MiddlewarePayload{Name: "notFound"})
				}
			}),
			plugin.On(storyteller.StorytellerFinished, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					s, ok := plugin.ReleaseResource[*server](c, Name)
					if !ok {
						return nil
					}
					if err := s.close(ctx); err != nil {
						return err
					}
					return c.RunHooks(ctx, ServerClosed, nil)
				}
			}),
			plugin.On(RoutesCleared, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					logger(c, ctx).Debug("routes cleared")
					return nil
				}
			}),
			plugin.On(GlobalMiddlewareAdded, func(c *plugin.Container) func(context.Context, MiddlewarePayload) error {
				return func(ctx context.Context, p MiddlewarePayload) error {
					logger(c, ctx).Debug("global middleware added: " + p.Name)
					return nil
				}
			}),
			plugin.On(ServerListening, func(c *plugin.Container) func(context.Context, ListeningPayload) error {
				return func(ctx context.Context, p ListeningPayload) error {
					logger(c, ctx).Info("plugin listening on " + p.Addr)
					return nil
				}
			}),
			plugin.On(ServerClosed, func(c *plugin.Container) func(context.Context, any) error {
				return func(ctx context.Context, _ any) error {
					logger(c, ctx).Info("server closed")
					return nil
				}
			}),
			plugin.On(MockHandlerCreationStarted, func(c *plugin.Container) func(context.Context, MockPayload) error {
				return func(ctx context.Context, p MockPayload) error {
					logger(c, ctx).Debug(fmt.Sprintf("mock creation started - %d executions %s",
						p.Mock.Handlers, describe(p.Mock.Definition, baseURL(c))))
					return nil
				}
			}),
			plugin.On(MockHandlerCreationFinished, func(c *plugin.Container) func(context.Context, MockPayload) error {
				return func(ctx context.Context, p MockPayload) error {
					logger(c, ctx).Debug(fmt.Sprintf("mock creation finished - %d executions %s",
						p.Mock.Handlers, describe(p.Mock.Definition, baseURL(c))))
					return nil
				}
			}),
			plugin.On(MockHandlerExecutionStarted, func(c *plugin.Container) func(context.Context, ExecutionPayload) error {
				return func(ctx context.Context, p ExecutionPayload) error {
					logger(c, ctx).Debug(fmt.Sprintf("execution started %d/%d %s",
						p.Index+1, p.Mock.Handlers, describe(p.Mock.Definition, baseURL(c))))
					return nil
				}
			}),
			plugin.On(MockHandlerExecutionDone, func(c *plugin.Container) func(context.Context, ExecutionPayload) error {
				return func(ctx context.Context, p ExecutionPayload) error {
					logger(c, ctx).Debug(fmt.Sprintf("execution finished %d/%d %s",
						p.Index+1, p.Mock.Handlers, describe(p.Mock.Definition, baseURL(c))))
					return nil
				}
			}),
			plugin.On(MockHandlersUsageExceeded, func(c *plugin.Container) func(context.Context, ExecutionPayload) error {
				return func(ctx context.Context, p ExecutionPayload) error {
					logger(c, ctx).Error("handlers usage exceeded",
						zap.String("endpointName", p.Mock.EndpointName),
						zap.Int("index", p.Index),
					)
					return nil
				}
			}),
		},
	}, nil
}

// mock registers req on the router. Hooks run without s.mu held, so their
// handlers may call back into the plugin's actions.
func (s *server) mock(ctx context.Context, c *plugin.Container, req MockRequest) (Mock, error) {
	def, ok := s.cfg.definition(req.EndpointName)
	if req.Definition != nil {
		if err := plugin.Validate("invalid mock definition", *req.Definition); err != nil {
			return Mock{}, err
		}
		def, ok = *req.Definition, true
	}
	if !ok {
		if err := c.RunHooks(ctx, MockWithoutDefinitionFailed, nil); err != nil {
			return Mock{}, err
		}
		return Mock{}, apperrors.PluginError("missing mock definition", map[string]any{"endpointName": req.EndpointName})
	}
	if len(req.Handlers) == 0 {
		return Mock{}, apperrors.New(apperrors.ErrorTypeValidation, "mock needs at least one handler").
			WithDetail("endpointName", def.EndpointName)
	}
	for i, h := range req.Handlers {
		if h == nil {
			return Mock{}, apperrors.New(apperrors.ErrorTypeValidation, "mock handler is nil").
				WithDetail("endpointName", def.EndpointName).
				WithDetail("index", i)
		}
	}

	path, err := def.Path()
	if err != nil {
		return Mock{}, err
	}
	m := Mock{Definition: def, Path: path, Handlers: len(req.Handlers)}
	m.URL = s.baseURL + path

	if err := c.RunHooks(ctx, MockHandlerCreationStarted, MockPayload{Mock: m}); err != nil {
		return Mock{}, err
	}
	q := &queue{mock: m, handlers: append([]http.HandlerFunc(nil), req.Handlers...)}
	if err := s.register(c, q); err != nil {
		return Mock{}, err
	}
	s.mu.Lock()
	state, err := plugin.StateOf[*State](c, Name)
	if err == nil {
		state.Mocks = append(state.Mocks, m)
	}
	s.mu.Unlock()
	if err != nil {
		return Mock{}, err
	}
	if err := c.RunHooks(ctx, MockHandlerCreationFinished, MockPayload{Mock: m}); err != nil {
		return Mock{}, err
	}
	return m, nil
}

// baseURL is the container's listening address, or "" before it listens.
func baseURL(c *plugin.Container) string {
	if s, ok := plugin.LookupResource[*server](c, Name); ok {
		return s.baseURL
	}
	return ""
}

func logger(c *plugin.Container, ctx context.Context) logging.Logger {
	return logging.WithContext(c.Logger().Named(ShortName), ctx)
}
