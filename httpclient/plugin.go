package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creasty/defaults"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/json"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/plugin"
	"github.com/leeforge/hookforge/storyteller"
	"github.com/leeforge/hookforge/utils"
)

// Name is the plugin name.
const (
	Name      = "httpclient@1.0.0"
	ShortName = "httpclient"
)

// Actions exposed by the plugin.
var (
	ActionRequest      = utils.ActionName(ShortName, "request")
	ActionGetResponses = utils.ActionName(ShortName, "get_responses")
)

// RequestIDHeader carries the request ID, taken from the context when the
// story set one.
const RequestIDHeader = "X-Request-ID"

// New returns the HTTP client plugin. It sends requests to the configured
// endpoints and keeps every response in its state for the assert section.
func New(cfg Config) (plugin.Plugin, error) {
	if err := defaults.Set(&cfg); err != nil {
		return plugin.Plugin{}, apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid http client config")
	}
	if err := cfg.validate(); err != nil {
		return plugin.Plugin{}, err
	}
	clientFor := func(c *plugin.Container) (*http.Client, error) {
		return plugin.Resource(c, Name, func() *http.Client {
			return &http.Client{
				Timeout:   time.Duration(cfg.Timeout) * time.Second,
				Transport: http.DefaultTransport.(*http.Transport).Clone(),
			}
		})
	}

	return plugin.Plugin{
		Name:            Name,
		State:           &State{},
		RequiredPlugins: []string{storyteller.Name},
		Actions: map[string]plugin.ActionFactory{
			ActionRequest: plugin.Act(func(c *plugin.Container) func(context.Context, Request) (Response, error) {
				return func(ctx context.Context, req Request) (Response, error) {
					client, err := clientFor(c)
					if err != nil {
						return Response{}, err
					}
					return send(ctx, c, cfg, client, req)
				}
			}),
			ActionGetResponses: plugin.Act(func(c *plugin.Container) func(context.Context, Query) ([]Response, error) {
				return func(_ context.Context, q Query) ([]Response, error) {
					state, err := plugin.StateOf[*State](c, Name)
					if err != nil {
						return nil, err
					}
					out := []Response{}
					for _, r := range state.Responses {
						if r.EndpointName == q.EndpointName {
							out = append(out, r)
						}
					}
					return out, nil
				}
			}),
		},
		Hooks: []plugin.Hook{
			plugin.On(storyteller.StorytellerFinished, func(c *plugin.Container) func(context.Context, any) error {
				return func(context.Context, any) error {
					if client, ok := plugin.ReleaseResource[*http.Client](c, Name); ok {
						client.CloseIdleConnections()
					}
					return nil
				}
			}),
			plugin.On(RequestStarted, func(c *plugin.Container) func(context.Context, DefinitionPayload) error {
				return func(ctx context.Context, p DefinitionPayload) error {
					logger(c, ctx).Debug("request started " + describe(p.Definition))
					return nil
				}
			}),
			plugin.On(RequestFinished, func(c *plugin.Container) func(context.Context, Response) error {
				return func(ctx context.Context, r Response) error {
					logger(c, ctx).Debug(fmt.Sprintf("request finished %d %s", r.StatusCode, describe(r.Definition)),
						zap.String("requestId", r.RequestID),
						zap.Duration("duration", r.Duration),
					)
					return nil
				}
			}),
			plugin.On(RequestErrored, func(c *plugin.Container) func(context.Context, ErrorPayload) error {
				return func(ctx context.Context, p ErrorPayload) error {
					logger(c, ctx).Warn("request errored "+describe(p.Definition), zap.String("error", p.Error))
					return nil
				}
			}),
		},
	}, nil
}

func send(ctx context.Context, c *plugin.Container, cfg Config, client *http.Client, req Request) (Response, error) {
	def, ok := cfg.definition(req.EndpointName)
	if !ok {
		return Response{}, apperrors.PluginError("missing api definition", map[string]any{
			"received": cfg.endpointNames(),
			"expected": req.EndpointName,
		})
	}
	if err := c.RunHooks(ctx, RequestStarted, DefinitionPayload{Definition: def}); err != nil {
		return Response{}, err
	}

	opts := Options{}
	if req.Configure != nil {
		var err error
		if opts, err = req.Configure(ctx, def); err != nil {
			return Response{}, err
		}
	}
	if opts.URL == "" {
		opts.URL = def.URL
	}
	if opts.Method == "" {
		opts.Method = def.Method
	}
	if err := c.RunHooks(ctx, RequestConfigured, ConfiguredPayload{Definition: def, Options: opts}); err != nil {
		return Response{}, err
	}

	resp, err := do(ctx, client, opts)
	if err != nil {
		if hookErr := c.RunHooks(ctx, RequestErrored, ErrorPayload{Definition: def, Error: err.Error()}); hookErr != nil {
			return Response{}, hookErr
		}
		return Response{}, apperrors.Wrap(err, apperrors.ErrorTypeExternal, "request errored").
			WithDetail("endpointName", def.EndpointName)
	}
	resp.Definition = def
	if cfg.Spacing > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(cfg.Spacing) * time.Millisecond):
		}
	}

	state, err := plugin.StateOf[*State](c, Name)
	if err != nil {
		return Response{}, err
	}
	state.Responses = append(state.Responses, resp)
	if err := c.RunHooks(ctx, RequestFinished, resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// do sends opts. Non-2xx statuses are responses, not errors.
func do(ctx context.Context, client *http.Client, opts Options) (Response, error) {
	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, body)
	if err != nil {
		return Response{}, err
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	requestID := logging.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if httpReq.Header.Get(RequestIDHeader) == "" {
		httpReq.Header.Set(RequestIDHeader, requestID)
	}
	if len(opts.Query) > 0 {
		q := httpReq.URL.Query()
		for k, vs := range opts.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, err
	}
	return Response{
		RequestID:  httpReq.Header.Get(RequestIDHeader),
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Body:       string(raw),
		Duration:   time.Since(start),
		At:         start,
	}, nil
}

func encodeBody(v any) (io.Reader, string, error) {
	switch b := v.(type) {
	case nil:
		return nil, "", nil
	case string:
		return bytes.NewReader([]byte(b)), "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", apperrors.Wrap(err, apperrors.ErrorTypeValidation, "request body is not json encodable")
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

func logger(c *plugin.Container, ctx context.Context) logging.Logger {
	return logging.WithContext(c.Logger().Named(ShortName), ctx)
}
