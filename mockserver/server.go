package mockserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/hookforge/errors"
	"github.com/leeforge/hookforge/json"
	"github.com/leeforge/hookforge/logging"
	"github.com/leeforge/hookforge/metrics"
	"github.com/leeforge/hookforge/plugin"
)

// server owns one container's HTTP listener. mu guards the plugin state and
// the queue counters shared with request goroutines; it is never held while
// hooks run.
type server struct {
	cfg    Config
	scheme logging.ColorScheme

	mu sync.Mutex

	routerMu sync.RWMutex
	router   *chi.Mux
	queues   map[string]*queue

	logger     logging.Logger
	httpServer *http.Server
	baseURL    string
	done       chan struct{}
}

type queue struct {
	mock     Mock
	handlers []http.HandlerFunc
	used     int
}

func newServer(cfg Config) *server {
	return &server{
		cfg:    cfg,
		scheme: logging.NewDefaultColorScheme(),
		logger: logging.Nop(),
		router: chi.NewRouter(),
		queues: make(map[string]*queue),
	}
}

func (s *server) start(c *plugin.Container) (string, error) {
	if s.httpServer != nil {
		return "", apperrors.New(apperrors.ErrorTypeConflict, "mock server already listening").
			WithDetail("addr", s.baseURL)
	}
	s.logger = c.Logger().Named("mockserver")

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrorTypeExternal, "mock server listen failed").
			WithDetail("addr", s.cfg.Addr())
	}
	s.baseURL = "http://" + ln.Addr().String()
	s.resetRouter()

	var handler http.Handler = http.HandlerFunc(s.serveHTTP)
	if s.cfg.Metrics != nil {
		handler = metrics.Middleware(s.cfg.Metrics)(handler)
	}
	handler = logging.HTTPMiddleware(s.logger, s.scheme)(handler)
	handler = logging.RecoveryMiddleware(s.logger)(handler)

	s.httpServer = &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	s.done = make(chan struct{})
	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mock server stopped", zap.Error(err))
		}
	}(s.httpServer, s.done)

	return ln.Addr().String(), nil
}

func (s *server) close(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(s.cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	<-s.done
	s.httpServer = nil
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeTimeout, "mock server shutdown failed")
	}
	return nil
}

func (s *server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Metrics != nil && s.cfg.MetricsPath != "" && r.URL.Path == s.cfg.MetricsPath {
		metrics.Handler(s.cfg.Metrics).ServeHTTP(w, r)
		return
	}
	s.routerMu.RLock()
	router := s.router
	s.routerMu.RUnlock()
	router.ServeHTTP(w, r)
}

func (s *server) resetRouter() {
	s.routerMu.Lock()
	defer s.routerMu.Unlock()
	s.router = chi.NewRouter()
	s.queues = make(map[string]*queue)
}

func (s *server) currentRouter() *chi.Mux {
	s.routerMu.RLock()
	defer s.routerMu.RUnlock()
	return s.router
}

func (s *server) installNotFound() {
	router := s.currentRouter()
	router.NotFound(s.notFound)
	router.MethodNotAllowed(s.notFound)
}

func (s *server) notFound(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn(fmt.Sprintf("not found %s %s", r.Method, r.URL.Path),
		zap.String("query", r.URL.RawQuery),
		zap.String("headers", json.SecureStringify(r.Header)),
	)
	http.Error(w, fmt.Sprintf("Page %s not found", r.URL.Path), http.StatusNotFound)
}

// register mounts q on the current router.
func (s *server) register(c *plugin.Container, q *queue) error {
	s.routerMu.Lock()
	defer s.routerMu.Unlock()
	if _, exists := s.queues[q.mock.EndpointName]; exists {
		return apperrors.New(apperrors.ErrorTypeConflict, "endpoint already mocked").
			WithDetail("endpointName", q.mock.EndpointName)
	}
	s.queues[q.mock.EndpointName] = q
	s.router.Method(q.mock.Method, q.mock.Path, s.serveMock(c, q))
	return nil
}

func (s *server) serveMock(c *plugin.Container, q *queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithoutCancel(r.Context())
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		index := q.used
		q.used++
		s.mu.Unlock()

		exceeded := index >= len(q.handlers)
		payload := ExecutionPayload{Mock: q.mock, Index: index, Path: r.URL.Path}
		s.runHooks(ctx, c, MockHandlerExecutionStarted, payload)
		if exceeded {
			s.runHooks(ctx, c, MockHandlersUsageExceeded, payload)
		}

		rec := &recordingWriter{ResponseWriter: w}
		if exceeded {
			rec.Header().Set("Content-Type", "application/json")
			rec.WriteHeader(http.StatusTeapot)
			_ = json.NewEncoder(rec).Encode(map[string]any{
				"message":      "handlers usage exceeded",
				"lastIndex":    index,
				"endpointName": q.mock.EndpointName,
			})
		} else {
			q.handlers[index](rec, r)
		}

		s.runHooks(ctx, c, MockHandlerExecutionDone, payload)

		s.mu.Lock()
		defer s.mu.Unlock()
		state, err := plugin.StateOf[*State](c, Name)
		if err != nil {
			s.logger.Error("mock execution not recorded", zap.Error(err))
			return
		}
		state.Executions = append(state.Executions, Execution{
			ID:           uuid.New(),
			EndpointName: q.mock.EndpointName,
			APIName:      q.mock.APIName,
			Index:        index,
			Exceeded:     exceeded,
			Request: RecordedRequest{
				Method:  r.Method,
				Path:    r.URL.Path,
				Query:   r.URL.Query(),
				Headers: r.Header.Clone(),
				Body:    string(body),
			},
			Response: RecordedResponse{
				StatusCode: rec.statusCode(),
				Headers:    rec.Header().Clone(),
				Body:       rec.body.String(),
			},
			At: time.Now(),
		})
	}
}

// runHooks dispatches from a request goroutine, where there is no caller to
// return the error to.
func (s *server) runHooks(ctx context.Context, c *plugin.Container, name plugin.HookName, payload any) {
	if err := c.RunHooks(ctx, name, payload); err != nil {
		s.logger.Error("mock hook failed", zap.String("hook", string(name)), zap.Error(err))
	}
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *recordingWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
