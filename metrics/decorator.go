package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/leeforge/hookforge/json"
	"github.com/leeforge/hookforge/plugin"
)

// Series recorded by Decorator.
const (
	CallsTotal   = "hookforge_calls_total"
	CallDuration = "hookforge_call_duration_seconds"
)

// Decorator counts every decorated call by dependency, field and outcome and
// records its duration.
func Decorator(collector *Collector) plugin.Decorator {
	return func(meta plugin.CallInfo, next plugin.Action) plugin.Action {
		return func(ctx context.Context, args any) (any, error) {
			start := time.Now()
			out, err := next(ctx, args)

			outcome := "succeeded"
			if err != nil {
				outcome = "failed"
			}
			labels := map[string]string{"dependency": meta.Dependency, "field": meta.Field}
			collector.ObserveHistogram(CallDuration, time.Since(start).Seconds(), labels)
			labels["outcome"] = outcome
			collector.IncCounter(CallsTotal, labels)
			return out, err
		}
	}
}

// Handler serves the collector as JSON, or in the Prometheus text format
// when the request asks for text/plain.
func Handler(collector *Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "text/plain" {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			_, _ = w.Write([]byte(collector.PrometheusFormat()))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(collector.GetMetrics())
	})
}

// Middleware records every request served by next.
func Middleware(collector *Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)
			collector.RecordRequest(r.Method, r.URL.Path, ww.statusCode, time.Since(start))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
