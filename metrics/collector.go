package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leeforge/hookforge/utils"
)

// Metric types.
const (
	TypeCounter   = "counter"
	TypeHistogram = "histogram"
)

// historyLimit caps the observations a histogram keeps.
const historyLimit = 100

// Collector keeps counters and histograms in memory.
type Collector struct {
	metrics map[string]*Metric
	mu      sync.RWMutex
}

// Metric is one labelled series.
type Metric struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	History   []float64         `json:"history,omitempty"`
	Count     int               `json:"count,omitempty"`
	Sum       float64           `json:"sum,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]*Metric),
	}
}

// IncCounter adds one to a counter.
func (c *Collector) IncCounter(name string, labels map[string]string) {
	c.AddCounter(name, 1, labels)
}

// AddCounter adds value to a counter.
func (c *Collector) AddCounter(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	if metric, exists := c.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now().Unix()
		return
	}
	c.metrics[key] = &Metric{
		Name:      name,
		Type:      TypeCounter,
		Value:     value,
		Labels:    copyLabels(labels),
		Timestamp: time.Now().Unix(),
	}
}

// ObserveHistogram records one observation. Only the latest observations are
// kept in History; Count and Sum cover all of them.
func (c *Collector) ObserveHistogram(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := buildKey(name, labels)
	metric, exists := c.metrics[key]
	if !exists {
		metric = &Metric{Name: name, Type: TypeHistogram, Labels: copyLabels(labels)}
		c.metrics[key] = metric
	}
	metric.Value = value
	metric.Count++
	metric.Sum += value
	metric.History = append(metric.History, value)
	if len(metric.History) > historyLimit {
		metric.History = metric.History[1:]
	}
	metric.Timestamp = time.Now().Unix()
}

// buildKey joins name and the labels sorted by key.
func buildKey(name string, labels map[string]string) string {
	key := name
	for _, k := range utils.SortedKeys(labels) {
		key += ":" + k + "=" + labels[k]
	}
	return key
}

func copyLabels(labels map[string]string) map[string]string {
	if len(labels) == 0 {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// GetMetrics returns a copy of every series keyed by name and labels.
func (c *Collector) GetMetrics() map[string]Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Metric, len(c.metrics))
	for k, v := range c.metrics {
		m := *v
		m.Labels = copyLabels(v.Labels)
		m.History = append([]float64(nil), v.History...)
		result[k] = m
	}
	return result
}

// GetMetric returns a copy of one series.
func (c *Collector) GetMetric(name string, labels map[string]string) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.metrics[buildKey(name, labels)]
	if !ok {
		return Metric{}, false
	}
	out := *m
	out.Labels = copyLabels(m.Labels)
	out.History = append([]float64(nil), m.History...)
	return out, true
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[string]*Metric)
}

// PrometheusFormat renders the series in the Prometheus text format,
// histograms as _sum and _count.
func (c *Collector) PrometheusFormat() string {
	metrics := c.GetMetrics()
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		metric := metrics[key]
		labels := ""
		if len(metric.Labels) > 0 {
			pairs := make([]string, 0, len(metric.Labels))
			for _, k := range utils.SortedKeys(metric.Labels) {
				pairs = append(pairs, fmt.Sprintf("%s=%q", k, metric.Labels[k]))
			}
			labels = "{" + strings.Join(pairs, ",") + "}"
		}

		switch metric.Type {
		case TypeCounter:
			sb.WriteString(fmt.Sprintf("%s%s %g\n", metric.Name, labels, metric.Value))
		case TypeHistogram:
			sb.WriteString(fmt.Sprintf("%s_sum%s %g\n", metric.Name, labels, metric.Sum))
			sb.WriteString(fmt.Sprintf("%s_count%s %d\n", metric.Name, labels, metric.Count))
		}
	}
	return sb.String()
}

// Series recorded by RecordRequest.
const (
	RequestsTotal   = "http_requests_total"
	RequestDuration = "http_request_duration_seconds"
)

// RecordRequest records one served HTTP request.
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": fmt.Sprintf("%d", status),
	}
	c.IncCounter(RequestsTotal, labels)
	c.ObserveHistogram(RequestDuration, duration.Seconds(), map[string]string{"method": method, "path": path})
}
