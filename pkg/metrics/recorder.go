// Package metrics records assistant activity in a process-local Prometheus registry.
package metrics

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Recorder is the sink for every counter the assistant keeps.
type Recorder interface {
	ObserveDispatch(route string)
	ObserveClassification(category string)
	ObserveWorkflow(finalState string, duration time.Duration)
	ObserveTestRun(framework, outcome string, duration time.Duration)
	ObserveRequest(model string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration)
	ObserveThrottle(model string, wait time.Duration)
}

// PrometheusRecorder owns a private registry so repeated construction in tests never collides.
type PrometheusRecorder struct {
	registry        *prometheus.Registry
	dispatches      *prometheus.CounterVec
	classifications *prometheus.CounterVec
	workflows       *prometheus.CounterVec
	workflowLatency *prometheus.HistogramVec
	testRuns        *prometheus.CounterVec
	testLatency     *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	tokens          *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	throttleWait    *prometheus.HistogramVec
}

func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devpilot_dispatch_total",
			Help: "Messages handled, by route (workflow or command id)",
		}, []string{"route"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devpilot_intent_total",
			Help: "Intent classifications by category",
		}, []string{"category"}),
		workflows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devpilot_tdd_workflows_total",
			Help: "TDD workflows by final state",
		}, []string{"state"}),
		workflowLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devpilot_tdd_workflow_duration_seconds",
			Help:    "TDD workflow wall time",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"state"}),
		testRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devpilot_test_runs_total",
			Help: "Test suite executions by framework and outcome",
		}, []string{"framework", "outcome"}),
		testLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devpilot_test_run_duration_seconds",
			Help:    "Test suite wall time",
			Buckets: prometheus.DefBuckets,
		}, []string{"framework"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devpilot_llm_requests_total",
			Help: "LLM requests by model and status",
		}, []string{"model", "status", "error_type"}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devpilot_llm_tokens_total",
			Help: "Tokens exchanged with the model",
		}, []string{"model", "type"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devpilot_llm_request_duration_seconds",
			Help:    "LLM request latency",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"model"}),
		throttleWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devpilot_llm_throttle_wait_seconds",
			Help:    "Time spent waiting for the request rate limiter",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"model"}),
	}
}

func (r *PrometheusRecorder) ObserveDispatch(route string) {
	r.dispatches.WithLabelValues(route).Inc()
}

func (r *PrometheusRecorder) ObserveClassification(category string) {
	r.classifications.WithLabelValues(category).Inc()
}

func (r *PrometheusRecorder) ObserveWorkflow(finalState string, duration time.Duration) {
	r.workflows.WithLabelValues(finalState).Inc()
	r.workflowLatency.WithLabelValues(finalState).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveTestRun(framework, outcome string, duration time.Duration) {
	r.testRuns.WithLabelValues(framework, outcome).Inc()
	r.testLatency.WithLabelValues(framework).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveRequest(model string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.requests.WithLabelValues(model, status, errorType).Inc()
	if promptTokens > 0 {
		r.tokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		r.tokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	r.requestLatency.WithLabelValues(model).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveThrottle(model string, wait time.Duration) {
	r.throttleWait.WithLabelValues(model).Observe(wait.Seconds())
}

// WriteText renders every family in the Prometheus text exposition format.
func (r *PrometheusRecorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Summary returns a short human-readable digest of the counters.
func (r *PrometheusRecorder) Summary() (string, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}

	lines := make([]string, 0, len(families))
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		lines = append(lines, fmt.Sprintf("%s %g", strings.TrimPrefix(mf.GetName(), "devpilot_"), total))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

// Text is WriteText into a string.
func (r *PrometheusRecorder) Text() (string, error) {
	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveDispatch(string)                                       {}
func (Nop) ObserveClassification(string)                                 {}
func (Nop) ObserveWorkflow(string, time.Duration)                        {}
func (Nop) ObserveTestRun(string, string, time.Duration)                 {}
func (Nop) ObserveRequest(string, int, int, bool, string, time.Duration) {}
func (Nop) ObserveThrottle(string, time.Duration)                        {}
