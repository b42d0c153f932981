package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "newsverify"
	subsystem = "agent"
)

// Recorder holds the Prometheus collectors for agent runs. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	// RunsTotal counts finished runs.
	// Labels: verdict (REAL, FAKE, UNCERTAIN), outcome (answered, model_error, budget_exhausted)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures wall-clock time per run.
	RunDurationSeconds prometheus.Histogram

	// ToolCallsTotal counts tool executions.
	// Labels: tool, status (success, error)
	ToolCallsTotal *prometheus.CounterVec

	// ToolDurationSeconds measures tool execution time.
	// Labels: tool
	ToolDurationSeconds *prometheus.HistogramVec

	// ModelCallDurationSeconds measures model round trips.
	// Labels: provider, status (success, error)
	ModelCallDurationSeconds *prometheus.HistogramVec

	// JobsTotal counts analysis jobs handled by the service.
	// Labels: status (queued, rejected, completed, abandoned, failed)
	JobsTotal *prometheus.CounterVec

	// QueueDepth is the number of jobs waiting for a worker.
	QueueDepth prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which suits tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Agent runs by final verdict and terminal outcome.",
		}, []string{"verdict", "outcome"}),
		RunDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of agent runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		ToolCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool and status.",
		}, []string{"tool", "status"}),
		ToolDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"tool"}),
		ModelCallDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "model_call_duration_seconds",
			Help:      "Model service round-trip duration.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "status"}),
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "jobs_total",
			Help:      "Analysis jobs by status.",
		}, []string{"status"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "queue_depth",
			Help:      "Jobs waiting for a worker.",
		}),
	}
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(verdict, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(verdict, outcome).Inc()
	r.RunDurationSeconds.Observe(d.Seconds())
}

// ObserveToolCall records one tool execution.
func (r *Recorder) ObserveToolCall(tool string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	r.ToolCallsTotal.WithLabelValues(tool, status(ok)).Inc()
	r.ToolDurationSeconds.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveModelCall records one model round trip.
func (r *Recorder) ObserveModelCall(provider string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	r.ModelCallDurationSeconds.WithLabelValues(provider, status(ok)).Observe(d.Seconds())
}

// ObserveJob counts one job transition.
func (r *Recorder) ObserveJob(status string) {
	if r == nil {
		return
	}
	r.JobsTotal.WithLabelValues(status).Inc()
}

// SetQueueDepth reports the current backlog.
func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.QueueDepth.Set(float64(n))
}
