// Package metrics defines the Prometheus collectors exported by learnpath.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "learnpath"

// Metrics holds the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	ChallengeAnswers  *prometheus.CounterVec
	LessonCompletions *prometheus.CounterVec
	CourseCompletions *prometheus.CounterVec
	ProgressResets    prometheus.Counter
	StaleLearners     prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ProgressStreams prometheus.Gauge
}

// New creates collectors on a fresh registry, so tests can build as many
// instances as they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChallengeAnswers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "challenge_answers_total",
			Help:      "Challenge answers submitted, by section and correctness.",
		}, []string{"section", "correct"}),
		LessonCompletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "lesson_completions_total",
			Help:      "Lessons newly marked complete.",
		}, []string{"section"}),
		CourseCompletions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "course_completions_total",
			Help:      "Sections in which every lesson became complete.",
		}, []string{"section"}),
		ProgressResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "resets_total",
			Help:      "Explicit progress resets.",
		}),
		StaleLearners: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "janitor",
			Name:      "learners_deleted_total",
			Help:      "Anonymous learners removed after inactivity.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status_code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ProgressStreams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "progress_streams",
			Help:      "Open progress WebSocket streams.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
