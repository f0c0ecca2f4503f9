// Package prom exports task-group lifecycle metrics through Prometheus.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a scope.Observer backed by Prometheus collectors. Task names
// are deliberately not used as labels to keep cardinality bounded.
type Metrics struct {
	activeTasks     prometheus.Gauge
	tasksStarted    prometheus.Counter
	tasksErrored    prometheus.Counter
	tasksPanicked   prometheus.Counter
	taskDuration    prometheus.Histogram
	groupsCreated   prometheus.Counter
	groupsCancelled prometheus.Counter
	joinWait        prometheus.Histogram
}

// New registers the collectors with reg and returns the observer. A nil reg
// falls back to prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		activeTasks: f.NewGauge(prometheus.GaugeOpts{
			Name: "scope_active_tasks",
			Help: "Tasks currently running across all observed groups.",
		}),
		tasksStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "scope_tasks_started_total",
			Help: "Tasks spawned.",
		}),
		tasksErrored: f.NewCounter(prometheus.CounterOpts{
			Name: "scope_tasks_errored_total",
			Help: "Tasks that finished with an error.",
		}),
		tasksPanicked: f.NewCounter(prometheus.CounterOpts{
			Name: "scope_tasks_panicked_total",
			Help: "Tasks that panicked.",
		}),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scope_task_duration_seconds",
			Help:    "Task run time from start to finish.",
			Buckets: prometheus.DefBuckets,
		}),
		groupsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "scope_groups_created_total",
			Help: "Task groups opened.",
		}),
		groupsCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "scope_groups_cancelled_total",
			Help: "Task groups whose scope was cancelled.",
		}),
		joinWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scope_group_join_wait_seconds",
			Help:    "Time spent in Wait for remaining tasks.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) GroupCreated(context.Context) {
	m.groupsCreated.Inc()
}

func (m *Metrics) GroupCancelled(context.Context, error) {
	m.groupsCancelled.Inc()
}

func (m *Metrics) GroupJoined(_ context.Context, wait time.Duration) {
	m.joinWait.Observe(wait.Seconds())
}

func (m *Metrics) TaskStarted(context.Context, string) {
	m.activeTasks.Inc()
	m.tasksStarted.Inc()
}

func (m *Metrics) TaskFinished(_ context.Context, _ string, dur time.Duration, err error, panicked bool) {
	m.activeTasks.Dec()
	m.taskDuration.Observe(dur.Seconds())
	if err != nil {
		m.tasksErrored.Inc()
	}
	if panicked {
		m.tasksPanicked.Inc()
	}
}
