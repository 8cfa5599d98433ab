// Package metrics collects and exposes Prometheus metrics for the
// dispatch core, worker pool, and remote worker fabric.
//
// Metric Categories:
//
//	Dispatch counters (monotonic):
//	  - protot_tasks_dispatched_total
//	  - protot_tasks_completed_total
//	  - protot_tasks_failed_total
//
//	Dispatch performance (histogram):
//	  - protot_dispatch_latency_seconds
//
//	Worker pool status (gauge/counter):
//	  - protot_pool_active
//	  - protot_pool_queued
//	  - protot_pool_panics_total
//
//	Remote fabric status (gauge/counter):
//	  - protot_fabric_workers
//	  - protot_fabric_heartbeats_total
//	  - protot_fabric_evictions_total
//
// HTTP Endpoint:
//
//	Exposed via /metrics, scraped by Prometheus, served on a port
//	separate from the admin gRPC port (metrics_addr in config).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for one scheduler process.
type Collector struct {
	tasksDispatched prometheus.Counter
	tasksCompleted  prometheus.Counter
	tasksFailed     prometheus.Counter
	dispatchLatency prometheus.Histogram

	poolActive prometheus.Gauge
	poolQueued prometheus.Gauge
	poolPanics prometheus.Counter

	fabricWorkers    prometheus.Gauge
	fabricHeartbeats prometheus.Counter
	fabricEvictions  prometheus.Counter
}

// NewCollector creates and registers a new metrics collector against
// the default Prometheus registerer.
func NewCollector() *Collector {
	c := &Collector{
		tasksDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protot_tasks_dispatched_total",
			Help: "Total number of tasks dispatched to a worker.",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protot_tasks_completed_total",
			Help: "Total number of tasks that completed successfully.",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protot_tasks_failed_total",
			Help: "Total number of tasks that failed.",
		}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "protot_dispatch_latency_seconds",
			Help:    "Time from execute() call to task completion, in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		poolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "protot_pool_active",
			Help: "Current number of worker-pool goroutines executing a job.",
		}),
		poolQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "protot_pool_queued",
			Help: "Current number of jobs waiting in the worker-pool queue.",
		}),
		poolPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protot_pool_panics_total",
			Help: "Total number of worker-pool panics recovered and respawned.",
		}),
		fabricWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "protot_fabric_workers",
			Help: "Current number of remote workers registered with the fabric.",
		}),
		fabricHeartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protot_fabric_heartbeats_total",
			Help: "Total number of heartbeats received from remote workers.",
		}),
		fabricEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "protot_fabric_evictions_total",
			Help: "Total number of remote workers evicted for a missed heartbeat deadline.",
		}),
	}

	prometheus.MustRegister(
		c.tasksDispatched,
		c.tasksCompleted,
		c.tasksFailed,
		c.dispatchLatency,
		c.poolActive,
		c.poolQueued,
		c.poolPanics,
		c.fabricWorkers,
		c.fabricHeartbeats,
		c.fabricEvictions,
	)

	return c
}

// RecordDispatch records one task handed off to a worker, local or remote.
func (c *Collector) RecordDispatch() {
	c.tasksDispatched.Inc()
}

// RecordCompleted records a successful completion with its end-to-end latency.
func (c *Collector) RecordCompleted(latencySeconds float64) {
	c.tasksCompleted.Inc()
	c.dispatchLatency.Observe(latencySeconds)
}

// RecordFailed records a failed task completion.
func (c *Collector) RecordFailed() {
	c.tasksFailed.Inc()
}

// SetPoolStats updates the worker pool's instantaneous gauges.
func (c *Collector) SetPoolStats(active, queued int64) {
	c.poolActive.Set(float64(active))
	c.poolQueued.Set(float64(queued))
}

// RecordPoolPanic records one recovered worker panic.
func (c *Collector) RecordPoolPanic() {
	c.poolPanics.Inc()
}

// SetFabricWorkers updates the fabric's current registered-worker count.
func (c *Collector) SetFabricWorkers(n int) {
	c.fabricWorkers.Set(float64(n))
}

// RecordFabricHeartbeat records one heartbeat received from a remote worker.
func (c *Collector) RecordFabricHeartbeat() {
	c.fabricHeartbeats.Inc()
}

// RecordFabricEviction records one remote worker evicted for a missed heartbeat.
func (c *Collector) RecordFabricEviction() {
	c.fabricEvictions.Inc()
}

// StartServer starts the Prometheus /metrics HTTP endpoint on addr
// (e.g. ":9090"). It blocks; callers run it in its own goroutine.
func StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
