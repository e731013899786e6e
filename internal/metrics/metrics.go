// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes for RecordBackendRequest.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder is what the backend, realtime feed and views report into.
type Recorder interface {
	RecordBackendRequest(op, outcome string)
	RecordRealtimeEvent(eventType string)
	RecordSnapshotRefresh(trigger string)
	RecordUploadFailure(folder string)
	ViewOpened()
	ViewClosed()
	ViewEvicted()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	backendRequests *prometheus.CounterVec
	realtimeEvents  *prometheus.CounterVec
	snapshotRefresh *prometheus.CounterVec
	uploadFailures  *prometheus.CounterVec
	activeViews     prometheus.Gauge
	evictedViews    prometheus.Counter
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_backend_requests_total",
			Help: "Backend contract calls by operation and outcome",
		}, []string{"op", "outcome"}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_realtime_events_total",
			Help: "Change events published on the realtime feed",
		}, []string{"type"}),
		snapshotRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_snapshot_refreshes_total",
			Help: "Task list re-fetches by trigger",
		}, []string{"trigger"}),
		uploadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_upload_failures_total",
			Help: "Attachment uploads that resolved to no URL",
		}, []string{"folder"}),
		activeViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskboard_active_views",
			Help: "Mounted task board views",
		}),
		evictedViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskboard_views_evicted_total",
			Help: "Views closed early because the view cap was reached",
		}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.realtimeEvents,
		c.snapshotRefresh,
		c.uploadFailures,
		c.activeViews,
		c.evictedViews,
	)

	return c
}

func (c *Collector) RecordBackendRequest(op, outcome string) {
	c.backendRequests.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordRealtimeEvent(eventType string) {
	c.realtimeEvents.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordSnapshotRefresh(trigger string) {
	c.snapshotRefresh.WithLabelValues(trigger).Inc()
}

func (c *Collector) RecordUploadFailure(folder string) {
	c.uploadFailures.WithLabelValues(folder).Inc()
}

func (c *Collector) ViewOpened() {
	c.activeViews.Inc()
}

func (c *Collector) ViewClosed() {
	c.activeViews.Dec()
}

func (c *Collector) ViewEvicted() {
	c.evictedViews.Inc()
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// Nop discards everything. Used when METRICS_ENABLED is false and in tests.
type Nop struct{}

func (Nop) RecordBackendRequest(op, outcome string) {}
func (Nop) RecordRealtimeEvent(eventType string)    {}
func (Nop) RecordSnapshotRefresh(trigger string)    {}
func (Nop) RecordUploadFailure(folder string)       {}
func (Nop) ViewOpened()                             {}
func (Nop) ViewClosed()                             {}
func (Nop) ViewEvicted()                            {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
