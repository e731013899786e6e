package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackendRequest("tasks.select", OutcomeOK)
	c.RecordBackendRequest("tasks.select", OutcomeOK)
	c.RecordBackendRequest("tasks.insert", OutcomeError)
	c.RecordRealtimeEvent("INSERT")
	c.RecordSnapshotRefresh("realtime")
	c.RecordUploadFailure("images")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.backendRequests.WithLabelValues("tasks.select", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.backendRequests.WithLabelValues("tasks.insert", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.realtimeEvents.WithLabelValues("INSERT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.snapshotRefresh.WithLabelValues("realtime")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploadFailures.WithLabelValues("images")))
}

func TestCollectorActiveViews(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ViewOpened()
	c.ViewOpened()
	c.ViewClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.activeViews))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeError, Outcome(errors.New("boom")))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRealtimeEvent("DELETE")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `taskboard_realtime_events_total{type="DELETE"} 1`)
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordBackendRequest("auth.sign_in", OutcomeOK)
	r.ViewOpened()
	r.ViewClosed()
}
