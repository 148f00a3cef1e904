package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveDelivery("push", "processed", 10*time.Millisecond)
	m.ObserveDelivery("push", "processed", 20*time.Millisecond)
	m.ObserveInference("ok")
	m.ObserveTasksCompleted("push", 2)
	m.ObserveTasksCompleted("push", 0)
	m.ObserveGitHubSync("push_body", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhookDeliveries.WithLabelValues("push", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferenceCalls.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksCompleted.WithLabelValues("push")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.githubSyncs.WithLabelValues("push_body", "error")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveDelivery("push", "processed", time.Second)
		m.ObserveInference("ok")
		m.ObserveTasksCompleted("push", 1)
		m.ObserveGitHubSync("publish", nil)
		m.ObserveHTTP("/health", 200)
	})
	assert.Nil(t, m.Registry())
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveHTTP("/health", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tasksync_http_requests_total{code="200",route="/health"} 1`)
}
