package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistMetricsCountsByResult(t *testing.T) {
	r := New()
	r.Persist.ObserveWrite(2*time.Millisecond, 128, nil)
	r.Persist.ObserveWrite(time.Millisecond, 64, errors.New("disk full"))
	r.Persist.ObserveCoalesced()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Persist.writes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Persist.writes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Persist.coalesced))
}

func TestHandlerExposesCollectors(t *testing.T) {
	r := New()
	r.HTTP.ObserveRequest(http.MethodGet, "/items", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lovelist_http_requests_total{method="GET",route="/items",status="200"} 1`)
}
