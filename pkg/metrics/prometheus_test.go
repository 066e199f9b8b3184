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

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.ObserveFit("arima", 10*time.Millisecond, nil)
	r.ObserveFit("arima", 20*time.Millisecond, errors.New("boom"))
	r.RecordSelection("prophet")
	r.RecordSelection("prophet")
	r.RecordFetch("yahoo", "ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fitFailures.WithLabelValues("arima")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.selections.WithLabelValues("prophet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchTotal.WithLabelValues("yahoo", "ok")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveFit("x", time.Second, nil)
		r.RecordSelection("x")
		r.RecordFetch("x", "ok")
		r.ObserveHTTP("/", "200", time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveHTTP("/health", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "finsight_http_request_duration_seconds")
}
