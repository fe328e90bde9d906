package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Attempt("resolve")
	r.Attempt("resolve")
	r.Retry("resolve")
	r.Success("resolve")
	r.Fallback("resolve")
	r.Failure("fetch")
	r.InFlight("fetch", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.attempts.WithLabelValues("resolve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries.WithLabelValues("resolve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.successes.WithLabelValues("resolve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("resolve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("fetch")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.inFlight.WithLabelValues("fetch")))
}

func TestNewRecorderPanicsOnDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	assert.Panics(t, func() { NewRecorder(reg) })
}

func TestServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.Success("fetch")

	srv := httptest.NewServer(NewServer(":0", reg, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `spotify_dl_successes_total{stage="fetch"} 1`)
}
