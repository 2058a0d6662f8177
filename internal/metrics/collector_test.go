// Package metrics_test tests the Prometheus collector.
package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/f5-tts-api/internal/metrics"
)

var errSynthesis = errors.New("synthesis blew up")

func scrape(t *testing.T, collector *metrics.Collector) string {
	t.Helper()

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	collector.Handler().ServeHTTP(recorder, request)

	body, err := io.ReadAll(recorder.Result().Body)
	require.NoError(t, err)

	return string(body)
}

func TestObserveHTTPRequest(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector("tts_test")

	collector.ObserveHTTPRequest(http.MethodPost, "/v1/audio/speech", http.StatusOK, 120*time.Millisecond)
	collector.ObserveHTTPRequest(http.MethodPost, "/v1/audio/speech", http.StatusBadRequest, time.Millisecond)

	body := scrape(t, collector)

	assert.Contains(t, body, `tts_test_http_requests_total{method="POST",path="/v1/audio/speech",status="200"} 1`)
	assert.Contains(t, body, `tts_test_http_requests_total{method="POST",path="/v1/audio/speech",status="400"} 1`)
	assert.Contains(t, body, "tts_test_http_request_duration_seconds")
}

func TestObserveSynthesis(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector("tts_test")

	collector.ObserveSynthesis(2*time.Second, nil)
	collector.ObserveSynthesis(time.Second, errSynthesis)

	body := scrape(t, collector)

	assert.Contains(t, body, "tts_test_synthesis_duration_seconds_count 1")
	assert.Contains(t, body, "tts_test_synthesis_failures_total 1")
}

func TestObserveAccentFallback(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector("tts_test")

	collector.ObserveAccentFallback()
	collector.ObserveAccentFallback()

	body := scrape(t, collector)

	assert.Contains(t, body, "tts_test_accent_fallbacks_total 2")
}
