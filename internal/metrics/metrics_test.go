package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRetrieval(t *testing.T) {
	e := New(DefaultConfig())

	e.ObserveRetrieval("ok", 20*time.Millisecond, 5, 2)
	e.ObserveRetrieval("ok", 30*time.Millisecond, 3, 0)
	e.ObserveRetrieval("error", time.Millisecond, 0, 0)

	assert.Equal(t, 2, testutil.CollectAndCount(e.retrievalDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(e.retrievalResults))
}

func TestObserveIngest(t *testing.T) {
	e := New(DefaultConfig())

	e.ObserveIngest("ingested")
	e.ObserveIngest("ingested")
	e.ObserveIngest("failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(e.ingestedDocuments.WithLabelValues("ingested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.ingestedDocuments.WithLabelValues("failed")))
}

func TestObserveToolCall(t *testing.T) {
	e := New(DefaultConfig())

	e.ObserveToolCall("search_capstones", 10*time.Millisecond, true)
	e.ObserveToolCall("search_capstones", 10*time.Millisecond, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.toolCalls.WithLabelValues("search_capstones", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.toolCalls.WithLabelValues("search_capstones", "error")))
}

func TestHandler(t *testing.T) {
	e := New(Config{})
	e.ObserveRetrieval("empty", time.Millisecond, 0, 0)
	e.ObserveIngest("ingested")

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	w := httptest.NewRecorder()
	e.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `capstone_retrieval_duration_seconds_bucket{outcome="empty"`)
	assert.Contains(t, text, "capstone_retrieval_results_count 1")
	assert.Contains(t, text, "capstone_retrieval_lexical_matches_count 1")
	assert.Contains(t, text, `capstone_ingested_documents_total{status="ingested"} 1`)
}

func TestSeparateRegistries(t *testing.T) {
	// Two exporters must not panic on duplicate registration
	assert.NotPanics(t, func() {
		New(DefaultConfig())
		New(DefaultConfig())
	})
}
