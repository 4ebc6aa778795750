package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("posts", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("posts", ResultSuccess)
	pr.IncBuildOutcome("success")
	pr.SetPostsBuilt(3)
	pr.IncRebuild("inprocess", true)
	pr.IncUpload("image/png", true)
	pr.IncUpload("", false)
	pr.IncMirrorSync("add", false)
	pr.ObserveHTTPRequest(http.MethodGet, "/api/blog", http.StatusOK, 5*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	assert.InDelta(t, 1, testutil.ToFloat64(pr.stageResults.WithLabelValues("posts", "success")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.postsBuilt), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.uploads.WithLabelValues("unknown", "rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.httpRequests.WithLabelValues("GET", "/api/blog", "200")), 0)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncBuildOutcome("failed")
		pr.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	})
	assert.Equal(t, NoopRecorder{}, OrNoop(nil))
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncBuildOutcome("success")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portfolio_build_outcomes_total")
}
