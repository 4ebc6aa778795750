package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	postsBuilt    prom.Gauge
	rebuilds      *prom.CounterVec
	uploads       *prom.CounterVec
	mirrorSyncs   *prom.CounterVec
	httpDuration  *prom.HistogramVec
	httpRequests  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total content build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		postsBuilt: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "posts_built",
			Help:      "Number of posts in the last generated index",
		}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Rebuild triggers by mode and result",
		}, []string{"mode", "result"}),
		uploads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Image uploads by detected type and decision",
		}, []string{"mime", "result"}),
		mirrorSyncs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_syncs_total",
			Help:      "Mirror sync attempts by action and result",
		}, []string{"action", "result"}),
		httpDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome,
		pr.postsBuilt, pr.rebuilds, pr.uploads, pr.mirrorSyncs, pr.httpDuration, pr.httpRequests)
	return pr
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetPostsBuilt(n int) {
	if p == nil {
		return
	}
	p.postsBuilt.Set(float64(n))
}

func (p *PrometheusRecorder) IncRebuild(mode string, success bool) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(mode, resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncUpload(mime string, accepted bool) {
	if p == nil {
		return
	}
	res := "rejected"
	if accepted {
		res = "accepted"
	}
	if mime == "" {
		mime = "unknown"
	}
	p.uploads.WithLabelValues(mime, res).Inc()
}

func (p *PrometheusRecorder) IncMirrorSync(action string, success bool) {
	if p == nil {
		return
	}
	p.mirrorSyncs.WithLabelValues(action, resultLabel(success)).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if p == nil {
		return
	}
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
