package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for builds, rebuild triggers, uploads,
// mirror syncs and HTTP requests.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // success|warning|failed|canceled
	SetPostsBuilt(n int)
	IncRebuild(mode string, success bool)
	IncUpload(mime string, accepted bool)
	IncMirrorSync(action string, success bool)
	ObserveHTTPRequest(method, route string, status int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel) {}
func (NoopRecorder) IncBuildOutcome(string) {}
func (NoopRecorder) SetPostsBuilt(int) {}
func (NoopRecorder) IncRebuild(string, bool) {}
func (NoopRecorder) IncUpload(string, bool) {}
func (NoopRecorder) IncMirrorSync(string, bool) {}
func (NoopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
