// Package metrics provides observability hooks for the portfolio service.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	pipeline := build.New(paths, build.WithRecorder(metrics.NoopRecorder{}))
//
// When metrics are enabled in configuration the server wires a
// PrometheusRecorder and exposes its registry through HTTPHandler.
package metrics
