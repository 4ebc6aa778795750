package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
)

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names.
const (
	StagePrepare StageName = "prepare"
	StagePosts   StageName = "posts"
	StageIndex   StageName = "index"
	StageStatic  StageName = "static"
	StageSitemap StageName = "sitemap"
	StageReport  StageName = "report"
	StagePromote StageName = "promote"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageResult captures the high-level outcome of a stage.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
)

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// classifyStageError normalizes whatever a stage returned. Errors that are
// not StageErrors are fatal, except context cancellation.
func classifyStageError(stage StageName, err error) *StageError {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newCanceledStageError(stage, err)
	}
	return newFatalStageError(stage, err)
}

func resultFromKind(se *StageError) StageResult {
	if se == nil {
		return StageResultSuccess
	}
	switch se.Kind {
	case StageErrorWarning:
		return StageResultWarning
	case StageErrorCanceled:
		return StageResultCanceled
	default:
		return StageResultFatal
	}
}

type stageFunc func(ctx context.Context, st *buildState) error

type stageDef struct {
	name StageName
	fn   stageFunc
}

// stageList is a fluent builder for ordered stage definitions.
type stageList struct{ defs []stageDef }

func (l *stageList) add(name StageName, fn stageFunc) *stageList {
	l.defs = append(l.defs, stageDef{name: name, fn: fn})
	return l
}

func (l *stageList) addIf(cond bool, name StageName, fn stageFunc) *stageList {
	if cond {
		l.add(name, fn)
	}
	return l
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal or canceled stage.
func runStages(ctx context.Context, st *buildState, defs []stageDef, recorder metrics.Recorder, logger *slog.Logger) error {
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			se := newCanceledStageError(def.name, err)
			st.report.recordStage(def.name, 0, se)
			recorder.IncStageResult(string(def.name), metrics.ResultCanceled)
			return se
		}

		t0 := time.Now()
		err := def.fn(ctx, st)
		dur := time.Since(t0)

		se := classifyStageError(def.name, err)
		st.report.recordStage(def.name, dur, se)
		recorder.ObserveStageDuration(string(def.name), dur)
		recorder.IncStageResult(string(def.name), metrics.ResultLabel(resultFromKind(se)))

		if se == nil {
			logger.Debug("Stage complete", logfields.Stage(string(def.name)), logfields.DurationMS(float64(dur.Microseconds())/1000))
			continue
		}
		if se.Kind == StageErrorWarning {
			logger.Warn("Stage completed with warnings", logfields.Stage(string(def.name)), logfields.Error(se.Err))
			continue
		}
		return se
	}
	return nil
}
