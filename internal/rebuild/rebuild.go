// Package rebuild triggers content builds after mutations: in the serving
// process, or as a spawned "portfolio build" process, always under a
// timeout.
package rebuild

import (
	"context"
	"errors"
	"time"

	"git.home.luguber.info/inful/portfolio/internal/build"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

// DefaultTimeout bounds a single rebuild.
const DefaultTimeout = 120 * time.Second

// Rebuilder regenerates the generated tree from source content.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Func adapts a function to Rebuilder.
type Func func(ctx context.Context) error

func (f Func) Rebuild(ctx context.Context) error { return f(ctx) }

// InProcess runs the build pipeline in the calling process.
type InProcess struct {
	pipeline *build.Pipeline
	timeout  time.Duration
}

// NewInProcess returns a rebuilder over pipeline. A non-positive timeout
// means DefaultTimeout.
func NewInProcess(pipeline *build.Pipeline, timeout time.Duration) *InProcess {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &InProcess{pipeline: pipeline, timeout: timeout}
}

func (r *InProcess) Rebuild(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.pipeline.Run(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timedOut(r.timeout, err)
	}
	return err
}

func timedOut(timeout time.Duration, cause error) error {
	return foundationerrors.WrapError(cause, foundationerrors.CategoryRebuild, "content rebuild timed out").
		WithContext("timeout", timeout.String()).
		Build()
}
