package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
)

// Status describes the most recent rebuild.
type Status struct {
	Mode       string    `json:"mode"`
	LastRun    time.Time `json:"lastRun,omitzero"`
	LastError  string    `json:"lastError,omitempty"`
	DurationMS float64   `json:"durationMs"`
	Dirty      bool      `json:"dirty"`
	Runs       int       `json:"runs"`
	Failures   int       `json:"failures"`
}

// Coordinator serializes rebuilds and keeps track of the last outcome. A
// failed rebuild leaves the tree marked dirty; when retries are started a
// background job rebuilds dirty trees on an interval.
type Coordinator struct {
	run sync.Mutex

	rebuilder Rebuilder
	recorder  metrics.Recorder
	logger    *slog.Logger
	onSuccess []func(ctx context.Context)

	mu     sync.Mutex
	status Status

	scheduler gocron.Scheduler
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) CoordinatorOption {
	return func(c *Coordinator) { c.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// OnSuccess registers a hook run after every successful rebuild.
func OnSuccess(fn func(ctx context.Context)) CoordinatorOption {
	return func(c *Coordinator) { c.onSuccess = append(c.onSuccess, fn) }
}

// NewCoordinator wraps r. mode labels metrics and status ("inprocess", "exec").
func NewCoordinator(r Rebuilder, mode string, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		rebuilder: r,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		status:    Status{Mode: mode},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rebuild runs one rebuild, waiting for any rebuild already in progress.
func (c *Coordinator) Rebuild(ctx context.Context) error {
	c.run.Lock()
	defer c.run.Unlock()

	start := time.Now()
	err := c.rebuilder.Rebuild(ctx)
	dur := time.Since(start)

	c.mu.Lock()
	c.status.LastRun = start
	c.status.DurationMS = float64(dur.Microseconds()) / 1000
	c.status.Runs++
	if err != nil {
		c.status.Dirty = true
		c.status.Failures++
		c.status.LastError = err.Error()
	} else {
		c.status.Dirty = false
		c.status.LastError = ""
	}
	mode := c.status.Mode
	c.mu.Unlock()

	c.recorder.IncRebuild(mode, err == nil)
	ms := logfields.DurationMS(float64(dur.Microseconds()) / 1000)
	if err != nil {
		c.logger.Error("Rebuild failed", logfields.Error(err), ms)
		return err
	}
	c.logger.Info("Rebuild complete", ms)
	for _, fn := range c.onSuccess {
		fn(ctx)
	}
	return nil
}

// MarkDirty flags the generated tree as stale so the retry job rebuilds it.
func (c *Coordinator) MarkDirty() {
	c.mu.Lock()
	c.status.Dirty = true
	c.mu.Unlock()
}

// Status returns a snapshot of the last rebuild.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// retryDirty rebuilds when the last rebuild failed.
func (c *Coordinator) retryDirty(ctx context.Context) {
	if !c.Status().Dirty {
		return
	}
	c.logger.Info("Retrying rebuild of stale content")
	_ = c.Rebuild(ctx)
}

// StartRetry schedules retryDirty every interval until Stop.
func (c *Coordinator) StartRetry(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("retry interval must be positive, got %s", interval)
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(c.retryDirty, context.WithoutCancel(ctx)),
		gocron.WithName("rebuild-retry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create rebuild retry job: %w", err)
	}
	c.scheduler = s
	s.Start()
	c.logger.Info("Rebuild retry scheduled", slog.Duration("interval", interval))
	return nil
}

// Stop shuts the retry scheduler down.
func (c *Coordinator) Stop() error {
	if c.scheduler == nil {
		return nil
	}
	err := c.scheduler.Shutdown()
	c.scheduler = nil
	return err
}
