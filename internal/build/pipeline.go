package build

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/markdown"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/paths"
)

// Pipeline runs full content builds. Runs are serialized; a second caller
// waits for the first build to finish.
type Pipeline struct {
	mu sync.Mutex

	paths    paths.Paths
	renderer *markdown.Renderer
	recorder metrics.Recorder
	logger   *slog.Logger
	siteURL  string
	sitemap  bool
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRenderer replaces the Markdown renderer.
func WithRenderer(r *markdown.Renderer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithSitemap enables sitemap.xml and robots.txt generation for siteURL.
func WithSitemap(siteURL string) Option {
	return func(p *Pipeline) {
		p.siteURL = strings.TrimRight(strings.TrimSpace(siteURL), "/")
		p.sitemap = p.siteURL != ""
	}
}

func withClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline over the repository layout p.
func New(p paths.Paths, opts ...Option) *Pipeline {
	pl := &Pipeline{
		paths:    p,
		renderer: markdown.NewRenderer(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// StagingDir is where a build is assembled before promotion.
func (p *Pipeline) StagingDir() string { return p.paths.GeneratedDir + ".staging" }

// buildState is the mutable state shared by the stages of one run.
type buildState struct {
	src     paths.Paths
	out     paths.Paths
	staging string
	report  *Report
	index   []IndexEntry
}

func (p *Pipeline) stages() []stageDef {
	l := &stageList{}
	l.add(StagePrepare, p.stagePrepare).
		add(StagePosts, p.stagePosts).
		add(StageIndex, p.stageIndex).
		add(StageStatic, p.stageStatic).
		addIf(p.sitemap, StageSitemap, p.stageSitemap).
		add(StageReport, p.stageReport).
		add(StagePromote, p.stagePromote)
	return l.defs
}

// Run executes a full build. The returned report is never nil. A failed
// build returns a rebuild-category error and leaves the previous generated
// tree untouched.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.now()
	staging := p.StagingDir()
	st := &buildState{
		src:     p.paths,
		out:     p.paths.Rebase(staging),
		staging: staging,
		report:  newReport(start),
	}

	err := runStages(ctx, st, p.stages(), p.recorder, p.logger)
	st.report.finish(p.now())
	p.recorder.ObserveBuildDuration(st.report.End.Sub(start))
	p.recorder.IncBuildOutcome(string(st.report.Outcome))

	if err != nil {
		p.abortStaging(staging)
		p.logger.Error("Content build failed", logfields.Error(err))
		return st.report, foundationerrors.WrapError(err, foundationerrors.CategoryRebuild, "content build failed").Build()
	}

	p.recorder.SetPostsBuilt(len(st.index))
	p.logger.Info("Content build complete",
		logfields.Posts(len(st.index)),
		slog.String("outcome", string(st.report.Outcome)),
		logfields.DurationMS(float64(st.report.End.Sub(start).Microseconds())/1000))
	return st.report, nil
}
