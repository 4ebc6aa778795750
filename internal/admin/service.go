package admin

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/portfolio/internal/content"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/mirror"
	"git.home.luguber.info/inful/portfolio/internal/rebuild"
)

// Service implements the admin mutations over a content store.
type Service struct {
	store     *content.Store
	rebuilder rebuild.Rebuilder
	syncer    mirror.Syncer
	recorder  metrics.Recorder
	logger    *slog.Logger

	syncs sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithSyncer sets the mirror used after post mutations.
func WithSyncer(s mirror.Syncer) Option {
	return func(svc *Service) {
		if s != nil {
			svc.syncer = s
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(svc *Service) { svc.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New returns a Service writing to store and regenerating through rebuilder.
func New(store *content.Store, rebuilder rebuild.Rebuilder, opts ...Option) *Service {
	s := &Service{
		store:     store,
		rebuilder: rebuilder,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.syncer == nil {
		s.syncer = mirror.Noop{Logger: s.logger}
	}
	return s
}

// Wait blocks until every mirror sync started so far has finished.
func (s *Service) Wait() { s.syncs.Wait() }

// rebuild runs after a successful write. The write stays committed when the
// rebuild fails.
func (s *Service) rebuild(ctx context.Context, kv ...string) error {
	err := s.rebuilder.Rebuild(ctx)
	if err == nil {
		return nil
	}
	b := foundationerrors.WrapError(err, foundationerrors.CategoryRebuild, "content saved but rebuild failed")
	for i := 0; i+1 < len(kv); i += 2 {
		b = b.WithContext(kv[i], kv[i+1])
	}
	return b.Build()
}

// syncPost mirrors slug in the background. Failures are logged only.
func (s *Service) syncPost(ctx context.Context, slug, action string) {
	s.background(ctx, slug, action, s.syncer.SyncPost)
}

func (s *Service) deleteRemotePost(ctx context.Context, slug, action string) {
	s.background(ctx, slug, action, s.syncer.DeletePost)
}

func (s *Service) background(ctx context.Context, slug, action string, fn func(context.Context, string, string) error) {
	ctx = context.WithoutCancel(ctx)
	s.syncs.Add(1)
	go func() {
		defer s.syncs.Done()
		if err := fn(ctx, slug, action); err != nil {
			s.logger.Error("Mirror sync failed", logfields.Slug(slug), logfields.Action(action), logfields.Error(err))
		}
	}()
}
