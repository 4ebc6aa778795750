package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/portfolio/internal/auth"
	"git.home.luguber.info/inful/portfolio/internal/build"
	"git.home.luguber.info/inful/portfolio/internal/config"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/markdown"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/mirror"
	"git.home.luguber.info/inful/portfolio/internal/notify"
	"git.home.luguber.info/inful/portfolio/internal/paths"
	"git.home.luguber.info/inful/portfolio/internal/rebuild"
)

// mirrorWorkDir is where the persistent mirror clone lives when no
// work_dir is configured, relative to the repository root.
const mirrorWorkDir = ".portfolio/mirror"

func newPipeline(cfg *config.Config, p paths.Paths, logger *slog.Logger, recorder metrics.Recorder) *build.Pipeline {
	opts := []build.Option{
		build.WithRenderer(markdown.NewRenderer(markdown.WithStyle(cfg.Build.HighlightStyle))),
		build.WithRecorder(recorder),
		build.WithLogger(logger),
	}
	if cfg.Build.Sitemap {
		opts = append(opts, build.WithSitemap(cfg.Site.URL))
	}
	return build.New(p, opts...)
}

// newRebuilder picks the configured rebuild strategy. Exec children get the
// same configuration file as the parent when one exists.
func newRebuilder(cfg *config.Config, root *CLI, p paths.Paths, pipeline *build.Pipeline, logger *slog.Logger) (rebuild.Rebuilder, error) {
	if cfg.Build.RebuildMode != config.RebuildModeExec {
		return rebuild.NewInProcess(pipeline, cfg.Build.RebuildTimeout), nil
	}
	opts := []rebuild.ExecOption{rebuild.WithExecLogger(logger)}
	if abs, err := filepath.Abs(root.Config); err == nil {
		if _, statErr := os.Stat(abs); statErr == nil {
			self, err := os.Executable()
			if err != nil {
				return nil, err
			}
			opts = append(opts, rebuild.WithCommand(self, "--config", abs, "build", "--root", p.Root))
		}
	}
	rb, err := rebuild.NewExec(p.Root, cfg.Build.RebuildTimeout, opts...)
	if err != nil {
		return nil, err
	}
	return rb, nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	if cfg.Notify.NATSURL == "" {
		return notify.Noop{}, nil
	}
	pub, err := notify.Connect(cfg.Notify.NATSURL, cfg.Notify.Subject, logger)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

// newCoordinator serializes rebuilds and publishes a notification after
// each successful one.
func newCoordinator(cfg *config.Config, p paths.Paths, rb rebuild.Rebuilder, n notify.Notifier, logger *slog.Logger, recorder metrics.Recorder) *rebuild.Coordinator {
	return rebuild.NewCoordinator(rb, string(cfg.Build.RebuildMode),
		rebuild.WithRecorder(recorder),
		rebuild.WithLogger(logger),
		rebuild.OnSuccess(func(ctx context.Context) {
			posts := 0
			if report, err := build.LoadReport(p.GeneratedDir); err == nil {
				posts = report.Posts
			}
			if err := n.Rebuilt(ctx, posts); err != nil {
				logger.Warn("Failed to publish rebuild event", logfields.Error(err))
			}
		}),
	)
}

func newSyncer(cfg *config.Config, p paths.Paths, logger *slog.Logger, recorder metrics.Recorder) (mirror.Syncer, error) {
	if !cfg.Mirror.Enabled() {
		logger.Info("Mirror not configured; content changes stay local")
		return mirror.Noop{Logger: logger}, nil
	}
	opts := mirror.OptionsFromConfig(cfg.Mirror, p.ContentBlogDir)
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(p.Root, filepath.FromSlash(mirrorWorkDir))
	}
	opts.Recorder = recorder
	opts.Logger = logger
	g, err := mirror.NewGit(opts)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// newRevocationStore returns the token revocation store and its closer.
func newRevocationStore(cfg *config.Config, logger *slog.Logger) (auth.RevocationStore, func() error, error) {
	if cfg.Auth.RedisURL == "" {
		return auth.NewMemoryStore(), func() error { return nil }, nil
	}
	store, err := auth.NewRedisStore(cfg.Auth.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using Redis token revocation store")
	return store, store.Close, nil
}
