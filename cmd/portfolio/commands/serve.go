package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/portfolio/internal/admin"
	"git.home.luguber.info/inful/portfolio/internal/auth"
	"git.home.luguber.info/inful/portfolio/internal/config"
	"git.home.luguber.info/inful/portfolio/internal/content"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/paths"
	"git.home.luguber.info/inful/portfolio/internal/reader"
	"git.home.luguber.info/inful/portfolio/internal/server/httpserver"
	"git.home.luguber.info/inful/portfolio/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Root  string `help:"Repository root (overrides discovery and config)" type:"path"`
	Watch bool   `short:"w" help:"Rebuild when files under content/ change"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, p, err := bootstrap(g, root, s.Root)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunServe(ctx, g.Logger, root, cfg, p, s.Watch)
}

// RunServe serves until ctx is cancelled, then shuts down gracefully.
func RunServe(ctx context.Context, logger *slog.Logger, root *CLI, cfg *config.Config, p paths.Paths, watchContent bool) error {
	logger.Info("Starting portfolio server",
		slog.String("root", p.Root),
		slog.String("rebuild_mode", string(cfg.Build.RebuildMode)))

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	pipeline := newPipeline(cfg, p, logger, recorder)
	rb, err := newRebuilder(cfg, root, p, pipeline, logger)
	if err != nil {
		return err
	}
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = notifier.Close() }()
	coord := newCoordinator(cfg, p, rb, notifier, logger, recorder)

	syncer, err := newSyncer(cfg, p, logger, recorder)
	if err != nil {
		return err
	}
	store := content.NewStore(p, content.WithLogger(logger))
	svc := admin.New(store, coord,
		admin.WithSyncer(syncer),
		admin.WithRecorder(recorder),
		admin.WithLogger(logger))

	revocations, closeRevocations, err := newRevocationStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeRevocations() }()
	mgr, err := auth.NewManager(cfg.Auth, revocations)
	if err != nil {
		return err
	}
	if !mgr.Configured() {
		logger.Warn("Admin password hash not set; admin login is disabled")
	}
	if mgr.EphemeralSecret() {
		logger.Warn("JWT secret not set; sessions will not survive a restart")
	}

	if err := coord.Rebuild(ctx); err != nil {
		logger.Error("Initial build failed; serving the previous tree", logfields.Error(err))
	}
	if err := coord.StartRetry(ctx, cfg.Build.RetryInterval); err != nil {
		return err
	}
	defer func() { _ = coord.Stop() }()

	srv := httpserver.New(cfg, httpserver.Deps{
		Paths:    p,
		Reader:   reader.New(p),
		Admin:    svc,
		Auth:     mgr,
		Limiter:  auth.NewLimiter(cfg.Auth.LoginLimit, cfg.Auth.LoginWindow),
		Rebuild:  coord,
		Recorder: recorder,
		Registry: reg,
		Logger:   logger,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if watchContent {
		w, err := watch.New(p.ContentDir, coord.Rebuild, watch.Options{
			QuietWindow: cfg.Watch.Debounce,
			MaxDelay:    cfg.Watch.MaxDelay,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("Content watcher stopped", logfields.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping server...")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	err = srv.Stop(stopCtx)
	svc.Wait()
	return err
}
