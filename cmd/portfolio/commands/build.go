package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/portfolio/internal/config"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/paths"
	"git.home.luguber.info/inful/portfolio/internal/rebuild"
	"git.home.luguber.info/inful/portfolio/internal/watch"
)

// BuildCmd implements the 'build' command. It always runs the pipeline in
// this process; it is also the child spawned by the exec rebuild mode.
type BuildCmd struct {
	Root  string `help:"Repository root (overrides discovery and config)" type:"path"`
	Watch bool   `short:"w" help:"Keep running and rebuild when content changes"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, p, err := bootstrap(g, root, b.Root)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunBuild(ctx, g.Logger, cfg, p, b.Watch)
}

// RunBuild builds once and, when watching, again after each content change.
func RunBuild(ctx context.Context, logger *slog.Logger, cfg *config.Config, p paths.Paths, watchContent bool) error {
	pipeline := newPipeline(cfg, p, logger, metrics.NoopRecorder{})
	report, err := pipeline.Run(ctx)
	if report != nil {
		fmt.Println(report.Summary())
	}
	if err != nil {
		return err
	}
	if !watchContent {
		return nil
	}

	coord := rebuild.NewCoordinator(rebuild.NewInProcess(pipeline, cfg.Build.RebuildTimeout),
		string(config.RebuildModeInProcess), rebuild.WithLogger(logger))
	w, err := watch.New(p.ContentDir, coord.Rebuild, watch.Options{
		QuietWindow: cfg.Watch.Debounce,
		MaxDelay:    cfg.Watch.MaxDelay,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	logger.Info("Watching for content changes", logfields.Path(p.ContentDir))
	return w.Run(ctx)
}
