// Package commands implements the portfolio CLI subcommands.
package commands

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/portfolio/internal/config"
	"git.home.luguber.info/inful/portfolio/internal/logging"
	"git.home.luguber.info/inful/portfolio/internal/paths"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"portfolio.yaml" env:"PORTFOLIO_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve        ServeCmd        `cmd:"" help:"Serve the public and admin API"`
	Build        BuildCmd        `cmd:"" help:"Build the generated tree from content"`
	Init         InitCmd         `cmd:"" help:"Initialize a new configuration file"`
	HashPassword HashPasswordCmd `cmd:"" name:"hash-password" help:"Print a bcrypt hash for the admin password"`
	VersionCmd   VersionCmd      `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply installs a logger before any configuration is read.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	g.Logger = logging.Setup(config.MonitoringLogging{Level: level, Format: config.LogFormatText})
	return nil
}

// bootstrap loads the configuration, reconfigures logging from it and
// resolves the repository layout. rootFlag wins over the configured root.
func bootstrap(g *Global, root *CLI, rootFlag string) (*config.Config, paths.Paths, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, paths.Paths{}, err
	}
	logCfg := cfg.Monitoring.Logging
	if root.Verbose {
		logCfg.Level = config.LogLevelDebug
	}
	g.Logger = logging.Setup(logCfg)

	override := rootFlag
	if override == "" {
		override = cfg.Root
	}
	p, err := paths.Resolve(override)
	if err != nil {
		return nil, paths.Paths{}, err
	}
	g.Logger.Debug("Resolved repository root", slog.String("root", p.Root))
	return cfg, p, nil
}
