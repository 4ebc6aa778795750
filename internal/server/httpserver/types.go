package httpserver

import (
	"context"
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/portfolio/internal/admin"
	"git.home.luguber.info/inful/portfolio/internal/auth"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/paths"
	"git.home.luguber.info/inful/portfolio/internal/reader"
	"git.home.luguber.info/inful/portfolio/internal/server/handlers"
)

// Authenticator issues, verifies and revokes admin sessions.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Verify(ctx context.Context, token string) (*auth.Claims, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// Deps are the collaborators the HTTP surface is wired to.
type Deps struct {
	Paths   paths.Paths
	Reader  *reader.Reader
	Admin   *admin.Service
	Auth    Authenticator
	Limiter handlers.LoginLimiter
	Rebuild handlers.RebuildController

	// Optional. Metrics are served only when Registry is set and metrics
	// are enabled in the configuration.
	Recorder metrics.Recorder
	Registry *prom.Registry
	Logger   *slog.Logger
}
