package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/portfolio/internal/config"
	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/server/handlers"
	smw "git.home.luguber.info/inful/portfolio/internal/server/middleware"
)

// Server serves the public API, the admin API and generated assets.
type Server struct {
	cfg          *config.Config
	deps         Deps
	logger       *slog.Logger
	errorAdapter *derrors.HTTPErrorAdapter
	router       chi.Router
	srv          *http.Server
	addr         net.Addr

	// Handler modules
	monitoringHandlers *handlers.MonitoringHandlers
	publicHandlers     *handlers.PublicHandlers
	authHandlers       *handlers.AuthHandlers
	adminHandlers      *handlers.AdminHandlers
	buildHandlers      *handlers.BuildHandlers
}

// New constructs the server and its routes.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deps.Recorder = metrics.OrNoop(deps.Recorder)

	s := &Server{
		cfg:          cfg,
		deps:         deps,
		logger:       logger,
		errorAdapter: derrors.NewHTTPErrorAdapter(logger),
	}

	s.monitoringHandlers = handlers.NewMonitoringHandlers()
	s.publicHandlers = handlers.NewPublicHandlers(deps.Reader, deps.Paths.GeneratedBlogDir, logger)
	s.authHandlers = handlers.NewAuthHandlers(deps.Auth, deps.Limiter, logger)
	s.adminHandlers = handlers.NewAdminHandlers(deps.Admin, logger)
	s.buildHandlers = handlers.NewBuildHandlers(deps.Rebuild, deps.Paths.GeneratedDir, logger)

	s.router = s.routes()
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Addr is the bound address once Start has returned.
func (s *Server) Addr() net.Addr { return s.addr }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(smw.Chain(s.logger, s.errorAdapter, s.deps.Recorder))
	r.Use(smw.CORS(s.cfg.Server.FrontendURL))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, req, derrors.NotFoundError("route not found").Build())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.monitoringHandlers.HandleHealthCheck)

		r.Get("/blog", s.publicHandlers.HandleListPosts)
		r.Get("/blog/tags", s.publicHandlers.HandleTags)
		r.Get("/blog/{slug}", s.publicHandlers.HandleGetPost)
		r.Get("/projects", s.publicHandlers.HandleListProjects)
		r.Get("/projects/{id}", s.publicHandlers.HandleGetProject)
		r.Get("/skills", s.publicHandlers.HandleSkills)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.authHandlers.HandleLogin)

			r.Group(func(r chi.Router) {
				r.Use(smw.RequireAdmin(s.deps.Auth, s.errorAdapter))

				r.Post("/logout", s.authHandlers.HandleLogout)
				r.Get("/verify", s.authHandlers.HandleVerify)

				r.Get("/posts", s.adminHandlers.HandleListPosts)
				r.Post("/posts", s.adminHandlers.HandleCreatePost)
				r.Get("/posts/{slug}", s.adminHandlers.HandleGetPost)
				r.Put("/posts/{slug}", s.adminHandlers.HandleUpdatePost)
				r.Delete("/posts/{slug}", s.adminHandlers.HandleDeletePost)
				r.Post("/posts/{slug}/images", s.adminHandlers.HandleUploadImage)

				r.Get("/projects", s.adminHandlers.HandleListProjects)
				r.Post("/projects", s.adminHandlers.HandleCreateProject)
				r.Get("/projects/{id}", s.adminHandlers.HandleGetProject)
				r.Put("/projects/{id}", s.adminHandlers.HandleUpdateProject)
				r.Delete("/projects/{id}", s.adminHandlers.HandleDeleteProject)

				r.Post("/rebuild", s.buildHandlers.HandleRebuild)
				r.Get("/build", s.buildHandlers.HandleStatus)
			})
		})
	})

	r.Get("/blog/{slug}/{file}", s.publicHandlers.HandleAsset)

	if s.cfg.Monitoring.Metrics.Enabled && s.deps.Registry != nil {
		r.Method(http.MethodGet, s.cfg.Monitoring.Metrics.Path, metrics.HTTPHandler(s.deps.Registry))
	}
	return r
}

// Start binds the listen address and serves in the background. Binding
// happens before returning so a port conflict fails startup.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "http startup failed").
			WithContext("addr", addr).
			Build()
	}
	s.addr = ln.Addr()
	s.srv = &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", logfields.Error(err))
		}
	}()
	s.logger.Info("HTTP server started", slog.String("addr", s.addr.String()))
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
