package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/portfolio/internal/auth"
	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/server/responses"
)

// Authenticator is the session backend used by the auth endpoints.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// LoginLimiter throttles login attempts per client.
type LoginLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// AuthHandlers serve login, logout and session verification.
type AuthHandlers struct {
	auth         Authenticator
	limiter      LoginLimiter
	logger       *slog.Logger
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewAuthHandlers creates auth handlers. A nil limiter disables throttling.
func NewAuthHandlers(a Authenticator, limiter LoginLimiter, logger *slog.Logger) *AuthHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandlers{auth: a, limiter: limiter, logger: logger, errorAdapter: derrors.NewHTTPErrorAdapter(logger)}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin handles POST /api/admin/login.
func (h *AuthHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if h.limiter != nil {
		if ok, wait := h.limiter.Allow(ip); !ok {
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			h.logger.WarnContext(r.Context(), "Login rate limited", logfields.RemoteAddr(ip))
			h.errorAdapter.WriteErrorResponse(w, r, derrors.RateLimitError("too many login attempts").
				WithContext("retry_after_seconds", secs).
				Build())
			return
		}
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.ValidationError("username and password are required").Build())
		return
	}
	session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Login failed", logfields.RemoteAddr(ip))
	}
	respond(h.errorAdapter, w, r, http.StatusOK, session, err)
}

// HandleLogout handles POST /api/admin/logout. The token was verified by
// the admin middleware.
func (h *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.AuthError("not authenticated").Build())
		return
	}
	err := h.auth.Revoke(context.WithoutCancel(r.Context()), claims)
	respond(h.errorAdapter, w, r, http.StatusOK, responses.SuccessResponse{Success: true}, err)
}

// HandleVerify handles GET /api/admin/verify.
func (h *AuthHandlers) HandleVerify(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.AuthError("not authenticated").Build())
		return
	}
	resp := responses.VerifyResponse{Authenticated: true, Username: claims.Subject}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	respond(h.errorAdapter, w, r, http.StatusOK, resp, nil)
}
