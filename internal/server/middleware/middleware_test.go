package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/portfolio/internal/auth"
	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logging"
)

func TestChainRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Chain(logger, derrors.NewHTTPErrorAdapter(logger), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blog", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "HTTP handler panic")
	assert.Contains(t, buf.String(), `"status":500`)
}

func TestRequestIDReachesHandler(t *testing.T) {
	var seen string
	h := Chain(slog.New(slog.DiscardHandler), derrors.NewHTTPErrorAdapter(nil), nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = logging.FromContext(r.Context()).RequestID
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "has spaces in it")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotEmpty(t, seen)
	assert.NotEqual(t, "has spaces in it", seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

type stubVerifier struct{ claims *auth.Claims }

func (s stubVerifier) Verify(_ context.Context, token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, derrors.AuthError("invalid token").Build()
	}
	return s.claims, nil
}

func TestRequireAdmin(t *testing.T) {
	claims := &auth.Claims{}
	claims.Subject = "admin"
	var got *auth.Claims
	h := RequireAdmin(stubVerifier{claims}, derrors.NewHTTPErrorAdapter(nil))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = auth.ClaimsFromContext(r.Context())
	}))

	for _, header := range []string{"", "Basic Zm9vOmJhcg==", "Bearer ", "Bearer bad"} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
	assert.Nil(t, got)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/verify", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Same(t, claims, got)
}

func TestCORSDisabledWithoutOrigin(t *testing.T) {
	h := CORS("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/blog", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
