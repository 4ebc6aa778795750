package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/portfolio/internal/admin"
	"git.home.luguber.info/inful/portfolio/internal/auth"
	"git.home.luguber.info/inful/portfolio/internal/build"
	"git.home.luguber.info/inful/portfolio/internal/config"
	"git.home.luguber.info/inful/portfolio/internal/content"
	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/media"
	"git.home.luguber.info/inful/portfolio/internal/metrics"
	"git.home.luguber.info/inful/portfolio/internal/paths"
	"git.home.luguber.info/inful/portfolio/internal/reader"
	"git.home.luguber.info/inful/portfolio/internal/rebuild"
	"git.home.luguber.info/inful/portfolio/internal/server/responses"
)

const (
	testUser     = "admin"
	testPassword = "correct horse battery"
	testOrigin   = "http://localhost:4200"
)

type testEnv struct {
	server *Server
	paths  paths.Paths
	svc    *admin.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	p := paths.New(t.TempDir())
	store := content.NewStore(p)
	coord := rebuild.NewCoordinator(rebuild.NewInProcess(build.New(p), 0), "in-process")
	svc := admin.New(store, coord)
	t.Cleanup(svc.Wait)

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	mgr, err := auth.NewManager(config.AuthConfig{
		Username:     testUser,
		PasswordHash: hash,
		JWTSecret:    "test-secret",
	}, nil)
	require.NoError(t, err)

	reg := prom.NewRegistry()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", FrontendURL: testOrigin},
		Monitoring: config.MonitoringConfig{
			Metrics: config.MonitoringMetrics{Enabled: true, Path: "/metrics"},
		},
	}
	srv := New(cfg, Deps{
		Paths:    p,
		Reader:   reader.New(p),
		Admin:    svc,
		Auth:     mgr,
		Limiter:  auth.NewLimiter(3, time.Minute),
		Rebuild:  coord,
		Recorder: metrics.NewPrometheusRecorder(reg),
		Registry: reg,
	})
	return &testEnv{server: srv, paths: p, svc: svc}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, target, token string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return e.do(t, method, target, token, body, "application/json")
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"username": testUser,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func postBody(slug string) map[string]any {
	return map[string]any{
		"title":     "Shipping a Go service",
		"slug":      slug,
		"date":      "2024-06-01",
		"excerpt":   "Notes from shipping a small Go service.",
		"tags":      []string{"go", "ops"},
		"content":   "## Setup\n\n" + strings.Repeat("Words about the service and its deploys. ", 4),
		"published": true,
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/health", "", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	health := decode[responses.HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, target, token string }{
		{http.MethodGet, "/api/admin/posts", ""},
		{http.MethodPost, "/api/admin/rebuild", ""},
		{http.MethodGet, "/api/admin/verify", "not-a-jwt"},
	} {
		rec := env.do(t, tc.method, tc.target, tc.token, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.target)
		body := decode[derrors.HTTPErrorResponse](t, rec)
		assert.Equal(t, "auth", body.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"username": testUser,
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)
	creds := map[string]string{"username": testUser, "password": "wrong"}

	for range 3 {
		rec := env.doJSON(t, http.MethodPost, "/api/admin/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := env.doJSON(t, http.MethodPost, "/api/admin/login", "", creds)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit", decode[derrors.HTTPErrorResponse](t, rec).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodGet, "/api/admin/verify", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	verify := decode[responses.VerifyResponse](t, rec)
	assert.True(t, verify.Authenticated)
	assert.Equal(t, testUser, verify.Username)
	assert.False(t, verify.ExpiresAt.IsZero())

	rec = env.do(t, http.MethodPost, "/api/admin/logout", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[responses.SuccessResponse](t, rec).Success)

	rec = env.do(t, http.MethodGet, "/api/admin/verify", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostLifecycleThroughAPI(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.doJSON(t, http.MethodPost, "/api/admin/posts", token, postBody("shipping-go"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[content.Post](t, rec)
	assert.Equal(t, "shipping-go", created.Slug)

	rec = env.do(t, http.MethodGet, "/api/blog", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	index := decode[[]build.IndexEntry](t, rec)
	require.Len(t, index, 1)
	assert.Equal(t, "shipping-go", index[0].Slug)

	rec = env.do(t, http.MethodGet, "/api/blog?tag=GO", "", nil, "")
	assert.Len(t, decode[[]build.IndexEntry](t, rec), 1)
	rec = env.do(t, http.MethodGet, "/api/blog?tag=rust", "", nil, "")
	assert.Empty(t, decode[[]build.IndexEntry](t, rec))

	rec = env.do(t, http.MethodGet, "/api/blog/tags", "", nil, "")
	assert.Equal(t, []string{"go", "ops"}, decode[[]string](t, rec))

	rec = env.do(t, http.MethodGet, "/api/blog/shipping-go", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[build.PostDocument](t, rec)
	assert.Contains(t, doc.Content, "<h2")

	update := postBody("shipping-go")
	update["title"] = "Shipping a Go service, revisited"
	rec = env.doJSON(t, http.MethodPut, "/api/admin/posts/shipping-go", token, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Shipping a Go service, revisited", decode[content.Post](t, rec).Title)

	rec = env.do(t, http.MethodGet, "/api/admin/posts", token, nil, "")
	assert.Len(t, decode[[]admin.PostSummary](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/admin/posts/shipping-go", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/blog/shipping-go", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[derrors.HTTPErrorResponse](t, rec).Code)
}

func TestCreatePostErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/admin/posts", token, strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := postBody("short")
	bad["title"] = "Hi"
	rec = env.doJSON(t, http.MethodPost, "/api/admin/posts", token, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/admin/posts", token, postBody("dupe"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.doJSON(t, http.MethodPost, "/api/admin/posts", token, postBody("dupe"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestProjectsThroughAPI(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	project := map[string]any{
		"id":              "site-builder",
		"title":           "Site builder",
		"description":     "Builds static sites from markdown.",
		"longDescription": strings.Repeat("A longer description of the builder. ", 3),
		"image":           "https://example.com/site.png",
		"category":        "tools",
		"technologies":    []string{"Go"},
		"highlights":      []string{"Atomic publish"},
		"date":            "2024-02-01",
	}
	rec := env.doJSON(t, http.MethodPost, "/api/admin/projects", token, project)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/projects/site-builder", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Site builder", decode[content.Project](t, rec).Title)

	project["id"] = "renamed"
	rec = env.doJSON(t, http.MethodPut, "/api/admin/projects/site-builder", token, project)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/projects/site-builder", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/projects", "", nil, "")
	assert.Empty(t, decode[[]content.Project](t, rec))
}

func TestSkillsMissing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/skills", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartImage(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAndServeAsset(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	rec := env.doJSON(t, http.MethodPost, "/api/admin/posts", token, postBody("with-image"))
	require.Equal(t, http.StatusCreated, rec.Code)

	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 32)...)
	body, ct := multipartImage(t, "Diagram.bin", png)
	rec = env.do(t, http.MethodPost, "/api/admin/posts/with-image/images", token, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	img := decode[admin.UploadedImage](t, rec)
	assert.Equal(t, "diagram.png", img.FileName)
	assert.Equal(t, "/blog/with-image/diagram.png", img.URL)

	rec = env.do(t, http.MethodGet, img.URL, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	for _, target := range []string{
		"/blog/with-image/index.json",
		"/blog/with-image/.hidden",
		"/blog/with-image/missing.png",
		"/blog/Bad_Slug/diagram.png",
	} {
		rec = env.do(t, http.MethodGet, target, "", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	rec := env.doJSON(t, http.MethodPost, "/api/admin/posts", token, postBody("uploads"))
	require.Equal(t, http.StatusCreated, rec.Code)

	body, ct := multipartImage(t, "notes.txt", []byte("plain text, not an image"))
	rec = env.do(t, http.MethodPost, "/api/admin/posts/uploads/images", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := append([]byte{0xFF, 0xD8, 0xFF}, bytes.Repeat([]byte{1}, media.MaxUploadSize)...)
	body, ct = multipartImage(t, "big.jpg", big)
	rec = env.do(t, http.MethodPost, "/api/admin/posts/uploads/images", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var empty bytes.Buffer
	mw := multipart.NewWriter(&empty)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	rec = env.do(t, http.MethodPost, "/api/admin/posts/uploads/images", token, &empty, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartImage(t, "photo.png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	rec = env.do(t, http.MethodPost, "/api/admin/posts/missing-post/images", token, body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRebuildAndBuildStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/api/admin/rebuild", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode[responses.BuildStatusResponse](t, rec)
	assert.Equal(t, 1, status.Rebuild.Runs)
	assert.False(t, status.Rebuild.Dirty)
	require.NotNil(t, status.Report)

	rec = env.do(t, http.MethodGet, "/api/admin/build", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/posts", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/blog", "", nil, "")

	rec := env.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portfolio_http_requests_total{method="GET",route="/api/blog",status="200"}`)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.server.Start(t.Context()))

	resp, err := http.Get(fmt.Sprintf("http://%s/api/health", env.server.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.server.Stop(t.Context()))
}
