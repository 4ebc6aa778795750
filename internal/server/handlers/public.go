package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/reader"
	"git.home.luguber.info/inful/portfolio/internal/slug"
)

// PublicHandlers serve the read-only site API from the generated tree.
type PublicHandlers struct {
	reader       *reader.Reader
	blogDir      string
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewPublicHandlers creates public handlers. blogDir is the generated blog
// directory holding per-post assets.
func NewPublicHandlers(r *reader.Reader, blogDir string, logger *slog.Logger) *PublicHandlers {
	return &PublicHandlers{reader: r, blogDir: blogDir, errorAdapter: derrors.NewHTTPErrorAdapter(logger)}
}

// HandleListPosts handles GET /api/blog[?tag=].
func (h *PublicHandlers) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.reader.ListPosts(r.URL.Query().Get("tag"))
	respond(h.errorAdapter, w, r, http.StatusOK, posts, err)
}

// HandleTags handles GET /api/blog/tags.
func (h *PublicHandlers) HandleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.reader.Tags()
	respond(h.errorAdapter, w, r, http.StatusOK, tags, err)
}

// HandleGetPost handles GET /api/blog/{slug}.
func (h *PublicHandlers) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	doc, err := h.reader.GetPost(chi.URLParam(r, "slug"))
	respond(h.errorAdapter, w, r, http.StatusOK, doc, err)
}

// HandleListProjects handles GET /api/projects.
func (h *PublicHandlers) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.reader.ListProjects()
	respond(h.errorAdapter, w, r, http.StatusOK, projects, err)
}

// HandleGetProject handles GET /api/projects/{id}.
func (h *PublicHandlers) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.reader.GetProject(chi.URLParam(r, "id"))
	respond(h.errorAdapter, w, r, http.StatusOK, project, err)
}

// HandleSkills handles GET /api/skills.
func (h *PublicHandlers) HandleSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.reader.Skills()
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(skills)
}

// HandleAsset handles GET /blog/{slug}/{file}: files copied next to a
// generated post. The post document itself is served by the API.
func (h *PublicHandlers) HandleAsset(w http.ResponseWriter, r *http.Request) {
	postSlug := chi.URLParam(r, "slug")
	file := chi.URLParam(r, "file")
	if !slug.Valid(postSlug) || file == "" || file == "index.json" ||
		strings.HasPrefix(file, ".") || file != filepath.Base(file) || strings.Contains(file, "\\") {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFoundError("asset not found").Build())
		return
	}
	path := filepath.Join(h.blogDir, postSlug, file)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.NotFoundError("asset not found").
			WithContext("slug", postSlug).
			WithContext("file", file).
			Build())
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if strings.EqualFold(filepath.Ext(file), ".svg") {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	}
	http.ServeFile(w, r, path)
}
