package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/portfolio/internal/admin"
	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/media"
	"git.home.luguber.info/inful/portfolio/internal/server/responses"
)

// UploadField is the multipart field holding an uploaded image.
const UploadField = "image"

// AdminHandlers expose the content mutations.
type AdminHandlers struct {
	svc          *admin.Service
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewAdminHandlers creates admin handlers over svc.
func NewAdminHandlers(svc *admin.Service, logger *slog.Logger) *AdminHandlers {
	return &AdminHandlers{svc: svc, errorAdapter: derrors.NewHTTPErrorAdapter(logger)}
}

// HandleListPosts handles GET /api/admin/posts.
func (h *AdminHandlers) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.ListPosts(r.Context())
	respond(h.errorAdapter, w, r, http.StatusOK, posts, err)
}

// HandleGetPost handles GET /api/admin/posts/{slug}.
func (h *AdminHandlers) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "slug"))
	respond(h.errorAdapter, w, r, http.StatusOK, post, err)
}

// HandleCreatePost handles POST /api/admin/posts.
func (h *AdminHandlers) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in admin.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	post, err := h.svc.CreatePost(r.Context(), in)
	respond(h.errorAdapter, w, r, http.StatusCreated, post, err)
}

// HandleUpdatePost handles PUT /api/admin/posts/{slug}.
func (h *AdminHandlers) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var in admin.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	post, err := h.svc.UpdatePost(r.Context(), chi.URLParam(r, "slug"), in)
	respond(h.errorAdapter, w, r, http.StatusOK, post, err)
}

// HandleDeletePost handles DELETE /api/admin/posts/{slug}.
func (h *AdminHandlers) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeletePost(r.Context(), chi.URLParam(r, "slug"))
	respond(h.errorAdapter, w, r, http.StatusOK, responses.SuccessResponse{Success: true}, err)
}

// HandleListProjects handles GET /api/admin/projects.
func (h *AdminHandlers) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ListProjects(r.Context())
	respond(h.errorAdapter, w, r, http.StatusOK, projects, err)
}

// HandleGetProject handles GET /api/admin/projects/{id}.
func (h *AdminHandlers) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.svc.GetProject(r.Context(), chi.URLParam(r, "id"))
	respond(h.errorAdapter, w, r, http.StatusOK, project, err)
}

// HandleCreateProject handles POST /api/admin/projects.
func (h *AdminHandlers) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in admin.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	project, err := h.svc.CreateProject(r.Context(), in)
	respond(h.errorAdapter, w, r, http.StatusCreated, project, err)
}

// HandleUpdateProject handles PUT /api/admin/projects/{id}.
func (h *AdminHandlers) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var in admin.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	project, err := h.svc.UpdateProject(r.Context(), chi.URLParam(r, "id"), in)
	respond(h.errorAdapter, w, r, http.StatusOK, project, err)
}

// HandleDeleteProject handles DELETE /api/admin/projects/{id}.
func (h *AdminHandlers) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteProject(r.Context(), chi.URLParam(r, "id"))
	respond(h.errorAdapter, w, r, http.StatusOK, responses.SuccessResponse{Success: true}, err)
}

// HandleUploadImage handles POST /api/admin/posts/{slug}/images with the
// image in multipart field "image".
func (h *AdminHandlers) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	data, name, err := readUpload(w, r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	img, err := h.svc.UploadPostImage(r.Context(), chi.URLParam(r, "slug"), name, data)
	respond(h.errorAdapter, w, r, http.StatusCreated, img, err)
}

// readUpload extracts the image part. The body is capped slightly above the
// image limit to leave room for multipart framing.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadSize+64<<10)
	if err := r.ParseMultipartForm(media.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", derrors.ValidationError("image exceeds the 5 MiB limit").Build()
		}
		return nil, "", derrors.WrapError(err, derrors.CategoryValidation, "malformed multipart upload").Build()
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile(UploadField)
	if err != nil {
		return nil, "", derrors.ValidationError("image file is required").
			WithContext("field", UploadField).
			Build()
	}
	defer func() { _ = f.Close() }()
	if hdr.Size > media.MaxUploadSize {
		return nil, "", derrors.ValidationError("image exceeds the 5 MiB limit").Build()
	}
	data, err := io.ReadAll(io.LimitReader(f, media.MaxUploadSize+1))
	if err != nil {
		return nil, "", derrors.WrapError(err, derrors.CategoryValidation, "read upload").Build()
	}
	return data, hdr.Filename, nil
}
