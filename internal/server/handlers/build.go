package handlers

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/portfolio/internal/build"
	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/rebuild"
	"git.home.luguber.info/inful/portfolio/internal/server/responses"
)

// RebuildController triggers rebuilds and reports their state.
type RebuildController interface {
	Rebuild(ctx context.Context) error
	Status() rebuild.Status
}

// BuildHandlers expose manual rebuilds and the latest build report.
type BuildHandlers struct {
	ctrl         RebuildController
	generatedDir string
	errorAdapter *derrors.HTTPErrorAdapter
}

// NewBuildHandlers creates build handlers reading reports from generatedDir.
func NewBuildHandlers(ctrl RebuildController, generatedDir string, logger *slog.Logger) *BuildHandlers {
	return &BuildHandlers{ctrl: ctrl, generatedDir: generatedDir, errorAdapter: derrors.NewHTTPErrorAdapter(logger)}
}

// HandleRebuild handles POST /api/admin/rebuild. The rebuild runs detached
// from the request so a disconnect does not abort it.
func (h *BuildHandlers) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Rebuild(context.WithoutCancel(r.Context())); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.HandleStatus(w, r)
}

// HandleStatus handles GET /api/admin/build.
func (h *BuildHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := responses.BuildStatusResponse{Rebuild: h.ctrl.Status()}
	report, err := build.LoadReport(h.generatedDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.errorAdapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryFileSystem, "read build report").Build())
		return
	}
	resp.Report = report
	respond(h.errorAdapter, w, r, http.StatusOK, resp, nil)
}
