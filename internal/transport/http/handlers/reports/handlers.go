package reportshandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/directory"
	"evalhub/internal/domain/evaluation"
	"evalhub/internal/domain/reports"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service   *reports.Service
	Directory *directory.Service
	Perms     middleware.PermissionStore
}

func NewHandler(service *reports.Service, dir *directory.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Directory: dir, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	export := middleware.RequirePermission(auth.PermReportsExport, h.Perms)
	r.Route("/reports", func(r chi.Router) {
		r.With(export).Get("/gaps.csv", h.handleGapCSV)
		r.With(export).Get("/gaps.pdf", h.handleGapPDF)
	})
}

func populationFilter(r *http.Request) evaluation.PopulationFilter {
	q := r.URL.Query()
	return evaluation.PopulationFilter{
		Kind:         q.Get("kind"),
		CycleID:      q.Get("cycleId"),
		DepartmentID: q.Get("departmentId"),
		JobID:        q.Get("jobId"),
		EmployeeID:   q.Get("employeeId"),
		InstanceID:   q.Get("instanceId"),
	}
}

func (h *Handler) handleGapCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	caller := evaluation.Caller{UserID: user.UserID, EmployeeID: user.EmployeeID, OrgID: user.OrgID, Role: user.Role}
	data, err := h.Service.GapCSV(r.Context(), caller, populationFilter(r))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="gap-analysis.csv"`)
	if _, err := w.Write(data); err != nil {
		slog.Warn("csv export write failed", "err", err)
	}
}

func (h *Handler) handleGapPDF(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	orgName, err := h.Directory.OrgName(r.Context(), user.OrgID)
	if err != nil {
		slog.Warn("org name lookup failed", "err", err)
		orgName = ""
	}

	caller := evaluation.Caller{UserID: user.UserID, EmployeeID: user.EmployeeID, OrgID: user.OrgID, Role: user.Role}
	data, err := h.Service.GapPDF(r.Context(), caller, populationFilter(r), orgName)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="gap-analysis.pdf"`)
	if _, err := w.Write(data); err != nil {
		slog.Warn("pdf export write failed", "err", err)
	}
}
