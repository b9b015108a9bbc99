package evaluationhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/evaluation"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/platform/metrics"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluation.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Metrics *metrics.Collector
}

func NewHandler(service *evaluation.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/{instanceID}", h.handleDetail)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Post("/self", h.handleCreateSelf)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Post("/assessor", h.handleCreateAssessor)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Post("/{instanceID}/start", h.handleStart)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Post("/{instanceID}/complete", h.handleComplete)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Post("/{instanceID}/review", h.handleReview)
		r.With(middleware.RequirePermission(auth.PermEvaluationsWrite, h.Perms)).Post("/{instanceID}/ratings", h.handleSubmitRating)
	})
	r.Route("/assignments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationsRead, h.Perms)).Get("/", h.handleListAssignments)
		r.With(middleware.RequirePermission(auth.PermAssignmentsWrite, h.Perms)).Post("/", h.handleCreateAssignment)
		r.With(middleware.RequirePermission(auth.PermAssignmentsWrite, h.Perms)).Delete("/{assignmentID}", h.handleDeleteAssignment)
	})
	r.With(middleware.RequirePermission(auth.PermAnalyticsRead, h.Perms)).Get("/analytics/gaps", h.handleGapAnalysis)
}

func callerFrom(user middleware.UserContext) evaluation.Caller {
	return evaluation.Caller{
		UserID:     user.UserID,
		EmployeeID: user.EmployeeID,
		OrgID:      user.OrgID,
		Role:       user.Role,
	}
}

func (h *Handler) handleCreateSelf(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		EmployeeID string `json:"employeeId"`
		Kind       string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	inst, err := h.Service.CreateSelf(r.Context(), callerFrom(user), payload.EmployeeID, payload.Kind)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "evaluation.self.create", inst.ID, map[string]string{"kind": inst.Kind, "employeeId": inst.EmployeeID})
	api.Created(w, inst, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateAssessor(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		EmployeeID string `json:"employeeId"`
		AssessorID string `json:"assessorId"`
		Kind       string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	inst, err := h.Service.CreateAssessor(r.Context(), callerFrom(user), payload.EmployeeID, payload.AssessorID, payload.Kind)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "evaluation.assessor.create", inst.ID, map[string]string{"kind": inst.Kind, "employeeId": inst.EmployeeID, "assessorId": inst.AssessorID})
	api.Created(w, inst, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	inst, err := h.Service.Start(r.Context(), callerFrom(user), chi.URLParam(r, "instanceID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordTransition(inst.Status)
	}
	api.Success(w, inst, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	inst, created, err := h.Service.Complete(r.Context(), callerFrom(user), chi.URLParam(r, "instanceID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordTransition(inst.Status)
		h.Metrics.RecordFanOut(len(created))
	}
	h.audit(r, user, "evaluation.complete", inst.ID, map[string]any{"fannedOut": len(created)})

	// Notify each assessor that received a new instance. Failures are logged
	// and never fail the completed transition.
	for _, assessorInst := range created {
		if h.Notify == nil {
			break
		}
		err := h.Notify.NotifyEmployee(r.Context(), user.OrgID, assessorInst.AssessorID,
			notifications.TypeEvaluationAssigned,
			"Evaluation assigned",
			"A new evaluation is waiting for your assessment.")
		if err != nil {
			slog.Warn("fan-out notification failed", "assessorId", assessorInst.AssessorID, "err", err)
		}
	}

	api.Success(w, map[string]any{
		"instance": inst,
		"created":  created,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	inst, err := h.Service.Review(r.Context(), callerFrom(user), chi.URLParam(r, "instanceID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordTransition(inst.Status)
	}
	h.audit(r, user, "evaluation.review", inst.ID, nil)
	if h.Notify != nil {
		err := h.Notify.NotifyEmployee(r.Context(), user.OrgID, inst.EmployeeID,
			notifications.TypeEvaluationReviewed,
			"Evaluation reviewed",
			"Your evaluation has been reviewed.")
		if err != nil {
			slog.Warn("review notification failed", "err", err)
		}
	}
	api.Success(w, inst, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		CompetencyID string `json:"competencyId"`
		QuestionID   string `json:"questionId"`
		Rating       int    `json:"rating"`
		Comment      string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	dimensionID := payload.CompetencyID
	if dimensionID == "" {
		dimensionID = payload.QuestionID
	}

	result, err := h.Service.SubmitRating(r.Context(), callerFrom(user), chi.URLParam(r, "instanceID"), dimensionID, payload.Rating, payload.Comment)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	filter := evaluation.InstanceFilter{
		EmployeeID: q.Get("employeeId"),
		AssessorID: q.Get("assessorId"),
		Kind:       q.Get("kind"),
		Status:     q.Get("status"),
		CycleID:    q.Get("cycleId"),
	}

	instances, err := h.Service.List(r.Context(), callerFrom(user), filter)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, instances, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	inst, ratings, responses, err := h.Service.Detail(r.Context(), callerFrom(user), chi.URLParam(r, "instanceID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	out := map[string]any{"instance": inst}
	if inst.Kind == evaluation.KindCompetency {
		out["ratings"] = ratings
	} else {
		out["responses"] = responses
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGapAnalysis(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	filter := evaluation.PopulationFilter{
		Kind:         q.Get("kind"),
		CycleID:      q.Get("cycleId"),
		DepartmentID: q.Get("departmentId"),
		JobID:        q.Get("jobId"),
		EmployeeID:   q.Get("employeeId"),
		InstanceID:   q.Get("instanceId"),
	}

	rows, err := h.Service.GapAnalysis(r.Context(), callerFrom(user), filter)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		AssessorID string `json:"assessorId"`
		EmployeeID string `json:"employeeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	assignment, err := h.Service.CreateAssignment(r.Context(), callerFrom(user), payload.AssessorID, payload.EmployeeID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "assignment.create", assignment.ID, payload)
	api.Created(w, assignment, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	assignmentID := chi.URLParam(r, "assignmentID")
	if err := h.Service.DeleteAssignment(r.Context(), callerFrom(user), assignmentID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "assignment.delete", assignmentID, nil)
	api.NoContent(w)
}

func (h *Handler) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	assignments, err := h.Service.ListAssignments(r.Context(), callerFrom(user), q.Get("assessorId"), q.Get("employeeId"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, assignments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) audit(r *http.Request, user middleware.UserContext, action, entityID string, details any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, action, "evaluation", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), details)
	if err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
