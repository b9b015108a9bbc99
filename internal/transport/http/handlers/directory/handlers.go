package directoryhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/directory"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service *directory.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *directory.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermDirectoryRead, h.Perms)
	write := middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)

	r.Route("/employees", func(r chi.Router) {
		r.With(read).Get("/", h.handleListEmployees)
		r.With(read).Get("/{employeeID}", h.handleGetEmployee)
		r.With(write).Post("/", h.handleCreateEmployee)
		r.With(write).Put("/{employeeID}", h.handleUpdateEmployee)
		r.With(write).Delete("/{employeeID}", h.handleDeactivateEmployee)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(read).Get("/", h.handleListDepartments)
		r.With(write).Post("/", h.handleCreateDepartment)
		r.With(write).Delete("/{departmentID}", h.handleDeleteDepartment)
	})
	r.Route("/jobs", func(r chi.Router) {
		r.With(read).Get("/", h.handleListJobs)
		r.With(write).Post("/", h.handleCreateJob)
	})
	r.Route("/competencies", func(r chi.Router) {
		r.With(read).Get("/", h.handleListCompetencies)
		r.With(write).Post("/", h.handleCreateCompetency)
		r.With(write).Put("/{competencyID}", h.handleUpdateCompetency)
		r.With(write).Delete("/{competencyID}", h.handleDeleteCompetency)
	})
	r.Route("/questions", func(r chi.Router) {
		r.With(read).Get("/", h.handleListQuestions)
		r.With(write).Post("/", h.handleCreateQuestion)
		r.With(write).Delete("/{questionID}", h.handleDeleteQuestion)
	})
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	employees, err := h.Service.ListEmployees(r.Context(), user.OrgID, q.Get("departmentId"), q.Get("jobId"), page.Limit, page.Offset)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Service.GetEmployee(r.Context(), user.OrgID, chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Number       string `json:"employeeNumber"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		Email        string `json:"email"`
		DepartmentID string `json:"departmentId"`
		JobID        string `json:"jobId"`
		ManagerID    string `json:"managerId"`
		Role         string `json:"role"`
		Password     string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Service.CreateEmployee(r.Context(), user.OrgID, directory.Employee{
		Number:       payload.Number,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Email:        payload.Email,
		DepartmentID: payload.DepartmentID,
		JobID:        payload.JobID,
		ManagerID:    payload.ManagerID,
		Role:         payload.Role,
	}, payload.Password)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "employee.create", emp.ID)
	api.Created(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		Email        string `json:"email"`
		DepartmentID string `json:"departmentId"`
		JobID        string `json:"jobId"`
		ManagerID    string `json:"managerId"`
		Status       string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Status == "" {
		payload.Status = directory.EmployeeStatusActive
	}

	employeeID := chi.URLParam(r, "employeeID")
	emp, err := h.Service.UpdateEmployee(r.Context(), user.OrgID, employeeID, directory.Employee{
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Email:        payload.Email,
		DepartmentID: payload.DepartmentID,
		JobID:        payload.JobID,
		ManagerID:    payload.ManagerID,
		Status:       payload.Status,
	})
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "employee.update", employeeID)
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if err := h.Service.DeactivateEmployee(r.Context(), user.OrgID, employeeID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "employee.deactivate", employeeID)
	api.NoContent(w)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	departments, err := h.Service.ListDepartments(r.Context(), user.OrgID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	dept, err := h.Service.CreateDepartment(r.Context(), user.OrgID, payload.Name)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "department.create", dept.ID)
	api.Created(w, dept, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	departmentID := chi.URLParam(r, "departmentID")
	if err := h.Service.DeleteDepartment(r.Context(), user.OrgID, departmentID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "department.delete", departmentID)
	api.NoContent(w)
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	jobs, err := h.Service.ListJobs(r.Context(), user.OrgID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, jobs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	job, err := h.Service.CreateJob(r.Context(), user.OrgID, payload.Title)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "job.create", job.ID)
	api.Created(w, job, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListCompetencies(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	competencies, err := h.Service.ListCompetencies(r.Context(), user.OrgID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, competencies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCompetency(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Position    int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	comp, err := h.Service.CreateCompetency(r.Context(), user.OrgID, directory.Competency{
		Name:        payload.Name,
		Description: payload.Description,
		Position:    payload.Position,
	})
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "competency.create", comp.ID)
	api.Created(w, comp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateCompetency(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Position    int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	competencyID := chi.URLParam(r, "competencyID")
	comp, err := h.Service.UpdateCompetency(r.Context(), user.OrgID, competencyID, directory.Competency{
		Name:        payload.Name,
		Description: payload.Description,
		Position:    payload.Position,
	})
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "competency.update", competencyID)
	api.Success(w, comp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteCompetency(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	competencyID := chi.URLParam(r, "competencyID")
	if err := h.Service.DeleteCompetency(r.Context(), user.OrgID, competencyID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "competency.delete", competencyID)
	api.NoContent(w)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	questions, err := h.Service.ListQuestions(r.Context(), user.OrgID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, questions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Text     string `json:"text"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	question, err := h.Service.CreateQuestion(r.Context(), user.OrgID, directory.Question{
		Text:     payload.Text,
		Position: payload.Position,
	})
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "question.create", question.ID)
	api.Created(w, question, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	questionID := chi.URLParam(r, "questionID")
	if err := h.Service.DeleteQuestion(r.Context(), user.OrgID, questionID); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "question.delete", questionID)
	api.NoContent(w)
}

func (h *Handler) audit(r *http.Request, user middleware.UserContext, action, entityID string) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, action, "directory", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil)
	if err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}
