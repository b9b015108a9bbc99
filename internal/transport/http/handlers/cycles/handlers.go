package cycleshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/cycles"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service *cycles.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *cycles.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cycles", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCyclesRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCyclesRead, h.Perms)).Get("/active", h.handleActive)
		r.With(middleware.RequirePermission(auth.PermCyclesRead, h.Perms)).Get("/{cycleID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite, h.Perms)).Post("/{cycleID}/activate", h.handleActivate)
		r.With(middleware.RequirePermission(auth.PermCyclesWrite, h.Perms)).Post("/{cycleID}/close", h.handleClose)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	list, err := h.Service.List(r.Context(), user.OrgID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cycleID, err := h.Service.ActiveCycleID(r.Context(), user.OrgID)
	if err != nil {
		if errors.Is(err, cycles.ErrNoActiveCycle) {
			api.Fail(w, http.StatusNotFound, "not_found", "no active cycle", middleware.GetRequestID(r.Context()))
			return
		}
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	cycle, err := h.Service.Get(r.Context(), user.OrgID, cycleID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cycle, err := h.Service.Get(r.Context(), user.OrgID, chi.URLParam(r, "cycleID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	cycle := cycles.Cycle{Name: payload.Name}
	var err error
	if cycle.StartDate, err = parseOptionalDate(payload.StartDate); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid startDate", middleware.GetRequestID(r.Context()))
		return
	}
	if cycle.EndDate, err = parseOptionalDate(payload.EndDate); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid endDate", middleware.GetRequestID(r.Context()))
		return
	}

	created, err := h.Service.Create(r.Context(), user.OrgID, cycle)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "cycle.create", created.ID)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cycle, err := h.Service.Activate(r.Context(), user.OrgID, chi.URLParam(r, "cycleID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "cycle.activate", cycle.ID)
	h.announce(r, user, notifications.TypeCycleActivated, "Evaluation cycle opened", "The evaluation cycle \""+cycle.Name+"\" is now open.")
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	cycle, err := h.Service.Close(r.Context(), user.OrgID, chi.URLParam(r, "cycleID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	h.audit(r, user, "cycle.close", cycle.ID)
	h.announce(r, user, notifications.TypeCycleClosed, "Evaluation cycle closed", "The evaluation cycle \""+cycle.Name+"\" has been closed.")
	api.Success(w, cycle, middleware.GetRequestID(r.Context()))
}

func (h *Handler) announce(r *http.Request, user middleware.UserContext, ntype, title, body string) {
	if h.Notify == nil {
		return
	}
	if _, err := h.Notify.NotifyOrg(r.Context(), user.OrgID, ntype, title, body); err != nil {
		slog.Warn("cycle announcement failed", "type", ntype, "err", err)
	}
}

func (h *Handler) audit(r *http.Request, user middleware.UserContext, action, entityID string) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), user.OrgID, user.UserID, action, "cycle", entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil)
	if err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := shared.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
