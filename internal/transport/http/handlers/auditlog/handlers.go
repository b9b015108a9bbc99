package auditloghandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *audit.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		ActorUser:  q.Get("actorId"),
	}
	page := shared.ParsePagination(r, 50, 200)
	includeDetails := q.Get("details") == "true"

	total, err := h.Service.Count(r.Context(), user.OrgID, filter)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	events, err := h.Service.List(r.Context(), user.OrgID, filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	api.Success(w, map[string]any{
		"total":  total,
		"events": events,
	}, middleware.GetRequestID(r.Context()))
}
