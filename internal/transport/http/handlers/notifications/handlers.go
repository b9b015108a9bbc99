package notificationshandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *notifications.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermNotificationsRead, h.Perms)
	r.Route("/notifications", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(read).Get("/unread-count", h.handleUnreadCount)
		r.With(read).Post("/{notificationID}/read", h.handleMarkRead)
	})
	r.Route("/settings/notifications", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Get("/", h.handleGetSettings)
		r.With(middleware.RequirePermission(auth.PermDirectoryWrite, h.Perms)).Put("/", h.handleUpdateSettings)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 20, 100)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.Service.List(r.Context(), user.OrgID, user.UserID, unreadOnly, page.Limit, page.Offset)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	count, err := h.Service.CountUnread(r.Context(), user.OrgID, user.UserID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]int{"unread": count}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	err := h.Service.MarkRead(r.Context(), user.OrgID, user.UserID, chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	enabled, from, err := h.Service.GetSettings(r.Context(), user.OrgID)
	if err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"emailEnabled": enabled, "emailFrom": from}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		EmailEnabled bool   `json:"emailEnabled"`
		EmailFrom    string `json:"emailFrom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.UpdateSettings(r.Context(), user.OrgID, payload.EmailEnabled, payload.EmailFrom); err != nil {
		shared.FailDomain(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"emailEnabled": payload.EmailEnabled, "emailFrom": payload.EmailFrom}, middleware.GetRequestID(r.Context()))
}
