package authhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/auth"
	"evalhub/internal/domain/directory"
	"evalhub/internal/transport/http/api"
	"evalhub/internal/transport/http/middleware"
	"evalhub/internal/transport/http/shared"
)

const tokenTTL = 8 * time.Hour

type Handler struct {
	Store  *auth.Store
	Secret string
	Audit  *audit.Service
}

func NewHandler(store *auth.Store, secret string, auditSvc *audit.Service) *Handler {
	return &Handler{Store: store, Secret: secret, Audit: auditSvc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	user, err := h.Store.FindActiveUserByEmail(r.Context(), directory.NormalizeEmail(payload.Email), "active")
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}
	if err := auth.CheckPassword(user.Password, payload.Password); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", middleware.GetRequestID(r.Context()))
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{
		UserID:     user.ID,
		OrgID:      user.OrgID,
		EmployeeID: user.EmployeeID,
		Role:       user.Role,
	}, tokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Store.UpdateLastLogin(r.Context(), user.ID); err != nil {
		slog.Warn("last login update failed", "err", err)
	}
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), user.OrgID, user.ID, "auth.login", "user", user.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil); err != nil {
			slog.Warn("audit auth.login failed", "err", err)
		}
	}

	api.Success(w, map[string]any{
		"token":      token,
		"role":       user.Role,
		"employeeId": user.EmployeeID,
		"expiresIn":  int(tokenTTL.Seconds()),
	}, middleware.GetRequestID(r.Context()))
}

// HandleMe echoes the authenticated principal, mostly for clients to bootstrap.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]string{
		"userId":     user.UserID,
		"orgId":      user.OrgID,
		"employeeId": user.EmployeeID,
		"role":       user.Role,
	}, middleware.GetRequestID(r.Context()))
}
