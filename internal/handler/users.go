package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/security/audit"
	"github.com/yourorg/userhub/internal/security/middleware"
	"github.com/yourorg/userhub/internal/service"
)

// ValidatePasswordRequest represents the password check payload
type ValidatePasswordRequest struct {
	Password string `json:"password"`
}

// ValidatePasswordResponse represents the password check result
type ValidatePasswordResponse struct {
	IsValid bool `json:"isValid"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// UsersHandler handles the /api/users endpoints
type UsersHandler struct {
	userService *service.UserService
	auditLog    *audit.Logger
	logger      *slog.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(userService *service.UserService, auditLog *audit.Logger, logger *slog.Logger) *UsersHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &UsersHandler{
		userService: userService,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// Create handles POST /api/users
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantFromContext(r.Context())

	var req service.CreateUserInput
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.userService.Create(r.Context(), req, tenantID)
	if err != nil {
		h.auditLog.LogCreated(r.Context(), tenantID, "", "failed")
		h.writeError(w, err)
		return
	}

	h.auditLog.LogCreated(r.Context(), tenantID, view.ID, "success")
	h.writeJSON(w, http.StatusCreated, view)
}

// List handles GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantFromContext(r.Context())

	views, err := h.userService.List(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, views)
}

// Get handles GET /api/users/{id}
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantFromContext(r.Context())

	view, err := h.userService.Get(r.Context(), r.PathValue("id"), tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// Update handles PUT /api/users/{id}
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantFromContext(r.Context())
	id := r.PathValue("id")

	var req service.UpdateUserInput
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.userService.Update(r.Context(), id, req, tenantID)
	if err != nil {
		h.auditLog.LogUpdated(r.Context(), tenantID, id, "failed")
		h.writeError(w, err)
		return
	}

	h.auditLog.LogUpdated(r.Context(), tenantID, id, "success")
	h.writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /api/users/{id}
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.userService.Delete(r.Context(), id, tenantID); err != nil {
		h.auditLog.LogDeleted(r.Context(), tenantID, id, "failed")
		h.writeError(w, err)
		return
	}

	h.auditLog.LogDeleted(r.Context(), tenantID, id, "success")
	w.WriteHeader(http.StatusNoContent)
}

// ValidatePassword handles POST /api/users/{id}/validate-password
func (h *UsersHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantFromContext(r.Context())
	id := r.PathValue("id")

	var req ValidatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	valid, err := h.userService.ValidatePassword(r.Context(), id, req.Password, tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result := "invalid"
	if valid {
		result = "valid"
	}
	h.auditLog.LogPasswordCheck(r.Context(), tenantID, id, result)

	h.writeJSON(w, http.StatusOK, ValidatePasswordResponse{IsValid: valid})
}

func (h *UsersHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.logger.Warn("failed to decode request",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (h *UsersHandler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation failed",
			Details: ve.Violations,
		})
		return
	}

	var dup *domain.DuplicateError
	if errors.As(err, &dup) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: dup.Error()})
		return
	}

	if errors.Is(err, domain.ErrUserNotFound) {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}

	h.logger.Error("request failed", slog.String("error", err.Error()))
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func (h *UsersHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
