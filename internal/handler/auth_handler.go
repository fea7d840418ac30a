package handler

import (
	"errors"
	"net/http"

	"card-admin/internal/domain"
	"card-admin/internal/middleware"
	"card-admin/internal/observability"
	"card-admin/internal/service"
)

// AuthHandler handles the admin login endpoints
type AuthHandler struct {
	authService *service.AuthService
	cookies     *middleware.SessionCookies
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *service.AuthService, cookies *middleware.SessionCookies) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

// SuccessResponse is returned by login and logout
type SuccessResponse struct {
	Success bool `json:"success"`
}

// StatusResponse reports whether the caller is logged in
type StatusResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Login checks the admin secret and issues a session cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	body, err := decodeObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// A missing or non-string password never matches.
	password, _ := body["password"].(string)

	session, err := h.authService.Login(r.Context(), password)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrServerMisconfigured):
		observability.LoginAttemptsTotal.WithLabelValues("misconfigured").Inc()
		logger.Error("login attempted but no admin secret is configured")
		writeError(w, http.StatusInternalServerError, "Server configuration error")
		return
	case errors.Is(err, domain.ErrInvalidCredentials):
		observability.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		logger.Warn("invalid admin password")
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	default:
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		logger.Error("failed to open session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Drop any session the client already held.
	if old, ok := h.cookies.Token(r); ok {
		if err := h.authService.Logout(r.Context(), old); err != nil {
			logger.Warn("failed to discard previous session", "error", err)
		}
	}

	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	h.cookies.Set(w, session.Token)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Logout destroys the caller's session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := h.cookies.Token(r)

	if err := h.authService.Logout(r.Context(), token); err != nil {
		observability.FromContext(r.Context()).Error("failed to destroy session", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not log out")
		return
	}

	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Status reports whether the request carries an authenticated session
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{Authenticated: ok && session.Authenticated})
}
