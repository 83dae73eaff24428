package httpapi

import (
	"errors"
	"net/http"

	"taskera.org/internal/audit"
	"taskera.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "session service unavailable")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"user_id": result.User.ID,
	})
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "session service unavailable")
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleSessionError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.refresh.rotated", map[string]any{
		"user_id": result.User.ID,
	})
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if a.sessions == nil {
		writeError(w, r, http.StatusServiceUnavailable, "session service unavailable")
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionError maps the session outcome taxonomy onto status codes.
// Malformed emails, unknown accounts and wrong passwords share one response
// so nothing about account existence leaks.
func handleSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrAccountInactive):
		writeError(w, r, http.StatusForbidden, "account is inactive")
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, r, http.StatusLocked, "account is temporarily locked")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
