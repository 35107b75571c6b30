package handler

import (
	"encoding/json"
	"net/http"

	"github.com/lifeconnect/lifeconnect-api/internal/application/session"
	"github.com/lifeconnect/lifeconnect-api/internal/application/user"
	"github.com/lifeconnect/lifeconnect-api/internal/domain"
)

// SessionHandler handles login and admin bootstrap endpoints.
type SessionHandler struct {
	sessions session.Service
	users    user.Service
}

func NewSessionHandler(sessions session.Service, users user.Service) *SessionHandler {
	return &SessionHandler{sessions: sessions, users: users}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req session.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: result.Bearer, User: result.User})
}

func (h *SessionHandler) BootstrapAdmin(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.users.BootstrapAdmin(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
