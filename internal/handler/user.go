package handler

import (
	"log/slog"
	"net/http"

	"github.com/amine-dev/localq/internal/service"
)

// UserHandler serves registration and the current user's profile.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleRegister creates a local account.
//
// HTTP: POST /users
//
// The password is optional: an account created without one can only log in
// through Google until a password exists.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /users/me
// Auth: required
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.users.Profile(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
