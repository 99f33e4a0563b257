package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/api/respond"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/services"
)

// AuthHandler serves registration, login, and the profile endpoint.
type AuthHandler struct {
	users *services.UserService
	log   zerolog.Logger
}

func NewAuthHandler(users *services.UserService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	user, token, err := h.users.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	user, token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Profile handles GET /api/profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Profile(r.Context(), UserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, user)
}
