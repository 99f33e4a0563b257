package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/api/respond"
	"github.com/victorbash400/canary/internal/services"
)

// PrefsHandler serves explicit preference management, the structured
// alternative to changing settings through chat.
type PrefsHandler struct {
	users *services.UserService
	log   zerolog.Logger
}

func NewPrefsHandler(users *services.UserService, log zerolog.Logger) *PrefsHandler {
	return &PrefsHandler{users: users, log: log}
}

// Get handles GET /api/preferences.
func (h *PrefsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Profile(r.Context(), UserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, user.Preferences)
}

// Update handles PUT /api/preferences. Absent fields are left unchanged.
func (h *PrefsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch services.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	user, err := h.users.UpdatePreferences(r.Context(), UserID(r), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, user.Preferences)
}

type topicRequest struct {
	Topic string `json:"topic"`
}

// AddTopic handles POST /api/preferences/topics.
func (h *PrefsHandler) AddTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	user, err := h.users.AddTopic(r.Context(), UserID(r), req.Topic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, user.Preferences)
}

// RemoveTopic handles DELETE /api/preferences/topics/{topic}.
func (h *PrefsHandler) RemoveTopic(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]

	user, err := h.users.RemoveTopic(r.Context(), UserID(r), topic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, user.Preferences)
}
