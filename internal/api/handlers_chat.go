package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/api/respond"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/services"
)

// ChatHandler serves conversations and the memory endpoint.
type ChatHandler struct {
	chat *services.ChatService
	log  zerolog.Logger
}

func NewChatHandler(chat *services.ChatService, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

type createChatRequest struct {
	Title string `json:"title"`
}

// CreateChat handles POST /api/chats.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if r.Body != nil {
		// an empty body is fine; the title defaults
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	chat, err := h.chat.CreateChat(r.Context(), UserID(r), req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, chat)
}

type chatListResponse struct {
	Chats []*model.Chat `json:"chats"`
}

// ListChats handles GET /api/chats.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chat.ListChats(r.Context(), UserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, chatListResponse{Chats: chats})
}

type chatDetailResponse struct {
	Chat     *model.Chat      `json:"chat"`
	Messages []*model.Message `json:"messages"`
}

// GetChat handles GET /api/chats/{chatId}.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]

	chat, messages, err := h.chat.GetChatWithMessages(r.Context(), UserID(r), chatID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, chatDetailResponse{Chat: chat, Messages: messages})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type postMessageResponse struct {
	Message *model.Message `json:"message"`
}

// PostMessage handles POST /api/chats/{chatId}/messages and returns the
// assistant's reply.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}

	reply, err := h.chat.PostMessage(r.Context(), UserID(r), chatID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, postMessageResponse{Message: reply})
}

// GetMemory handles GET /api/memory.
func (h *ChatHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	mem, err := h.chat.GetMemory(r.Context(), UserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, mem)
}
