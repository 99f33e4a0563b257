package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/api/respond"
	"github.com/victorbash400/canary/internal/model"
	"github.com/victorbash400/canary/internal/services"
)

// NewsHandler serves the personalized feed endpoints.
type NewsHandler struct {
	news *services.NewsService
	log  zerolog.Logger
}

func NewNewsHandler(news *services.NewsService, log zerolog.Logger) *NewsHandler {
	return &NewsHandler{news: news, log: log}
}

type feedResponse struct {
	Articles []*model.Article `json:"articles"`
	Count    int              `json:"count"`
}

// Feed handles GET /api/news/feed.
func (h *NewsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	articles, err := h.news.Feed(r.Context(), UserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, feedResponse{Articles: articles, Count: len(articles)})
}

// Urgent handles GET /api/news/urgent.
func (h *NewsHandler) Urgent(w http.ResponseWriter, r *http.Request) {
	articles, err := h.news.Urgent(r.Context(), UserID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, feedResponse{Articles: articles, Count: len(articles)})
}
