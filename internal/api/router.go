package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/victorbash400/canary/internal/api/recovery"
	"github.com/victorbash400/canary/internal/auth"
	"github.com/victorbash400/canary/internal/services"
)

// Deps carries everything the router needs.
type Deps struct {
	Verifier auth.TokenVerifier
	Users    *services.UserService
	News     *services.NewsService
	Chat     *services.ChatService
	Digest   *services.DigestService
	Pinger   HealthPinger
	Log      zerolog.Logger
}

// NewRouter wires all routes and middleware. CORS sits outside the mux so
// preflight requests are answered before route matching.
func NewRouter(d Deps) http.Handler {
	authHandler := NewAuthHandler(d.Users, d.Log)
	newsHandler := NewNewsHandler(d.News, d.Log)
	prefsHandler := NewPrefsHandler(d.Users, d.Log)
	chatHandler := NewChatHandler(d.Chat, d.Log)
	digestHandler := NewDigestHandler(d.Digest, d.Log)
	healthHandler := NewHealthHandler(d.Pinger)

	router := mux.NewRouter()

	// Public endpoints
	router.HandleFunc("/api/health", healthHandler.Check).Methods("GET")
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	// Internal trigger for the digest sweep; called by the scheduler and
	// the admin CLI, not exposed through the public gateway.
	router.HandleFunc("/api/internal/digest/run", digestHandler.Run).Methods("POST")

	// Everything else requires a bearer token.
	authed := router.PathPrefix("/api").Subrouter()
	authed.Use(AuthMiddleware(d.Verifier))

	authed.HandleFunc("/profile", authHandler.Profile).Methods("GET")

	authed.HandleFunc("/news/feed", newsHandler.Feed).Methods("GET")
	authed.HandleFunc("/news/urgent", newsHandler.Urgent).Methods("GET")

	authed.HandleFunc("/preferences", prefsHandler.Get).Methods("GET")
	authed.HandleFunc("/preferences", prefsHandler.Update).Methods("PUT")
	authed.HandleFunc("/preferences/topics", prefsHandler.AddTopic).Methods("POST")
	authed.HandleFunc("/preferences/topics/{topic}", prefsHandler.RemoveTopic).Methods("DELETE")

	authed.HandleFunc("/chats", chatHandler.CreateChat).Methods("POST")
	authed.HandleFunc("/chats", chatHandler.ListChats).Methods("GET")
	authed.HandleFunc("/chats/{chatId}", chatHandler.GetChat).Methods("GET")
	authed.HandleFunc("/chats/{chatId}/messages", chatHandler.PostMessage).Methods("POST")

	authed.HandleFunc("/memory", chatHandler.GetMemory).Methods("GET")

	return recovery.Middleware(CORSMiddleware(router))
}
