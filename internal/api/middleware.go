// Package api exposes the HTTP surface: routing, middleware, and handlers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/victorbash400/canary/internal/api/respond"
	"github.com/victorbash400/canary/internal/auth"
	"github.com/victorbash400/canary/internal/model"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserID returns the authenticated user id placed by AuthMiddleware.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// CORSMiddleware attaches the permissive CORS headers every response
// carries and short-circuits preflight requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token,X-Requested-With,Accept,Origin,Access-Control-Request-Method,Access-Control-Request-Headers")
		h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS,HEAD,PATCH")
		h.Set("Access-Control-Allow-Credentials", "false")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware verifies the bearer token and stores the caller's user id
// on the request context.
func AuthMiddleware(verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				respond.WriteUnauthorized(w, "missing bearer token")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respond.WriteUnauthorized(w, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeServiceError maps service-layer sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrForbidden):
		respond.WriteForbidden(w, err.Error())
	case errors.Is(err, model.ErrDuplicateEmail):
		respond.WriteConflict(w, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		respond.WriteUnauthorized(w, err.Error())
	case errors.Is(err, model.ErrVersionConflict):
		respond.WriteConflict(w, err.Error())
	default:
		respond.WriteInternalError(w, "something went wrong")
	}
}
