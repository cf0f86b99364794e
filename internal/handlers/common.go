package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/linguapal/linguapal/internal/models"
)

const sessionCookieName = "linguapal_session"

type contextKey string

const userContextKey contextKey = "user"

type ErrorResponse struct {
	Error string `json:"error"`
}

// SetUserInContext stores the authenticated user for downstream handlers.
func SetUserInContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext returns the authenticated user, or nil.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
