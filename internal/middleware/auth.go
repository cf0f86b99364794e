package middleware

import (
	"errors"
	"net/http"

	"github.com/linguapal/linguapal/internal/handlers"
	"github.com/linguapal/linguapal/internal/logging"
	"github.com/linguapal/linguapal/internal/services"
)

const sessionCookieName = "linguapal_session"

// AuthMiddleware resolves the session cookie to a user and places it in
// the request context. Resolution failures leave the context untouched;
// RequireSession is what turns a missing user into a 401.
type AuthMiddleware struct {
	authService services.AuthServiceInterface
	userService services.UserServiceInterface
}

func NewAuthMiddleware(authService services.AuthServiceInterface, userService services.UserServiceInterface) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userService: userService,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authService.ResolveSession(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				logging.Error("Session resolution failed", map[string]interface{}{"error": err.Error()})
			}
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, services.ErrUserNotFound) {
				logging.Error("Session user load failed", map[string]interface{}{"error": err.Error()})
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetUserInContext(r.Context(), user)))
	})
}

// RequireSession rejects requests that did not resolve to a user.
func (m *AuthMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handlers.GetUserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
