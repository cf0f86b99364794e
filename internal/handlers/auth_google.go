package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/linguapal/linguapal/internal/services"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthNonceCookieName = "oauth_nonce"
	oauthCookieMaxAge    = 10 * 60 // 10 minutes
)

// GoogleAuthHandler drives the OIDC login flow: the browser is redirected
// to Google, the callback verifies the ID token, and a regular session is
// issued for the linked or newly created user.
type GoogleAuthHandler struct {
	providerAuth services.ProviderAuthServiceInterface
	authService  services.AuthServiceInterface
	presence     services.PresenceServiceInterface
	provider     services.OAuthProvider
	secure       bool
}

func NewGoogleAuthHandler(providerAuth services.ProviderAuthServiceInterface, authService services.AuthServiceInterface, presence services.PresenceServiceInterface, provider services.OAuthProvider, secure bool) *GoogleAuthHandler {
	return &GoogleAuthHandler{
		providerAuth: providerAuth,
		authService:  authService,
		presence:     presence,
		provider:     provider,
		secure:       secure,
	}
}

func (h *GoogleAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.NotFound(w, r)
		return
	}

	state, err := generateSecureToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start provider auth")
		return
	}
	nonce, err := generateSecureToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start provider auth")
		return
	}

	h.setOAuthCookie(w, oauthStateCookieName, state)
	h.setOAuthCookie(w, oauthNonceCookieName, nonce)

	http.Redirect(w, r, h.provider.AuthCodeURL(state, nonce), http.StatusFound)
}

func (h *GoogleAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		http.NotFound(w, r)
		return
	}

	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		h.redirectToLoginError(w, r, providerErr)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.redirectToLoginError(w, r, "oauth_missing")
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || !secureCompare(stateCookie.Value, state) {
		h.redirectToLoginError(w, r, "oauth_invalid")
		return
	}

	nonceCookie, err := r.Cookie(oauthNonceCookieName)
	if err != nil || nonceCookie.Value == "" {
		h.redirectToLoginError(w, r, "oauth_invalid")
		return
	}

	claims, err := h.provider.ExchangeAndVerify(r.Context(), code, nonceCookie.Value)
	if err != nil {
		log.Printf("Provider exchange failed: %v", err)
		h.redirectToLoginError(w, r, "oauth_exchange")
		return
	}

	h.clearOAuthCookie(w, oauthStateCookieName)
	h.clearOAuthCookie(w, oauthNonceCookieName)

	user, err := h.providerAuth.LinkOrCreateUser(r.Context(), claims)
	if err != nil {
		if errors.Is(err, services.ErrProviderEmailUnverified) {
			h.redirectToLoginError(w, r, "oauth_unverified")
			return
		}
		log.Printf("Provider link failed: %v", err)
		h.redirectToLoginError(w, r, "oauth_link")
		return
	}

	if h.presence != nil {
		h.presence.SyncIdentity(r.Context(), user.ID, user.Username, user.ProfileImage)
	}

	token, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("Provider session failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(services.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	target := "/"
	if !user.IsOnboarded {
		target = "/onboarding"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *GoogleAuthHandler) redirectToLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(code), http.StatusFound)
}

func (h *GoogleAuthHandler) setOAuthCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   oauthCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *GoogleAuthHandler) clearOAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func secureCompare(a, b string) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
