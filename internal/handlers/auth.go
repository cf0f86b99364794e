package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/linguapal/linguapal/internal/models"
	"github.com/linguapal/linguapal/internal/services"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

type AuthHandler struct {
	userService     services.UserServiceInterface
	authService     services.AuthServiceInterface
	presenceService services.PresenceServiceInterface
	emailService    services.EmailServiceInterface
	secure          bool
}

func NewAuthHandler(userService services.UserServiceInterface, authService services.AuthServiceInterface, presenceService services.PresenceServiceInterface, emailService services.EmailServiceInterface, secure bool) *AuthHandler {
	return &AuthHandler{
		userService:     userService,
		authService:     authService,
		presenceService: presenceService,
		emailService:    emailService,
		secure:          secure,
	}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OnboardingRequest struct {
	Bio              string `json:"bio"`
	NativeLanguage   string `json:"native_language"`
	LearningLanguage string `json:"learning_language"`
	Location         string `json:"location"`
	ProfileImage     string `json:"profile_image"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}
	if !emailPattern.MatchString(email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.userService.Create(r.Context(), models.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		ProfileImage: services.DefaultAvatarURL(username),
	})
	if errors.Is(err, services.ErrEmailAlreadyExists) {
		writeError(w, http.StatusConflict, "Email already exists")
		return
	}
	if errors.Is(err, services.ErrUsernameAlreadyExists) {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	if err != nil {
		log.Printf("Error creating user: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Collaborator side effects are best-effort: the signup already
	// committed and must not fail on them.
	if h.presenceService != nil {
		h.presenceService.SyncIdentity(r.Context(), user.ID, user.Username, user.ProfileImage)
	}
	if h.emailService != nil {
		if err := h.emailService.SendWelcome(r.Context(), user.Email, user.Username); err != nil {
			log.Printf("Error sending welcome email: %v", err)
		}
	}

	token, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, UserResponse{User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), email)
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		log.Printf("Error loading user for login: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if user.PasswordHash == "" || !h.authService.VerifyPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.DeleteSession(r.Context(), cookie.Value); err != nil {
			log.Printf("Error deleting session: %v", err)
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

func (h *AuthHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	missing := missingOnboardingFields(req)
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, struct {
			Error         string   `json:"error"`
			MissingFields []string `json:"missing_fields"`
		}{
			Error:         "Required fields are missing",
			MissingFields: missing,
		})
		return
	}

	updated, err := h.userService.Onboard(r.Context(), user.ID, models.OnboardUserParams{
		Bio:              strings.TrimSpace(req.Bio),
		NativeLanguage:   strings.TrimSpace(req.NativeLanguage),
		LearningLanguage: strings.TrimSpace(req.LearningLanguage),
		Location:         strings.TrimSpace(req.Location),
		ProfileImage:     strings.TrimSpace(req.ProfileImage),
	})
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("Error onboarding user: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.presenceService != nil {
		h.presenceService.SyncIdentity(r.Context(), updated.ID, updated.Username, updated.ProfileImage)
	}

	writeJSON(w, http.StatusOK, UserResponse{User: updated})
}

func missingOnboardingFields(req OnboardingRequest) []string {
	var missing []string
	if strings.TrimSpace(req.Bio) == "" {
		missing = append(missing, "bio")
	}
	if strings.TrimSpace(req.NativeLanguage) == "" {
		missing = append(missing, "native_language")
	}
	if strings.TrimSpace(req.LearningLanguage) == "" {
		missing = append(missing, "learning_language")
	}
	if strings.TrimSpace(req.Location) == "" {
		missing = append(missing, "location")
	}
	return missing
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(services.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}
