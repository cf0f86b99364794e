package handlers

import (
	"log"
	"net/http"

	"github.com/linguapal/linguapal/internal/services"
)

type ChatHandler struct {
	presenceService services.PresenceServiceInterface
}

func NewChatHandler(presenceService services.PresenceServiceInterface) *ChatHandler {
	return &ChatHandler{presenceService: presenceService}
}

type ChatTokenResponse struct {
	Token string `json:"token"`
}

// Token issues the per-user credential the frontend presents to the chat
// provider for messaging and video calls.
func (h *ChatHandler) Token(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	token, err := h.presenceService.UserToken(user.ID)
	if err != nil {
		log.Printf("Error issuing chat token: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ChatTokenResponse{Token: token})
}
