package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/linguapal/linguapal/internal/models"
	"github.com/linguapal/linguapal/internal/services"
)

type FriendHandler struct {
	friendService services.FriendServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type UserListResponse struct {
	Users []models.UserSummary `json:"users"`
}

type FriendRequestResponse struct {
	Request *models.FriendRequest `json:"request"`
}

type IncomingRequestsResponse struct {
	Requests []models.IncomingFriendRequest `json:"requests"`
}

type OutgoingRequestsResponse struct {
	Requests []models.OutgoingFriendRequest `json:"requests"`
}

// ListRecommended serves partner suggestions for the home screen.
func (h *FriendHandler) ListRecommended(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	users, err := h.friendService.ListRecommended(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing recommended users: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{Users: users})
}

func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), user.ID)
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		log.Printf("Error listing friends: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{Users: friends})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	recipientID, err := parseIDPathValue(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recipient ID")
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), user.ID, recipientID)
	switch {
	case errors.Is(err, services.ErrCannotFriendSelf):
		writeError(w, http.StatusBadRequest, "You cannot send a friend request to yourself")
		return
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrUserNotOnboarded):
		writeError(w, http.StatusNotFound, "Recipient not found")
		return
	case errors.Is(err, services.ErrFriendshipExists):
		writeError(w, http.StatusConflict, "You are already friends with this user")
		return
	case errors.Is(err, services.ErrFriendRequestExists):
		writeError(w, http.StatusConflict, "A friend request already exists between you and this user")
		return
	case err != nil:
		log.Printf("Error sending friend request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, FriendRequestResponse{Request: request})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parseIDPathValue(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	request, err := h.friendService.AcceptRequest(r.Context(), user.ID, requestID)
	switch {
	case errors.Is(err, services.ErrFriendRequestNotFound):
		writeError(w, http.StatusNotFound, "Friend request not found")
		return
	case errors.Is(err, services.ErrNotRequestRecipient):
		writeError(w, http.StatusForbidden, "You are not the recipient of this friend request")
		return
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		log.Printf("Error accepting friend request: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestResponse{Request: request})
}

func (h *FriendHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendService.ListIncoming(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing incoming requests: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, IncomingRequestsResponse{Requests: requests})
}

func (h *FriendHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendService.ListOutgoing(r.Context(), user.ID)
	if err != nil {
		log.Printf("Error listing outgoing requests: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, OutgoingRequestsResponse{Requests: requests})
}

func parseIDPathValue(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s path value", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing %s path value: %w", name, err)
	}
	return id, nil
}
