package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
)

type FriendRequest struct {
	ID          uuid.UUID           `json:"id"`
	SenderID    uuid.UUID           `json:"sender_id"`
	RecipientID uuid.UUID           `json:"recipient_id"`
	Status      FriendRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

// IncomingFriendRequest is a pending request annotated with the sender's
// profile summary.
type IncomingFriendRequest struct {
	FriendRequest
	Sender UserSummary `json:"sender"`
}

// OutgoingFriendRequest is a request authored by the caller annotated with
// the recipient's profile summary.
type OutgoingFriendRequest struct {
	FriendRequest
	Recipient UserSummary `json:"recipient"`
}
