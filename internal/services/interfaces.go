package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/linguapal/linguapal/internal/models"
)

// Handler-facing service surfaces. Handlers depend on these interfaces so
// tests can substitute stubs.

type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Onboard(ctx context.Context, userID uuid.UUID, params models.OnboardUserParams) (*models.User, error)
}

type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	CreateSession(ctx context.Context, userID uuid.UUID) (string, error)
	ResolveSession(ctx context.Context, token string) (uuid.UUID, error)
	DeleteSession(ctx context.Context, token string) error
}

type FriendServiceInterface interface {
	ListRecommended(ctx context.Context, requesterID uuid.UUID) ([]models.UserSummary, error)
	ListFriends(ctx context.Context, requesterID uuid.UUID) ([]models.UserSummary, error)
	SendRequest(ctx context.Context, senderID, recipientID uuid.UUID) (*models.FriendRequest, error)
	AcceptRequest(ctx context.Context, recipientID, requestID uuid.UUID) (*models.FriendRequest, error)
	ListIncoming(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error)
	ListOutgoing(ctx context.Context, userID uuid.UUID) ([]models.OutgoingFriendRequest, error)
}

type PresenceServiceInterface interface {
	SyncIdentity(ctx context.Context, userID uuid.UUID, displayName, imageURL string)
	UserToken(userID uuid.UUID) (string, error)
}

type EmailServiceInterface interface {
	SendWelcome(ctx context.Context, to, username string) error
}

type ProviderAuthServiceInterface interface {
	LinkOrCreateUser(ctx context.Context, claims IdentityClaims) (*models.User, error)
}
