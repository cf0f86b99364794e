package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	ProfileImage     string    `json:"profile_image"`
	Bio              string    `json:"bio"`
	NativeLanguage   string    `json:"native_language"`
	LearningLanguage string    `json:"learning_language"`
	Location         string    `json:"location"`
	IsOnboarded      bool      `json:"is_onboarded"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	ProfileImage string
}

type OnboardUserParams struct {
	Bio              string
	NativeLanguage   string
	LearningLanguage string
	Location         string
	ProfileImage     string
}

// UserSummary is the public projection of a user returned in friend and
// recommendation listings.
type UserSummary struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	ProfileImage     string    `json:"profile_image"`
	NativeLanguage   string    `json:"native_language"`
	LearningLanguage string    `json:"learning_language"`
}
