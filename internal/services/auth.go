package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
)

// SessionTTL matches the 7-day credential validity of the reference
// behavior.
const SessionTTL = 7 * 24 * time.Hour

const sessionKeyPrefix = "session:"

type AuthService struct {
	redis RedisClient
}

func NewAuthService(redis RedisClient) *AuthService {
	return &AuthService{redis: redis}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateSession issues an opaque token and stores its hash in Redis with
// the 7-day TTL. Only the hash is ever persisted.
func (s *AuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	key := sessionKeyPrefix + hashSessionToken(token)
	if err := s.redis.Set(ctx, key, userID.String(), SessionTTL); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}

	return token, nil
}

// ResolveSession maps a presented token back to a user ID.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrSessionNotFound
	}

	key := sessionKeyPrefix + hashSessionToken(token)
	value, err := s.redis.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading session: %w", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing session user id: %w", err)
	}
	return userID, nil
}

func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	key := sessionKeyPrefix + hashSessionToken(token)
	if err := s.redis.Del(ctx, key); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
