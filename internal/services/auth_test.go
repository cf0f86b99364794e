package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	store    map[string]string
	setTTL   time.Duration
	setErr   error
	getErr   error
	delErr   error
	delCalls []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: map[string]string{}}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.store[key] = value.(string)
	f.setTTL = expiration
	return nil
}

func (f *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.store[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	f.delCalls = append(f.delCalls, keys...)
	if f.delErr != nil {
		return f.delErr
	}
	for _, key := range keys {
		delete(f.store, key)
	}
	return nil
}

func TestAuthService_PasswordRoundTrip(t *testing.T) {
	svc := NewAuthService(newFakeRedis())
	hash, err := svc.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash must not be the plaintext")
	}
	if !svc.VerifyPassword(hash, "correct horse") {
		t.Fatal("expected password to verify")
	}
	if svc.VerifyPassword(hash, "wrong horse") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestAuthService_SessionLifecycle(t *testing.T) {
	fake := newFakeRedis()
	svc := NewAuthService(fake)
	userID := uuid.New()

	token, err := svc.CreateSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected opaque token")
	}
	if fake.setTTL != SessionTTL {
		t.Fatalf("expected 7-day TTL, got %v", fake.setTTL)
	}
	for key := range fake.store {
		if strings.Contains(key, token) {
			t.Fatal("raw token must never be stored")
		}
		if !strings.HasPrefix(key, "session:") {
			t.Fatalf("unexpected session key %q", key)
		}
	}

	resolved, err := svc.ResolveSession(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != userID {
		t.Fatalf("expected %s, got %s", userID, resolved)
	}

	if err := svc.DeleteSession(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ResolveSession(context.Background(), token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestAuthService_ResolveSession_EmptyToken(t *testing.T) {
	svc := NewAuthService(newFakeRedis())
	if _, err := svc.ResolveSession(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthService_ResolveSession_UnknownToken(t *testing.T) {
	svc := NewAuthService(newFakeRedis())
	if _, err := svc.ResolveSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthService_ResolveSession_RedisError(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("connection refused")
	svc := NewAuthService(fake)
	if _, err := svc.ResolveSession(context.Background(), "token"); err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected wrapped redis error, got %v", err)
	}
}

func TestAuthService_CreateSession_StoreError(t *testing.T) {
	fake := newFakeRedis()
	fake.setErr = errors.New("connection refused")
	svc := NewAuthService(fake)
	if _, err := svc.CreateSession(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

func TestAuthService_DeleteSession_EmptyToken(t *testing.T) {
	fake := newFakeRedis()
	svc := NewAuthService(fake)
	if err := svc.DeleteSession(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.delCalls) != 0 {
		t.Fatal("empty token must not touch redis")
	}
}
