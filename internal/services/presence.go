package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/linguapal/linguapal/internal/logging"
)

var ErrChatProviderUnavailable = errors.New("chat provider request failed")

// PresenceSyncInterface mirrors the chat provider's identity surface. All
// calls through SyncIdentity are best-effort: failures are logged and
// swallowed so signup and onboarding never fail on provider errors.
type PresenceSyncInterface interface {
	UpsertIdentity(ctx context.Context, userID uuid.UUID, displayName, imageURL string) error
	UserToken(userID uuid.UUID) (string, error)
}

// PresenceService wraps a provider client with the swallow-and-log policy.
type PresenceService struct {
	client PresenceSyncInterface
}

func NewPresenceService(client PresenceSyncInterface) *PresenceService {
	return &PresenceService{client: client}
}

// SyncIdentity upserts the user's identity with the chat provider. Errors
// are logged, never returned.
func (s *PresenceService) SyncIdentity(ctx context.Context, userID uuid.UUID, displayName, imageURL string) {
	if s.client == nil {
		return
	}
	if err := s.client.UpsertIdentity(ctx, userID, displayName, imageURL); err != nil {
		logging.Error("Chat identity sync failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": userID.String(),
		})
	}
}

// UserToken issues the per-user chat credential. Unlike identity sync this
// is user-facing, so errors propagate.
func (s *PresenceService) UserToken(userID uuid.UUID) (string, error) {
	if s.client == nil {
		return "", ErrChatProviderUnavailable
	}
	return s.client.UserToken(userID)
}

// ChatProviderClient talks to the external chat/video provider's REST API.
// Server-side calls authenticate with an HS256 JWT signed with the API
// secret, the scheme the provider expects for backend traffic.
type ChatProviderClient struct {
	apiKey     string
	apiSecret  []byte
	baseURL    string
	httpClient *http.Client
}

func NewChatProviderClient(apiKey, apiSecret, baseURL string) *ChatProviderClient {
	return &ChatProviderClient{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *ChatProviderClient) UpsertIdentity(ctx context.Context, userID uuid.UUID, displayName, imageURL string) error {
	payload := map[string]any{
		"users": map[string]any{
			userID.String(): map[string]any{
				"id":    userID.String(),
				"name":  displayName,
				"image": imageURL,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding upsert payload: %w", err)
	}

	serverToken, err := c.serverToken()
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/users?api_key=%s", c.baseURL, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", serverToken)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChatProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrChatProviderUnavailable, resp.StatusCode, snippet)
	}
	return nil
}

// UserToken mints the credential the frontend presents to the provider.
// Expiry matches the session lifetime.
func (c *ChatProviderClient) UserToken(userID uuid.UUID) (string, error) {
	claims := map[string]any{
		"user_id": userID.String(),
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(SessionTTL).Unix(),
	}
	return c.signJWT(claims)
}

func (c *ChatProviderClient) serverToken() (string, error) {
	return c.signJWT(map[string]any{"server": true, "iat": time.Now().Unix()})
}

// signJWT assembles a compact HS256 JWT. The provider only understands
// this one algorithm, so a full JWT dependency is not warranted.
func (c *ChatProviderClient) signJWT(claims map[string]any) (string, error) {
	header := map[string]string{"alg": "HS256", "typ": "JWT"}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("encoding jwt header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encoding jwt claims: %w", err)
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(claimsJSON)

	mac := hmac.New(sha256.New, c.apiSecret)
	mac.Write([]byte(signingInput))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return signingInput + "." + signature, nil
}

// StubChatProvider is used in development and tests when no provider
// credentials are configured.
type StubChatProvider struct{}

func (StubChatProvider) UpsertIdentity(ctx context.Context, userID uuid.UUID, displayName, imageURL string) error {
	logging.Debug("Stub chat provider upsert", map[string]interface{}{
		"user_id": userID.String(),
		"name":    displayName,
	})
	return nil
}

func (StubChatProvider) UserToken(userID uuid.UUID) (string, error) {
	return "stub-token-" + userID.String(), nil
}
