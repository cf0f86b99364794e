package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/linguapal/linguapal/internal/models"
)

var (
	ErrInvalidProviderClaims   = errors.New("invalid provider claims")
	ErrProviderEmailUnverified = errors.New("provider email not verified")
)

// ProviderAuthService resolves verified OIDC claims to a local user,
// linking by verified email or creating a fresh, not-yet-onboarded user.
type ProviderAuthService struct {
	db DB
}

func NewProviderAuthService(db DB) *ProviderAuthService {
	return &ProviderAuthService{db: db}
}

func (s *ProviderAuthService) LinkOrCreateUser(ctx context.Context, claims IdentityClaims) (*models.User, error) {
	provider := strings.TrimSpace(string(claims.Provider))
	subject := strings.TrimSpace(claims.Subject)
	if provider == "" || subject == "" {
		return nil, ErrInvalidProviderClaims
	}

	if user, err := s.findBySubject(ctx, claims.Provider, subject); err == nil {
		return user, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	email := normalizeEmail(claims.Email)
	if email == "" || !claims.EmailVerified {
		return nil, ErrProviderEmailUnverified
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin provider link transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	user := &models.User{}
	err = tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1) FOR UPDATE`,
		email,
	).Scan(scanUserDest(user)...)
	if errors.Is(err, pgx.ErrNoRows) {
		user, err = s.createFromClaims(ctx, tx, claims, email)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("finding user by provider email: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO provider_identities (user_id, provider, subject, email)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (provider, subject) DO NOTHING`,
		user.ID, provider, subject, email,
	)
	if err != nil {
		return nil, fmt.Errorf("linking provider identity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit provider link: %w", err)
	}
	committed = true

	return user, nil
}

func (s *ProviderAuthService) findBySubject(ctx context.Context, provider Provider, subject string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT `+prefixedUserColumns("u")+`
		 FROM users u
		 JOIN provider_identities pi ON pi.user_id = u.id
		 WHERE pi.provider = $1 AND pi.subject = $2`,
		string(provider), subject,
	).Scan(scanUserDest(user)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user by provider subject: %w", err)
	}
	return user, nil
}

func (s *ProviderAuthService) createFromClaims(ctx context.Context, tx Tx, claims IdentityClaims, email string) (*models.User, error) {
	username := usernameFromEmail(email)

	// Usernames are unique; suffix with part of the subject on collision.
	var taken bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))", username).Scan(&taken); err != nil {
		return nil, fmt.Errorf("checking provider username: %w", err)
	}
	if taken {
		suffix := claims.Subject
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		username = username + "-" + suffix
	}

	profileImage := claims.Picture
	if profileImage == "" {
		profileImage = DefaultAvatarURL(username)
	}

	user := &models.User{}
	err := tx.QueryRow(ctx,
		`INSERT INTO users (username, email, profile_image)
		 VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		username, email, profileImage,
	).Scan(scanUserDest(user)...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("provider user collision: %w", err)
		}
		return nil, fmt.Errorf("creating provider user: %w", err)
	}
	return user, nil
}

func usernameFromEmail(email string) string {
	local := email
	if idx := strings.Index(email, "@"); idx > 0 {
		local = email[:idx]
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, local)
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "learner-" + uuid.NewString()[:8]
	}
	return cleaned
}

func prefixedUserColumns(alias string) string {
	cols := strings.Split(userColumns, ",")
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		out = append(out, alias+"."+strings.TrimSpace(col))
	}
	return strings.Join(out, ", ")
}
