package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linguapal/linguapal/internal/models"
)

var (
	ErrCannotFriendSelf      = errors.New("cannot send a friend request to yourself")
	ErrUserNotOnboarded      = errors.New("user has not completed onboarding")
	ErrFriendshipExists      = errors.New("users are already friends")
	ErrFriendRequestExists   = errors.New("a pending friend request already exists between these users")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrNotRequestRecipient   = errors.New("friend request belongs to another user")
)

const pgUniqueViolation = "23505"

const friendRequestColumns = `id, sender_id, recipient_id, status, created_at`

// FriendService mediates all friend-relationship state changes: requests,
// acceptance, and the derived mutual friend sets.
type FriendService struct {
	db DB
}

func NewFriendService(db DB) *FriendService {
	return &FriendService{db: db}
}

// ListRecommended returns onboarded users the requester could partner with,
// excluding the requester, current friends, and anyone with a pending
// request to or from the requester. Ordering is by signup time so repeated
// calls are stable.
func (s *FriendService) ListRecommended(ctx context.Context, requesterID uuid.UUID) ([]models.UserSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.username, u.profile_image, u.native_language, u.learning_language
		 FROM users u
		 WHERE u.id <> $1
		   AND u.is_onboarded = true
		   AND NOT EXISTS (
		       SELECT 1 FROM friendships f
		       WHERE f.user_id = $1 AND f.friend_id = u.id
		   )
		   AND NOT EXISTS (
		       SELECT 1 FROM friend_requests fr
		       WHERE fr.status = 'pending'
		         AND ((fr.sender_id = $1 AND fr.recipient_id = u.id)
		           OR (fr.sender_id = u.id AND fr.recipient_id = $1))
		   )
		 ORDER BY u.created_at, u.id`,
		requesterID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recommended users: %w", err)
	}
	defer rows.Close()

	return scanUserSummaries(rows)
}

// ListFriends resolves the requester's friend set to profile summaries.
func (s *FriendService) ListFriends(ctx context.Context, requesterID uuid.UUID) ([]models.UserSummary, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", requesterID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking requester: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.username, u.profile_image, u.native_language, u.learning_language
		 FROM friendships f
		 JOIN users u ON u.id = f.friend_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at, u.id`,
		requesterID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	return scanUserSummaries(rows)
}

// IsFriend reports whether the two users are in each other's friend sets.
func (s *FriendService) IsFriend(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	var isFriend bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)",
		userID, otherID,
	).Scan(&isFriend)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return isFriend, nil
}

// SendRequest creates a pending friend request from sender to recipient.
// The unordered-pair unique index closes the race where two concurrent
// sends both pass the duplicate check.
func (s *FriendService) SendRequest(ctx context.Context, senderID, recipientID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == recipientID {
		return nil, ErrCannotFriendSelf
	}

	var isOnboarded bool
	err := s.db.QueryRow(ctx, "SELECT is_onboarded FROM users WHERE id = $1", recipientID).Scan(&isOnboarded)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking recipient: %w", err)
	}
	if !isOnboarded {
		return nil, ErrUserNotOnboarded
	}

	isFriend, err := s.IsFriend(ctx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if isFriend {
		return nil, ErrFriendshipExists
	}

	var pendingExists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE status = 'pending'
			  AND ((sender_id = $1 AND recipient_id = $2)
			    OR (sender_id = $2 AND recipient_id = $1))
		)`,
		senderID, recipientID,
	).Scan(&pendingExists)
	if err != nil {
		return nil, fmt.Errorf("checking pending requests: %w", err)
	}
	if pendingExists {
		return nil, ErrFriendRequestExists
	}

	request := &models.FriendRequest{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO friend_requests (sender_id, recipient_id)
		 VALUES ($1, $2)
		 RETURNING `+friendRequestColumns,
		senderID, recipientID,
	).Scan(&request.ID, &request.SenderID, &request.RecipientID, &request.Status, &request.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrFriendRequestExists
		}
		return nil, fmt.Errorf("creating friend request: %w", err)
	}

	return request, nil
}

// AcceptRequest marks the request accepted and inserts both directed
// friendship rows in a single transaction so the status change and the
// friend-set update are never observed apart. Accepting an already
// accepted request is a no-op success.
func (s *FriendService) AcceptRequest(ctx context.Context, recipientID, requestID uuid.UUID) (*models.FriendRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	request := &models.FriendRequest{}
	err = tx.QueryRow(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1 FOR UPDATE`,
		requestID,
	).Scan(&request.ID, &request.SenderID, &request.RecipientID, &request.Status, &request.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading friend request: %w", err)
	}

	if request.RecipientID != recipientID {
		return nil, ErrNotRequestRecipient
	}

	if request.Status == models.FriendRequestStatusAccepted {
		return request, nil
	}

	if err := lockUserPairForUpdate(ctx, tx, request.SenderID, request.RecipientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("locking users: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE friend_requests SET status = 'accepted' WHERE id = $1`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("accepting friend request: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id)
		 VALUES ($1, $2), ($2, $1)
		 ON CONFLICT (user_id, friend_id) DO NOTHING`,
		request.SenderID, request.RecipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("recording friendship: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit accept transaction: %w", err)
	}
	committed = true
	request.Status = models.FriendRequestStatusAccepted

	return request, nil
}

// ListIncoming returns pending requests addressed to the user, newest
// first, with sender summaries.
func (s *FriendService) ListIncoming(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fr.id, fr.sender_id, fr.recipient_id, fr.status, fr.created_at,
		        u.id, u.username, u.profile_image, u.native_language, u.learning_language
		 FROM friend_requests fr
		 JOIN users u ON u.id = fr.sender_id
		 WHERE fr.recipient_id = $1 AND fr.status = 'pending'
		 ORDER BY fr.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}
	defer rows.Close()

	requests := []models.IncomingFriendRequest{}
	for rows.Next() {
		var req models.IncomingFriendRequest
		if err := rows.Scan(
			&req.ID, &req.SenderID, &req.RecipientID, &req.Status, &req.CreatedAt,
			&req.Sender.ID, &req.Sender.Username, &req.Sender.ProfileImage,
			&req.Sender.NativeLanguage, &req.Sender.LearningLanguage,
		); err != nil {
			return nil, fmt.Errorf("scanning incoming request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}
	return requests, nil
}

// ListOutgoing returns every request the user has sent, regardless of
// status, with recipient summaries.
func (s *FriendService) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]models.OutgoingFriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fr.id, fr.sender_id, fr.recipient_id, fr.status, fr.created_at,
		        u.id, u.username, u.profile_image, u.native_language, u.learning_language
		 FROM friend_requests fr
		 JOIN users u ON u.id = fr.recipient_id
		 WHERE fr.sender_id = $1
		 ORDER BY fr.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outgoing requests: %w", err)
	}
	defer rows.Close()

	requests := []models.OutgoingFriendRequest{}
	for rows.Next() {
		var req models.OutgoingFriendRequest
		if err := rows.Scan(
			&req.ID, &req.SenderID, &req.RecipientID, &req.Status, &req.CreatedAt,
			&req.Recipient.ID, &req.Recipient.Username, &req.Recipient.ProfileImage,
			&req.Recipient.NativeLanguage, &req.Recipient.LearningLanguage,
		); err != nil {
			return nil, fmt.Errorf("scanning outgoing request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing outgoing requests: %w", err)
	}
	return requests, nil
}

func scanUserSummaries(rows Rows) ([]models.UserSummary, error) {
	users := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.ProfileImage, &u.NativeLanguage, &u.LearningLanguage); err != nil {
			return nil, fmt.Errorf("scanning user summary: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading user summaries: %w", err)
	}
	return users, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
