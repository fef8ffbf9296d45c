package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"conversation-index/internal/models"
)

// FriendRepo is a sqlx implementation of FriendEdgeStore.
type FriendRepo struct {
	db       *sqlx.DB
	notifier *Notifier
}

// NewFriendRepo constructs a FriendRepo.
func NewFriendRepo(db *sqlx.DB, notifier *Notifier) *FriendRepo {
	return &FriendRepo{db: db, notifier: notifier}
}

// GetFriendIDs returns the ids the user lists as friends.
func (r *FriendRepo) GetFriendIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT friend_id FROM friend_edges WHERE user_id=$1 ORDER BY created_at ASC`, userID)
	return ids, err
}

// AreFriends checks the edge in the caller's direction.
func (r *FriendRepo) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM friend_edges WHERE user_id=$1 AND friend_id=$2)`, userID, friendID)
	return exists, err
}

// AddFriend writes both directions of the edge in one transaction so the
// symmetry invariant holds for readers.
func (r *FriendRepo) AddFriend(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return errors.New("cannot befriend yourself")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insert = `INSERT INTO friend_edges (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, userID, friendID); err != nil {
		return fmt.Errorf("add friend edge: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, friendID, userID); err != nil {
		return fmt.Errorf("add friend edge: %w", err)
	}
	return tx.Commit()
}

// RemoveFriend deletes both directions of the edge.
func (r *FriendRepo) RemoveFriend(ctx context.Context, userID, friendID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const remove = `DELETE FROM friend_edges WHERE user_id=$1 AND friend_id=$2`
	if _, err := tx.ExecContext(ctx, remove, userID, friendID); err != nil {
		return fmt.Errorf("remove friend edge: %w", err)
	}
	if _, err := tx.ExecContext(ctx, remove, friendID, userID); err != nil {
		return fmt.Errorf("remove friend edge: %w", err)
	}
	// pending requests between the pair go with the edge
	if _, err := tx.ExecContext(ctx, `DELETE FROM friend_requests
        WHERE (sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1)`, userID, friendID); err != nil {
		return fmt.Errorf("remove pending requests: %w", err)
	}
	return tx.Commit()
}

// SendRequest records a pending request from senderID to recipientID.
func (r *FriendRepo) SendRequest(ctx context.Context, senderID, recipientID string) error {
	if senderID == recipientID {
		return errors.New("cannot send a friend request to yourself")
	}

	var pending bool
	err := r.db.GetContext(ctx, &pending, `SELECT EXISTS(SELECT 1 FROM friend_requests
        WHERE (sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1))`, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("check pending requests: %w", err)
	}
	if pending {
		return ErrRequestPending
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO friend_requests (sender_id, recipient_id)
        VALUES ($1, $2) ON CONFLICT DO NOTHING`, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("send friend request: %w", err)
	}
	return nil
}

// ListIncomingRequests returns the pending requests addressed to the user,
// oldest first.
func (r *FriendRepo) ListIncomingRequests(ctx context.Context, recipientID string) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.SelectContext(ctx, &requests, `SELECT sender_id, recipient_id, created_at
        FROM friend_requests WHERE recipient_id=$1 ORDER BY created_at ASC`, recipientID)
	return requests, err
}

// AcceptRequest consumes the pending request and writes both directions of
// the edge in the same transaction. Requests in both directions are consumed.
func (r *FriendRepo) AcceptRequest(ctx context.Context, recipientID, senderID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM friend_requests WHERE sender_id=$1 AND recipient_id=$2`, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("consume friend request: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrRequestNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM friend_requests WHERE sender_id=$1 AND recipient_id=$2`, recipientID, senderID); err != nil {
		return fmt.Errorf("consume friend request: %w", err)
	}

	const insert = `INSERT INTO friend_edges (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, recipientID, senderID); err != nil {
		return fmt.Errorf("add friend edge: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, senderID, recipientID); err != nil {
		return fmt.Errorf("add friend edge: %w", err)
	}
	return tx.Commit()
}

// DeclineRequest drops the pending request without creating an edge.
func (r *FriendRepo) DeclineRequest(ctx context.Context, recipientID, senderID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM friend_requests WHERE sender_id=$1 AND recipient_id=$2`, senderID, recipientID)
	if err != nil {
		return fmt.Errorf("decline friend request: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// SubscribeFriends fires onChange whenever the user's friend set changes.
func (r *FriendRepo) SubscribeFriends(userID string, onChange func()) (Subscription, error) {
	return r.notifier.SubscribeFriendChanges(userID, onChange), nil
}

var (
	_ FriendEdgeStore    = (*FriendRepo)(nil)
	_ FriendRequestStore = (*FriendRepo)(nil)
)
