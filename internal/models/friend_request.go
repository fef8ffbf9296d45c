package models

import "time"

// FriendRequest is a pending, directed invitation. Accepting it creates the
// symmetric friend edge and consumes the request.
type FriendRequest struct {
	SenderID    string    `db:"sender_id" json:"sender_id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
