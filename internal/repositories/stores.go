package repositories

import (
	"context"
	"errors"

	"conversation-index/internal/models"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRequestPending  = errors.New("friend request already pending")
	ErrRequestNotFound = errors.New("friend request not found")
)

// Subscription is a live change feed that must be released exactly once.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain cancel function to a Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

// FriendEdgeStore keys a user to their mutual-friend ids. Friendship is
// symmetric; mutations write both directions.
type FriendEdgeStore interface {
	GetFriendIDs(ctx context.Context, userID string) ([]string, error)
	AreFriends(ctx context.Context, userID, friendID string) (bool, error)
	AddFriend(ctx context.Context, userID, friendID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	SubscribeFriends(userID string, onChange func()) (Subscription, error)
}

// FriendRequestStore persists pending friend requests, the pathway through
// which friend edges get created.
type FriendRequestStore interface {
	// SendRequest records a pending request. A request already pending in
	// either direction blocks a new one with ErrRequestPending.
	SendRequest(ctx context.Context, senderID, recipientID string) error
	ListIncomingRequests(ctx context.Context, recipientID string) ([]models.FriendRequest, error)
	// AcceptRequest consumes the pending request from senderID and writes the
	// symmetric friend edge in one transaction.
	AcceptRequest(ctx context.Context, recipientID, senderID string) error
	DeclineRequest(ctx context.Context, recipientID, senderID string) error
}

// RoomStore persists rooms and their ordered message logs.
type RoomStore interface {
	GetRoomsForUser(ctx context.Context, userID string) ([]models.RoomSnapshot, error)
	GetRoom(ctx context.Context, roomID string) (models.Room, error)
	// EnsureRoom creates the room for the pair if absent and returns it
	// either way. Idempotent; rooms are created lazily on first use.
	EnsureRoom(ctx context.Context, userA, userB string) (models.Room, error)
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	AppendMessage(ctx context.Context, roomID, senderID, senderName, text string) (models.Message, error)
	LatestMessage(ctx context.Context, roomID string) (*models.Message, error)
	SubscribeRooms(userID string, onChange func()) (Subscription, error)
	// SubscribeLatestMessage invokes onMessage whenever the head of the
	// room's message stream changes.
	SubscribeLatestMessage(roomID string, onMessage func(*models.Message)) (Subscription, error)
}

// UserProfileLookup resolves display profile fields for user ids.
type UserProfileLookup interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	// BulkProfiles resolves many ids in one call. Missing ids are simply
	// absent from the result map, not an error.
	BulkProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error)
}
