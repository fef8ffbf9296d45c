package models

import "time"

// ConversationSummary is one entry of a user's merged chat list: a distinct
// other party, either a friend, a room counterpart, or both. It is a derived
// in-memory projection and is never persisted.
type ConversationSummary struct {
	OtherUserID       string    `json:"other_user_id"`
	Username          string    `json:"username"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	Description       string    `json:"description,omitempty"`
	RoomID            string    `json:"room_id,omitempty"`
	LatestMessage     *Message  `json:"latest_message,omitempty"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
}

// SortTime is the instant used for list ordering: latest message time when
// present, else room creation time, else the zero time (sorted last).
func (s ConversationSummary) SortTime() time.Time {
	if s.LatestMessage != nil {
		return s.LatestMessage.CreatedAt
	}
	return s.CreatedAt
}

// ConversationEvent is emitted over websocket stream connections.
type ConversationEvent struct {
	Type          string                `json:"type"`
	Conversations []ConversationSummary `json:"conversations,omitempty"`
	Error         string                `json:"error,omitempty"`
}
