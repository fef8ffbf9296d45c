package models

import "time"

// Room is a two-party conversation container. Its identifier is derived from
// the two participant ids and never changes after creation.
type Room struct {
	ID           string    `json:"room_id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// OtherParticipant returns the participant that is not the given user.
func (r Room) OtherParticipant(userID string) (string, bool) {
	for _, p := range r.Participants {
		if p != userID {
			return p, true
		}
	}
	return "", false
}

// HasParticipant reports whether the user belongs to the room.
func (r Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// RoomSnapshot is a room together with the newest message in it, as fetched
// in one pass for conversation-list assembly.
type RoomSnapshot struct {
	Room          Room     `json:"room"`
	LatestMessage *Message `json:"latest_message,omitempty"`
}
