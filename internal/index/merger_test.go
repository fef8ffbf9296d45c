package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-index/internal/models"
)

var (
	t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
	t2 = t0.Add(2 * time.Minute)
)

func room(id, user1, user2 string, createdAt time.Time) models.Room {
	return models.Room{ID: id, Participants: []string{user1, user2}, CreatedAt: createdAt}
}

func message(roomID, senderID, text string, createdAt time.Time) *models.Message {
	return &models.Message{ID: roomID + "/" + text, RoomID: roomID, SenderID: senderID, Text: text, CreatedAt: createdAt}
}

func TestMergeFriendsAndRoom(t *testing.T) {
	// user U has friends A and B; a room with B holds one message
	profiles := newFakeProfileLookup(
		models.Profile{UserID: "A", Username: "alice"},
		models.Profile{UserID: "B", Username: "bob"},
	)
	merger := NewMerger(profiles)

	rooms := []models.RoomSnapshot{{
		Room:          room("B-U", "B", "U", t0),
		LatestMessage: message("B-U", "B", "hi", t1),
	}}

	list := merger.Merge(context.Background(), "U", []string{"A", "B"}, rooms)

	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].OtherUserID)
	assert.Equal(t, "B-U", list[0].RoomID)
	assert.Equal(t, "bob", list[0].Username)
	require.NotNil(t, list[0].LatestMessage)
	assert.Equal(t, "hi", list[0].LatestMessage.Text)

	assert.Equal(t, "A", list[1].OtherUserID)
	assert.Empty(t, list[1].RoomID)
	assert.Nil(t, list[1].LatestMessage)
}

func TestMergeDeduplicatesFriendWithRoom(t *testing.T) {
	profiles := newFakeProfileLookup(models.Profile{UserID: "B", Username: "bob"})
	merger := NewMerger(profiles)

	rooms := []models.RoomSnapshot{{Room: room("B-U", "B", "U", t0)}}
	list := merger.Merge(context.Background(), "U", []string{"B"}, rooms)

	require.Len(t, list, 1)
	// room-derived entry wins over the friend-only placeholder
	assert.Equal(t, "B-U", list[0].RoomID)
	assert.Equal(t, t0, list[0].CreatedAt)
}

func TestMergeIsIdempotent(t *testing.T) {
	profiles := newFakeProfileLookup(
		models.Profile{UserID: "A", Username: "alice"},
		models.Profile{UserID: "B", Username: "bob"},
		models.Profile{UserID: "C", Username: "carol"},
	)
	merger := NewMerger(profiles)

	rooms := []models.RoomSnapshot{
		{Room: room("B-U", "B", "U", t0), LatestMessage: message("B-U", "B", "hi", t2)},
		{Room: room("C-U", "C", "U", t1)},
	}
	friendIDs := []string{"A", "B", "C"}

	first := merger.Merge(context.Background(), "U", friendIDs, rooms)
	second := merger.Merge(context.Background(), "U", friendIDs, rooms)
	assert.Equal(t, first, second)
}

func TestMergeSortOrder(t *testing.T) {
	profiles := newFakeProfileLookup()
	merger := NewMerger(profiles)

	rooms := []models.RoomSnapshot{
		{Room: room("C-U", "C", "U", t0)},                                             // no message, room created t0
		{Room: room("B-U", "B", "U", t0), LatestMessage: message("B-U", "B", "m", t2)}, // newest activity
		{Room: room("D-U", "D", "U", t1)},                                             // no message, room created t1
	}

	list := merger.Merge(context.Background(), "U", []string{"A"}, rooms)

	require.Len(t, list, 4)
	assert.Equal(t, "B", list[0].OtherUserID) // latest message wins
	assert.Equal(t, "D", list[1].OtherUserID) // newer room
	assert.Equal(t, "C", list[2].OtherUserID)
	assert.Equal(t, "A", list[3].OtherUserID) // friend-only sorts last
}

func TestMergeStableOnTies(t *testing.T) {
	profiles := newFakeProfileLookup()
	merger := NewMerger(profiles)

	// all friend-only entries share the zero sort time; insertion order holds
	friendIDs := []string{"C", "A", "B"}
	list := merger.Merge(context.Background(), "U", friendIDs, nil)

	require.Len(t, list, 3)
	assert.Equal(t, "C", list[0].OtherUserID)
	assert.Equal(t, "A", list[1].OtherUserID)
	assert.Equal(t, "B", list[2].OtherUserID)
}

func TestMergeMissingProfileGetsPlaceholder(t *testing.T) {
	profiles := newFakeProfileLookup(models.Profile{UserID: "A", Username: "alice"})
	merger := NewMerger(profiles)

	list := merger.Merge(context.Background(), "U", []string{"A", "ghost"}, nil)

	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "Unknown user", list[1].Username)
}

func TestMergeSurvivesProfileLookupFailure(t *testing.T) {
	profiles := newFakeProfileLookup()
	profiles.err = assert.AnError
	merger := NewMerger(profiles)

	list := merger.Merge(context.Background(), "U", []string{"A", "B"}, nil)

	require.Len(t, list, 2)
	for _, entry := range list {
		assert.Equal(t, "Unknown user", entry.Username)
	}
}

func TestMergeExcludesMalformedRooms(t *testing.T) {
	profiles := newFakeProfileLookup()
	merger := NewMerger(profiles)

	rooms := []models.RoomSnapshot{
		{Room: models.Room{ID: "broken", Participants: []string{"U"}, CreatedAt: t0}},
		{Room: models.Room{ID: "foreign", Participants: []string{"X", "Y"}, CreatedAt: t0}},
		{Room: room("B-U", "B", "U", t0)},
	}

	list := merger.Merge(context.Background(), "U", nil, rooms)

	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].OtherUserID)
}

func TestMergeBatchesProfileLookups(t *testing.T) {
	profiles := newFakeProfileLookup()
	merger := NewMerger(profiles)

	rooms := []models.RoomSnapshot{{Room: room("B-U", "B", "U", t0)}}
	merger.Merge(context.Background(), "U", []string{"A", "B"}, rooms)

	require.Len(t, profiles.calls, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, profiles.calls[0])
}
