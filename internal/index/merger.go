// Package index assembles per-user conversation lists from friend edges and
// rooms and keeps them live-updated.
package index

import (
	"context"
	"log"
	"sort"

	"conversation-index/internal/models"
	"conversation-index/internal/observability"
	"conversation-index/internal/repositories"
)

// Merger combines a user's friend set and room snapshots into one
// deduplicated conversation list with resolved display profiles.
type Merger struct {
	profiles repositories.UserProfileLookup
}

// NewMerger constructs a Merger.
func NewMerger(profiles repositories.UserProfileLookup) *Merger {
	return &Merger{profiles: profiles}
}

// Merge builds the conversation list for userID. Room-derived entries win
// over friend-only placeholders, every distinct other party appears exactly
// once, and the result is sorted newest activity first with insertion order
// breaking ties. A failed or missing profile lookup degrades that entry to a
// placeholder; it never fails the merge.
func (m *Merger) Merge(ctx context.Context, userID string, friendIDs []string, rooms []models.RoomSnapshot) []models.ConversationSummary {
	entries := make(map[string]*models.ConversationSummary, len(rooms)+len(friendIDs))
	order := make([]string, 0, len(rooms)+len(friendIDs))

	for _, snap := range rooms {
		room := snap.Room
		if len(room.Participants) != 2 || room.Participants[0] == "" || room.Participants[1] == "" {
			log.Printf("excluding malformed room %s: want exactly two participants, got %d", room.ID, len(room.Participants))
			observability.IncInvariantViolation("room_participants")
			continue
		}
		if !room.HasParticipant(userID) {
			log.Printf("excluding room %s: user %s is not a participant", room.ID, userID)
			observability.IncInvariantViolation("room_membership")
			continue
		}
		other, ok := room.OtherParticipant(userID)
		if !ok {
			observability.IncInvariantViolation("room_self")
			continue
		}
		if _, exists := entries[other]; exists {
			continue
		}
		entries[other] = &models.ConversationSummary{
			OtherUserID:   other,
			RoomID:        room.ID,
			LatestMessage: snap.LatestMessage,
			CreatedAt:     room.CreatedAt,
		}
		order = append(order, other)
	}

	for _, friendID := range friendIDs {
		if friendID == "" || friendID == userID {
			continue
		}
		if _, exists := entries[friendID]; exists {
			// the pair are friends and already have a room; the room entry wins
			continue
		}
		entries[friendID] = &models.ConversationSummary{OtherUserID: friendID}
		order = append(order, friendID)
	}

	profiles, err := m.profiles.BulkProfiles(ctx, order)
	if err != nil {
		log.Printf("bulk profile lookup failed for user %s: %v", userID, err)
		profiles = nil
	}

	list := make([]models.ConversationSummary, 0, len(order))
	for _, id := range order {
		entry := *entries[id]
		profile, ok := profiles[id]
		if !ok {
			profile = models.PlaceholderProfile(id)
		}
		entry.Username = profile.Username
		entry.ProfilePictureURL = profile.ProfilePictureURL
		entry.Description = profile.Description
		list = append(list, entry)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SortTime().After(list[j].SortTime())
	})
	return list
}
