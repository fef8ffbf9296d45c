package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"conversation-index/internal/models"
	"conversation-index/internal/repositories"
	"conversation-index/internal/telemetry"
)

// FriendHandler manages friend-edge and friend-request endpoints. Edges are
// symmetric; the store writes both directions.
type FriendHandler struct {
	friends  repositories.FriendEdgeStore
	requests repositories.FriendRequestStore
	profiles repositories.UserProfileLookup
	audit    *telemetry.AuditEmitter
}

// NewFriendHandler builds a FriendHandler.
func NewFriendHandler(friends repositories.FriendEdgeStore, requests repositories.FriendRequestStore, profiles repositories.UserProfileLookup, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friends: friends, requests: requests, profiles: profiles, audit: audit}
}

// PutFriend adds a friend edge for the caller.
func (h *FriendHandler) PutFriend(c *gin.Context) {
	friendID := c.Param("friend_id")
	userID := c.GetString("userID")
	if friendID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}
	if userID == friendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot befriend yourself"})
		return
	}

	if err := h.friends.AddFriend(c.Request.Context(), userID, friendID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add friend"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("friend added friend_id=%s", friendID), requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// DeleteFriend removes a friend edge for the caller.
func (h *FriendHandler) DeleteFriend(c *gin.Context) {
	friendID := c.Param("friend_id")
	userID := c.GetString("userID")
	if friendID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friend id"})
		return
	}

	if err := h.friends.RemoveFriend(c.Request.Context(), userID, friendID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove friend"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("friend removed friend_id=%s", friendID), requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// ListFriends returns the caller's friend ids.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	userID := c.GetString("userID")

	ids, err := h.friends.GetFriendIDs(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"friend_ids": ids})
}

// SendFriendRequest records a pending request from the caller to another
// user. Requests to existing friends, and duplicates in either direction,
// are rejected.
func (h *FriendHandler) SendFriendRequest(c *gin.Context) {
	recipientID := c.Param("user_id")
	userID := c.GetString("userID")
	if recipientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if userID == recipientID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send a friend request to yourself"})
		return
	}

	already, err := h.friends.AreFriends(c.Request.Context(), userID, recipientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate friendship"})
		return
	}
	if already {
		c.JSON(http.StatusConflict, gin.H{"error": "already friends"})
		return
	}

	if err := h.requests.SendRequest(c.Request.Context(), userID, recipientID); err != nil {
		if errors.Is(err, repositories.ErrRequestPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "friend request already pending"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send friend request"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("friend request sent recipient_id=%s", recipientID), requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusCreated)
}

// friendRequestView is the list representation of a pending request; the
// sender's display name is resolved at read time.
type friendRequestView struct {
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"sender_username"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListFriendRequests returns the pending requests addressed to the caller.
func (h *FriendHandler) ListFriendRequests(c *gin.Context) {
	userID := c.GetString("userID")

	requests, err := h.requests.ListIncomingRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friend requests"})
		return
	}

	senderIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		senderIDs = append(senderIDs, req.SenderID)
	}
	profiles, err := h.profiles.BulkProfiles(c.Request.Context(), senderIDs)
	if err != nil {
		// degrade to placeholders rather than failing the list
		profiles = map[string]models.Profile{}
	}

	views := make([]friendRequestView, 0, len(requests))
	for _, req := range requests {
		profile, ok := profiles[req.SenderID]
		if !ok {
			profile = models.PlaceholderProfile(req.SenderID)
		}
		views = append(views, friendRequestView{
			SenderID:       req.SenderID,
			SenderUsername: profile.Username,
			CreatedAt:      req.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"requests": views})
}

// AcceptFriendRequest consumes a pending request and creates the friend edge.
func (h *FriendHandler) AcceptFriendRequest(c *gin.Context) {
	senderID := c.Param("user_id")
	userID := c.GetString("userID")
	if senderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.requests.AcceptRequest(c.Request.Context(), userID, senderID); err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "friend request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not accept friend request"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("friend request accepted sender_id=%s", senderID), requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// DeclineFriendRequest removes a pending request without creating an edge.
func (h *FriendHandler) DeclineFriendRequest(c *gin.Context) {
	senderID := c.Param("user_id")
	userID := c.GetString("userID")
	if senderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.requests.DeclineRequest(c.Request.Context(), userID, senderID); err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "friend request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not decline friend request"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("friend request declined sender_id=%s", senderID), requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}
