package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"conversation-index/internal/models"
	"conversation-index/internal/repositories"
	"conversation-index/internal/roomid"
	"conversation-index/internal/telemetry"
)

// RoomHandler manages room and message endpoints.
type RoomHandler struct {
	rooms    repositories.RoomStore
	friends  repositories.FriendEdgeStore
	profiles repositories.UserProfileLookup
	audit    *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(rooms repositories.RoomStore, friends repositories.FriendEdgeStore, profiles repositories.UserProfileLookup, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{
		rooms:    rooms,
		friends:  friends,
		profiles: profiles,
		audit:    audit,
	}
}

// StartRoom creates or returns the room shared with a friend.
func (h *RoomHandler) StartRoom(c *gin.Context) {
	var req struct {
		FriendID string `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if userID == req.FriendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a room with yourself"})
		return
	}

	friends, err := h.friends.AreFriends(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate friendship"})
		return
	}
	if !friends {
		c.JSON(http.StatusForbidden, gin.H{"error": "users are not friends"})
		return
	}

	room, err := h.rooms.EnsureRoom(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": room.ID})
}

// GetRoomMessages returns the ordered message log of a room.
func (h *RoomHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}
	if !room.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	msgs, err := h.rooms.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostRoomMessage appends a message to an existing room.
func (h *RoomHandler) PostRoomMessage(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	room, err := h.rooms.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "room not found"})
		return
	}
	if !room.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.rooms.AppendMessage(c.Request.Context(), roomID, userID, h.senderName(c.Request.Context(), userID), req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("message sent room_id=%s", roomID), requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, msg)
}

// SendDirectMessage sends to a recipient, creating the shared room on first
// use.
func (h *RoomHandler) SendDirectMessage(c *gin.Context) {
	var req struct {
		RecipientID string `json:"recipient_id" binding:"required"`
		Text        string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if userID == req.RecipientID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	friends, err := h.friends.AreFriends(c.Request.Context(), userID, req.RecipientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate friendship"})
		return
	}
	if !friends {
		c.JSON(http.StatusForbidden, gin.H{"error": "users are not friends"})
		return
	}

	room, err := h.rooms.EnsureRoom(c.Request.Context(), userID, req.RecipientID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, roomid.ErrSelfRoom) || errors.Is(err, roomid.ErrEmptyUserID) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "could not create room"})
		return
	}

	msg, err := h.rooms.AppendMessage(c.Request.Context(), room.ID, userID, h.senderName(c.Request.Context(), userID), req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", fmt.Sprintf("message sent room_id=%s", room.ID), requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, gin.H{"room_id": room.ID, "message": msg})
}

func (h *RoomHandler) senderName(ctx context.Context, userID string) string {
	profile, err := h.profiles.GetProfile(ctx, userID)
	if err != nil {
		return models.PlaceholderProfile(userID).Username
	}
	return profile.Username
}
