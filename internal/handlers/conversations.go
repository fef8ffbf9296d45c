package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"conversation-index/internal/index"
)

// ConversationHandler serves one-shot conversation snapshots.
type ConversationHandler struct {
	index *index.Index
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(ix *index.Index) *ConversationHandler {
	return &ConversationHandler{index: ix}
}

// GetConversations returns the merged conversation list for the user.
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	subjectID := c.Param("user_id")
	if subjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if caller := c.GetString("userID"); caller != subjectID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot read another user's conversations"})
		return
	}

	list, err := h.index.Snapshot(c.Request.Context(), subjectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": list})
}
