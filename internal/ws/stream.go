package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"conversation-index/internal/index"
	"conversation-index/internal/models"
	"conversation-index/internal/observability"
)

// ConversationStreamHandler serves a user's live conversation list over a
// websocket. Each connection owns one index session; frames carry the full
// merged list on every change.
type ConversationStreamHandler struct {
	hub   *Hub
	index *index.Index
}

// NewConversationStreamHandler constructs a ConversationStreamHandler.
func NewConversationStreamHandler(hub *Hub, ix *index.Index) *ConversationStreamHandler {
	return &ConversationStreamHandler{hub: hub, index: ix}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, starts a live index session for the caller
// and streams conversation events until the client disconnects.
func (h *ConversationStreamHandler) Handle(c *gin.Context) {
	userID := c.GetHeader("X-User-Id")
	if userID == "" {
		// browsers cannot set headers on websocket dials
		userID = c.Query("user_id")
	}
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id"})
		return
	}

	ctx, span := otel.Tracer("conversation-index/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddStream(userID, conn, info)

	observability.IncWSActive("conversations")
	observability.IncWSEvent("conversations", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.conversations", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   observability.StreamEventPayload("ws_connect", info.ConnID, "", info.UserID, info.DeviceID, info.IP, 0),
	}, observability.BuildHeaders(requestID, traceID))

	// Session callbacks never overlap, but a write error may race the
	// disconnect path; writes stay behind one mutex.
	var writeMu sync.Mutex
	writeEvent := func(event models.ConversationEvent) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
		}
	}

	// The session outlives this handler; the request context dies with it.
	handle, err := h.index.Start(context.Background(), userID,
		func(list []models.ConversationSummary) {
			writeEvent(models.ConversationEvent{Type: "conversations", Conversations: list})
		},
		func(err error) {
			writeEvent(models.ConversationEvent{Type: "error", Error: err.Error()})
		},
	)
	if err != nil {
		log.Printf("conversation stream start failed user_id=%s: %v", userID, err)
		writeEvent(models.ConversationEvent{Type: "error", Error: "could not start conversation stream"})
		h.hub.RemoveStream(userID, conn)
		observability.DecWSActive("conversations")
		conn.Close()
		return
	}

	// Keep connection alive and clean up on close
	go func() {
		var closeReason string
		defer func() {
			handle.Stop()
			h.hub.RemoveStream(userID, conn)
			observability.DecWSActive("conversations")
			observability.IncWSEvent("conversations", "ws_disconnect")
			_ = observability.PublishEvent(ctx, "ws_events.conversations", observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   observability.StreamEventPayload("ws_disconnect", info.ConnID, closeReason, info.UserID, info.DeviceID, info.IP, time.Since(info.ConnectedAt)),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("conversations", "ws_error")
					_ = observability.PublishEvent(ctx, "ws_events.conversations", observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   observability.StreamEventPayload("ws_error", info.ConnID, closeReason, info.UserID, info.DeviceID, info.IP, time.Since(info.ConnectedAt)),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
		}
	}()
}
