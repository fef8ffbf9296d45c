package observability

import "time"

// EventEnvelope is the wire shape for events published to the broker.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// StreamEventPayload builds the standard payload for conversation-stream
// websocket lifecycle events.
func StreamEventPayload(event, connID, reason string, userID, deviceID, ip string, connected time.Duration) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "conversations",
			"event":       event,
			"conn_id":     connID,
			"duration_ms": connected.Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   userID,
			"device_id": deviceID,
			"ip":        ip,
		},
	}
}
