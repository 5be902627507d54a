package kafka

import "context"

// StreamEvent represents a stream state change event.
type StreamEvent struct {
	Type          string `json:"type"` // "broadcast_started" | "broadcast_stopped"
	RoomID        string `json:"room_id"`
	BroadcasterID string `json:"broadcaster_id"`
	Reason        string `json:"reason,omitempty"` // "explicit" | "disconnect"
	Timestamp     int64  `json:"timestamp"`
}

// Event types
const (
	EventBroadcastStarted = "broadcast_started"
	EventBroadcastStopped = "broadcast_stopped"
)

// Stop reasons
const (
	ReasonExplicit   = "explicit"
	ReasonDisconnect = "disconnect"
)

// StreamEventProducer publishes stream lifecycle events for downstream
// consumers (presence, analytics). A nil producer disables publishing.
type StreamEventProducer interface {
	ProduceStreamStarted(ctx context.Context, roomID, broadcasterID string) error
	ProduceStreamStopped(ctx context.Context, roomID, broadcasterID, reason string) error
	Close() error
}
