package service

import (
	"context"
	"encoding/json"

	"github.com/streamhub/signal-service/internal/hub"
)

// SignalService brokers WebRTC negotiation messages and room control
// events between peers. It never inspects SDP or ICE payloads.
type SignalService interface {
	// HandleJoinRoom registers the client in a room as broadcaster or
	// viewer.
	HandleJoinRoom(ctx context.Context, client *hub.Client, roomID, userID string, isBroadcaster bool) error

	// HandleOffer forwards an SDP offer to the target connection.
	HandleOffer(ctx context.Context, client *hub.Client, roomID string, offer json.RawMessage, targetID string) error

	// HandleAnswer forwards an SDP answer to the target connection.
	HandleAnswer(ctx context.Context, client *hub.Client, answer json.RawMessage, targetID string) error

	// HandleICECandidate forwards an ICE candidate to the target connection.
	HandleICECandidate(ctx context.Context, client *hub.Client, candidate json.RawMessage, targetID string) error

	// HandleRequestStream asks the room's broadcaster to start
	// negotiating with the requesting viewer.
	HandleRequestStream(ctx context.Context, client *hub.Client, roomID string) error

	// HandleStreamStarted announces to the room that media flow began.
	HandleStreamStarted(ctx context.Context, client *hub.Client, roomID string) error

	// HandleStreamStopped announces to the room that media flow ended.
	HandleStreamStopped(ctx context.Context, client *hub.Client, roomID string) error

	// HandleChatMessage fans a chat message out to the room.
	HandleChatMessage(ctx context.Context, client *hub.Client, roomID, message, userID, username string) error

	// HandleDisconnect sweeps a dropped connection out of its rooms.
	HandleDisconnect(ctx context.Context, client *hub.Client) error
}
