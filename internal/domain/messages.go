package domain

import (
	"encoding/json"
	"time"
)

// WebSocket event types from client.
const (
	MsgTypeJoinRoom      = "join-room"
	MsgTypeOffer         = "offer"
	MsgTypeAnswer        = "answer"
	MsgTypeICECandidate  = "ice-candidate"
	MsgTypeRequestStream = "request-stream"
	MsgTypeStreamStarted = "stream-started"
	MsgTypeStreamStopped = "stream-stopped"
	MsgTypeChatMessage   = "chat-message"
	MsgTypePing          = "ping"
)

// WebSocket event types to client.
const (
	MsgTypeRoomJoined               = "room-joined"
	MsgTypeViewerJoined             = "viewer-joined"
	MsgTypeViewerLeft               = "viewer-left"
	MsgTypeViewerRequestStream      = "viewer-request-stream"
	MsgTypeBroadcasterStartedStream = "broadcaster-started-stream"
	MsgTypeBroadcasterStoppedStream = "broadcaster-stopped-stream"
	MsgTypeBroadcasterLeft          = "broadcaster-left"
	MsgTypeBroadcasterReplaced      = "broadcaster-replaced"
	MsgTypeError                    = "error"
	MsgTypePong                     = "pong"
)

// Roles assigned on room join.
const (
	RoleBroadcaster = "broadcaster"
	RoleViewer      = "viewer"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// JoinRoomMessage registers the connection in a room, optionally as the
// room's broadcaster.
type JoinRoomMessage struct {
	Type          string `json:"type"`
	RoomID        string `json:"roomId"`
	UserID        string `json:"userId"`
	IsBroadcaster bool   `json:"isBroadcaster"`
}

// OfferMessage carries an SDP offer addressed to a specific connection.
// The SDP payload is opaque to the relay and forwarded verbatim.
type OfferMessage struct {
	Type     string          `json:"type"`
	RoomID   string          `json:"roomId"`
	Offer    json.RawMessage `json:"offer"`
	TargetID string          `json:"targetId"`
}

// AnswerMessage carries an SDP answer back to the offer's sender. The
// wire field is named "from" (the connection the answer responds to).
type AnswerMessage struct {
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
	From   string          `json:"from"`
}

// ICECandidateMessage carries an ICE candidate addressed to a specific
// connection.
type ICECandidateMessage struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
	TargetID  string          `json:"targetId"`
}

// RoomIDMessage covers the events whose only payload is a room id
// (request-stream, stream-started, stream-stopped).
type RoomIDMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// ChatMessageIn is a chat message sent into a room.
type ChatMessageIn struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Server -> Client messages

// RoomJoinedMessage acknowledges a join and reports the assigned role.
type RoomJoinedMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Role   string `json:"role"`
}

// ViewerMessage names a viewer for viewer-joined, viewer-left and
// viewer-request-stream notifications.
type ViewerMessage struct {
	Type     string `json:"type"`
	ViewerID string `json:"viewerId"`
}

// OfferForward is an offer delivered to its target, tagged with the
// sender's connection id and the room.
type OfferForward struct {
	Type   string          `json:"type"`
	Offer  json.RawMessage `json:"offer"`
	From   string          `json:"from"`
	RoomID string          `json:"roomId"`
}

// AnswerForward is an answer delivered to its target, tagged with the
// sender's connection id.
type AnswerForward struct {
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
	From   string          `json:"from"`
}

// ICECandidateForward is an ICE candidate delivered to its target,
// tagged with the sender's connection id.
type ICECandidateForward struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
	From      string          `json:"from"`
}

// BroadcasterReplacedMessage tells a displaced broadcaster that another
// connection took over its room.
type BroadcasterReplacedMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// ChatMessageOut is a chat message fanned out to a room with a
// server-assigned timestamp.
type ChatMessageOut struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorMessage is sent when an inbound message cannot be processed.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewErrorMessage creates a new error message.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
