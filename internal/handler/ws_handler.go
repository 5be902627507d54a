package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/streamhub/signal-service/internal/domain"
	"github.com/streamhub/signal-service/internal/hub"
	"github.com/streamhub/signal-service/internal/service"
	pkglog "github.com/streamhub/signal-service/pkg/log"
	"github.com/streamhub/signal-service/pkg/token"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub      *hub.Hub
	service  service.SignalService
	verifier *token.Verifier // nil disables identity verification
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, svc service.SignalService, verifier *token.Verifier) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
	}
}

// HandleWebSocket handles WebSocket upgrade and message routing.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := pkglog.Ctx(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	clientID := uuid.New().String()
	client := &hub.Client{
		ID:      clientID,
		Hub:     h.hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Session: domain.NewSession(clientID),
	}

	// A token is optional: connections stay anonymous without one, a
	// valid one pins the session identity.
	if h.verifier != nil {
		if tok := r.URL.Query().Get("token"); tok != "" {
			claims, err := h.verifier.Verify(tok)
			if err != nil {
				l.Warn().Err(err).Str(pkglog.FieldClientID, clientID).Msg("token rejected, continuing anonymous")
			} else {
				client.Session.SetVerifiedIdentity(claims.UserID, claims.Username)
			}
		}
	}

	// Clean up room state before the hub forgets the connection.
	client.SetDisconnectHandler(func(c *hub.Client) {
		ctx := context.Background()
		if err := h.service.HandleDisconnect(ctx, c); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, c.ID).Msg("disconnect handler error")
		}
	})

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	l := pkglog.L()

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeJoinRoom:
		var msg domain.JoinRoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid join-room message"))
			return
		}
		if err := h.service.HandleJoinRoom(ctx, client, msg.RoomID, msg.UserID, msg.IsBroadcaster); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("join room failed")
		}

	case domain.MsgTypeOffer:
		var msg domain.OfferMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid offer message"))
			return
		}
		if err := h.service.HandleOffer(ctx, client, msg.RoomID, msg.Offer, msg.TargetID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("offer relay failed")
		}

	case domain.MsgTypeAnswer:
		var msg domain.AnswerMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid answer message"))
			return
		}
		if err := h.service.HandleAnswer(ctx, client, msg.Answer, msg.From); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("answer relay failed")
		}

	case domain.MsgTypeICECandidate:
		var msg domain.ICECandidateMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid ice-candidate message"))
			return
		}
		if err := h.service.HandleICECandidate(ctx, client, msg.Candidate, msg.TargetID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("ice candidate relay failed")
		}

	case domain.MsgTypeRequestStream:
		var msg domain.RoomIDMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid request-stream message"))
			return
		}
		if err := h.service.HandleRequestStream(ctx, client, msg.RoomID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("request stream failed")
		}

	case domain.MsgTypeStreamStarted:
		var msg domain.RoomIDMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid stream-started message"))
			return
		}
		if err := h.service.HandleStreamStarted(ctx, client, msg.RoomID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("stream started failed")
		}

	case domain.MsgTypeStreamStopped:
		var msg domain.RoomIDMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid stream-stopped message"))
			return
		}
		if err := h.service.HandleStreamStopped(ctx, client, msg.RoomID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("stream stopped failed")
		}

	case domain.MsgTypeChatMessage:
		var msg domain.ChatMessageIn
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid chat-message"))
			return
		}
		if err := h.service.HandleChatMessage(ctx, client, msg.RoomID, msg.Message, msg.UserID, msg.Username); err != nil {
			l.Error().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("chat message failed")
		}

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWebSocket)
}
