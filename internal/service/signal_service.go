package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/streamhub/signal-service/internal/domain"
	"github.com/streamhub/signal-service/internal/hub"
	"github.com/streamhub/signal-service/internal/kafka"
	"github.com/streamhub/signal-service/internal/presence"
	"github.com/streamhub/signal-service/internal/room"
	pkglog "github.com/streamhub/signal-service/pkg/log"
)

type signalService struct {
	sender   hub.Sender
	registry *room.Registry

	// presence and producer are optional; nil disables them.
	presence presence.Store
	producer kafka.StreamEventProducer
}

// NewSignalService creates a new SignalService instance. The registry
// is owned by the caller so tests can use isolated instances.
func NewSignalService(
	sender hub.Sender,
	registry *room.Registry,
	ps presence.Store,
	producer kafka.StreamEventProducer,
) SignalService {
	return &signalService{
		sender:   sender,
		registry: registry,
		presence: ps,
		producer: producer,
	}
}

func (s *signalService) HandleJoinRoom(ctx context.Context, c *hub.Client, roomID, userID string, isBroadcaster bool) error {
	l := pkglog.Ctx(ctx)

	c.Session.SetIdentity(userID, "")

	role := domain.RoleViewer
	if isBroadcaster {
		role = domain.RoleBroadcaster
		displaced := s.registry.JoinBroadcaster(roomID, c.ID)
		if displaced != "" {
			// Last-writer-wins on the broadcaster pointer, but the
			// displaced connection is told it lost the room.
			s.sender.SendToClient(displaced, &domain.BroadcasterReplacedMessage{
				Type:   domain.MsgTypeBroadcasterReplaced,
				RoomID: roomID,
			})
			l.Warn().
				Str(pkglog.FieldRoomID, roomID).
				Str("displaced", displaced).
				Str(pkglog.FieldClientID, c.ID).
				Msg("broadcaster replaced")
		}
	} else {
		s.registry.JoinViewer(roomID, c.ID)
	}

	if err := c.SendMessage(&domain.RoomJoinedMessage{
		Type:   domain.MsgTypeRoomJoined,
		RoomID: roomID,
		Role:   role,
	}); err != nil {
		return err
	}

	if !isBroadcaster {
		if broadcaster, ok := s.registry.Broadcaster(roomID); ok {
			s.sender.SendToClient(broadcaster, &domain.ViewerMessage{
				Type:     domain.MsgTypeViewerJoined,
				ViewerID: c.ID,
			})
		}
		if s.presence != nil {
			if err := s.presence.AddViewer(ctx, roomID, c.ID); err != nil {
				l.Warn().Err(err).Str(pkglog.FieldRoomID, roomID).Msg("presence add viewer failed")
			}
		}
	}

	l.Info().
		Str(pkglog.FieldClientID, c.ID).
		Str(pkglog.FieldRoomID, roomID).
		Str("role", role).
		Msg("client joined room")
	return nil
}

func (s *signalService) HandleOffer(ctx context.Context, c *hub.Client, roomID string, offer json.RawMessage, targetID string) error {
	// Payload forwarded verbatim; missing targets drop silently.
	return s.sender.SendToClient(targetID, &domain.OfferForward{
		Type:   domain.MsgTypeOffer,
		Offer:  offer,
		From:   c.ID,
		RoomID: roomID,
	})
}

func (s *signalService) HandleAnswer(ctx context.Context, c *hub.Client, answer json.RawMessage, targetID string) error {
	return s.sender.SendToClient(targetID, &domain.AnswerForward{
		Type:   domain.MsgTypeAnswer,
		Answer: answer,
		From:   c.ID,
	})
}

func (s *signalService) HandleICECandidate(ctx context.Context, c *hub.Client, candidate json.RawMessage, targetID string) error {
	return s.sender.SendToClient(targetID, &domain.ICECandidateForward{
		Type:      domain.MsgTypeICECandidate,
		Candidate: candidate,
		From:      c.ID,
	})
}

func (s *signalService) HandleRequestStream(ctx context.Context, c *hub.Client, roomID string) error {
	broadcaster, ok := s.registry.Broadcaster(roomID)
	if !ok {
		return nil
	}
	return s.sender.SendToClient(broadcaster, &domain.ViewerMessage{
		Type:     domain.MsgTypeViewerRequestStream,
		ViewerID: c.ID,
	})
}

func (s *signalService) HandleStreamStarted(ctx context.Context, c *hub.Client, roomID string) error {
	s.fanout(roomID, &domain.BaseMessage{Type: domain.MsgTypeBroadcasterStartedStream})

	userID, _ := c.Session.Identity()
	if userID == "" {
		userID = c.ID
	}

	if s.presence != nil {
		if err := s.presence.SetLive(ctx, roomID, userID); err != nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldRoomID, roomID).Msg("presence set live failed")
		}
	}
	if s.producer != nil {
		if err := s.producer.ProduceStreamStarted(ctx, roomID, userID); err != nil {
			// Kafka is non-critical; the stream goes on without it.
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldRoomID, roomID).Msg("failed to produce stream started event")
		}
	}
	return nil
}

func (s *signalService) HandleStreamStopped(ctx context.Context, c *hub.Client, roomID string) error {
	s.fanout(roomID, &domain.BaseMessage{Type: domain.MsgTypeBroadcasterStoppedStream})

	userID, _ := c.Session.Identity()
	if userID == "" {
		userID = c.ID
	}

	if s.presence != nil {
		if err := s.presence.ClearLive(ctx, roomID); err != nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldRoomID, roomID).Msg("presence clear live failed")
		}
	}
	if s.producer != nil {
		if err := s.producer.ProduceStreamStopped(ctx, roomID, userID, kafka.ReasonExplicit); err != nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Str(pkglog.FieldRoomID, roomID).Msg("failed to produce stream stopped event")
		}
	}
	return nil
}

func (s *signalService) HandleChatMessage(ctx context.Context, c *hub.Client, roomID, message, userID, username string) error {
	// Verified identities win over client-claimed ones.
	if sessUser, sessName := c.Session.Identity(); c.Session.IsVerified() {
		userID, username = sessUser, sessName
	} else {
		if userID == "" {
			userID = sessUser
		}
		if username == "" {
			username = sessName
		}
	}

	s.fanout(roomID, &domain.ChatMessageOut{
		Type:      domain.MsgTypeChatMessage,
		Message:   message,
		UserID:    userID,
		Username:  username,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (s *signalService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	l := pkglog.Ctx(ctx)

	for _, dep := range s.registry.Disconnect(c.ID) {
		if dep.WasBroadcaster {
			for _, member := range dep.Remaining {
				s.sender.SendToClient(member, &domain.BaseMessage{Type: domain.MsgTypeBroadcasterLeft})
			}

			userID, _ := c.Session.Identity()
			if userID == "" {
				userID = c.ID
			}
			if s.presence != nil {
				if err := s.presence.ClearLive(ctx, dep.RoomID); err != nil {
					l.Warn().Err(err).Str(pkglog.FieldRoomID, dep.RoomID).Msg("presence clear live failed")
				}
			}
			if s.producer != nil {
				if err := s.producer.ProduceStreamStopped(ctx, dep.RoomID, userID, kafka.ReasonDisconnect); err != nil {
					l.Warn().Err(err).Str(pkglog.FieldRoomID, dep.RoomID).Msg("failed to produce stream stopped event")
				}
			}
		} else {
			if dep.Broadcaster != "" {
				s.sender.SendToClient(dep.Broadcaster, &domain.ViewerMessage{
					Type:     domain.MsgTypeViewerLeft,
					ViewerID: c.ID,
				})
			}
			if s.presence != nil {
				if err := s.presence.RemoveViewer(ctx, dep.RoomID, c.ID); err != nil {
					l.Warn().Err(err).Str(pkglog.FieldRoomID, dep.RoomID).Msg("presence remove viewer failed")
				}
			}
		}

		l.Info().
			Str(pkglog.FieldClientID, c.ID).
			Str(pkglog.FieldRoomID, dep.RoomID).
			Bool("was_broadcaster", dep.WasBroadcaster).
			Bool("room_removed", dep.RoomRemoved).
			Msg("client left room")
	}
	return nil
}

// fanout sends a message to every connection in the room, sender
// included.
func (s *signalService) fanout(roomID string, message interface{}) {
	for _, member := range s.registry.Members(roomID) {
		s.sender.SendToClient(member, message)
	}
}
