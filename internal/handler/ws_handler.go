package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matchday-app/chat-service/internal/auth"
	"github.com/matchday-app/chat-service/internal/config"
	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/internal/hub"
	"github.com/matchday-app/chat-service/internal/presence"
	"github.com/matchday-app/chat-service/internal/service"
	"github.com/matchday-app/chat-service/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler is the realtime gateway. The identity token is validated
// once at connect; every event afterwards acts as that user.
type WSHandler struct {
	hub      *hub.Hub
	service  service.ChatService
	verifier *auth.Verifier
	presence presence.Registry
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(
	h *hub.Hub,
	svc service.ChatService,
	verifier *auth.Verifier,
	reg presence.Registry,
	wsCfg config.WebSocketConfig,
) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		presence: reg,
		wsCfg:    wsCfg,
	}
}

// HandleWebSocket upgrades the connection after authenticating the
// caller. Unauthenticated connections are rejected before upgrade.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	actor, err := h.verifier.Verify(token)
	if err != nil {
		log.Ctx(c.Request.Context()).Debug().Err(err).Msg("websocket auth rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.NewString(), h.hub, conn, actor, h.wsCfg)
	h.hub.Register(client)

	ctx := context.Background()
	if err := h.presence.Register(ctx, actor.ID, client.ID); err != nil {
		log.L().Warn().Err(err).Str(log.FieldUserID, actor.ID).Msg("presence register failed")
	}

	log.L().Info().
		Str(log.FieldUserID, actor.ID).
		Str(log.FieldSessionID, client.ID).
		Msg("websocket session opened")

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleEvent)
		// ReadPump returns when the connection is gone.
		if err := h.presence.Unregister(ctx, actor.ID, client.ID); err != nil {
			log.L().Warn().Err(err).Str(log.FieldUserID, actor.ID).Msg("presence unregister failed")
		}
		log.L().Info().
			Str(log.FieldUserID, actor.ID).
			Str(log.FieldSessionID, client.ID).
			Msg("websocket session closed")
	}()
}

func bearerToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// handleEvent dispatches one inbound event. A handler panic nacks the
// event instead of tearing the connection down.
func (h *WSHandler) handleEvent(client *hub.Client, message []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.Nack("", domain.ErrCodeBadRequest, "invalid event format"))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.L().Error().
				Interface("panic", r).
				Str("event_type", base.Type).
				Str(log.FieldSessionID, client.ID).
				Msg("event handler panicked")
			client.SendMessage(domain.Nack(base.AckID, domain.ErrCodeInternalError, "internal error"))
		}
	}()

	ctx := context.Background()

	switch base.Type {
	case domain.EventJoin:
		h.handleJoin(ctx, client, message, base.AckID)
	case domain.EventLeave:
		h.handleLeave(client, message, base.AckID)
	case domain.EventSend:
		h.handleSend(ctx, client, message, base.AckID)
	case domain.EventRead:
		h.handleRead(ctx, client, message, base.AckID)
	case domain.EventDeleteSoft:
		h.handleSoftDelete(ctx, client, message, base.AckID)
	case domain.EventDeleteHard:
		h.handleHardDelete(ctx, client, message, base.AckID)
	case domain.EventTyping:
		h.handleTyping(ctx, client, message)
	case domain.EventPing:
		client.SendMessage(map[string]string{"type": domain.EventPong})
	default:
		client.SendMessage(domain.Nack(base.AckID, domain.ErrCodeBadRequest, "unknown event type"))
	}
}

func (h *WSHandler) handleJoin(ctx context.Context, client *hub.Client, message []byte, ackID string) {
	var event domain.JoinEvent
	if err := json.Unmarshal(message, &event); err != nil || event.RoomID == "" {
		client.SendMessage(domain.Nack(ackID, domain.ErrCodeBadRequest, "invalid join event"))
		return
	}

	history, err := h.service.JoinRoom(ctx, client.Session.Actor(), event.RoomID, event.Limit)
	if err != nil {
		h.nack(client, ackID, err)
		return
	}

	h.hub.JoinRoom(client, event.RoomID)
	client.Session.JoinRoom(event.RoomID)

	ack := domain.Ack(ackID)
	ack.Messages = history
	client.SendMessage(ack)
}

func (h *WSHandler) handleLeave(client *hub.Client, message []byte, ackID string) {
	var event domain.LeaveEvent
	if err := json.Unmarshal(message, &event); err != nil || event.RoomID == "" {
		client.SendMessage(domain.Nack(ackID, domain.ErrCodeBadRequest, "invalid leave event"))
		return
	}

	h.hub.LeaveRoom(client, event.RoomID)
	client.Session.LeaveRoom(event.RoomID)
	client.SendMessage(domain.Ack(ackID))
}

func (h *WSHandler) handleSend(ctx context.Context, client *hub.Client, message []byte, ackID string) {
	var event domain.SendEvent
	if err := json.Unmarshal(message, &event); err != nil || event.RoomID == "" {
		client.SendMessage(domain.Nack(ackID, domain.ErrCodeBadRequest, "invalid send event"))
		return
	}

	req := domain.SendMessageRequest{Content: event.Content, MediaIDs: event.MediaIDs}
	msg, err := h.service.SendMessage(ctx, client.Session.Actor(), event.RoomID, req, client.ID)
	if err != nil {
		h.nack(client, ackID, err)
		return
	}

	ack := domain.Ack(ackID)
	ack.Message = msg
	client.SendMessage(ack)
}

func (h *WSHandler) handleRead(ctx context.Context, client *hub.Client, message []byte, ackID string) {
	var event domain.ReadEvent
	if err := json.Unmarshal(message, &event); err != nil || event.RoomID == "" {
		client.SendMessage(domain.Nack(ackID, domain.ErrCodeBadRequest, "invalid read event"))
		return
	}

	if err := h.service.MarkRead(ctx, client.Session.Actor(), event.RoomID); err != nil {
		h.nack(client, ackID, err)
		return
	}
	client.SendMessage(domain.Ack(ackID))
}

func (h *WSHandler) handleSoftDelete(ctx context.Context, client *hub.Client, message []byte, ackID string) {
	var event domain.SoftDeleteEvent
	if err := json.Unmarshal(message, &event); err != nil || event.MessageID == "" {
		client.SendMessage(domain.Nack(ackID, domain.ErrCodeBadRequest, "invalid delete event"))
		return
	}

	if err := h.service.SoftDelete(ctx, client.Session.Actor(), event.MessageID); err != nil {
		h.nack(client, ackID, err)
		return
	}
	client.SendMessage(domain.Ack(ackID))
}

func (h *WSHandler) handleHardDelete(ctx context.Context, client *hub.Client, message []byte, ackID string) {
	var event domain.HardDeleteEvent
	if err := json.Unmarshal(message, &event); err != nil || event.MessageID == "" {
		client.SendMessage(domain.Nack(ackID, domain.ErrCodeBadRequest, "invalid delete event"))
		return
	}

	if err := h.service.HardDelete(ctx, client.Session.Actor(), event.MessageID); err != nil {
		h.nack(client, ackID, err)
		return
	}
	client.SendMessage(domain.Ack(ackID))
}

// handleTyping relays typing indicators without persistence or ack.
// The session must have joined the room first; the service re-checks
// access so a revoked member stops relaying immediately.
func (h *WSHandler) handleTyping(ctx context.Context, client *hub.Client, message []byte) {
	var event domain.TypingEvent
	if err := json.Unmarshal(message, &event); err != nil || event.RoomID == "" {
		return
	}
	if !client.Session.InRoom(event.RoomID) {
		return
	}
	if err := h.service.Typing(ctx, client.Session.Actor(), event.RoomID, event.IsTyping, client.ID); err != nil {
		log.L().Debug().Err(err).Str(log.FieldRoomID, event.RoomID).Str(log.FieldSessionID, client.ID).Msg("typing relay denied")
	}
}

func (h *WSHandler) nack(client *hub.Client, ackID string, err error) {
	code, message := errorCode(err)
	client.SendMessage(domain.Nack(ackID, code, message))
}

// errorCode maps domain errors onto wire error codes.
func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return domain.ErrCodeBadRequest, "invalid request"
	case errors.Is(err, domain.ErrUnauthorized):
		return domain.ErrCodeUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return domain.ErrCodeForbidden, "access denied"
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrCodeNotFound, "not found"
	case errors.Is(err, domain.ErrEditWindowClosed):
		return domain.ErrCodeForbidden, "edit window has closed"
	case errors.Is(err, domain.ErrConflict):
		return domain.ErrCodeConflict, "conflict"
	default:
		return domain.ErrCodeInternalError, "internal error"
	}
}
