package broadcast

import (
	"time"

	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/internal/hub"
	"github.com/matchday-app/chat-service/pkg/log"
)

// Broadcaster fans chat events out to room subscribers. Implementations
// must not block the caller; delivery to slow consumers is best-effort.
type Broadcaster interface {
	BroadcastMessage(roomID string, msg domain.MessageResponse, excludeClientID string)
	NotifyDelivered(roomID, userID string)
	NotifyRead(roomID, userID string)
	NotifyEdited(roomID string, msg domain.MessageResponse)
	NotifyDeletedForEveryone(roomID, messageID string)
	NotifyTyping(roomID, userID string, isTyping bool, excludeClientID string)
	BroadcastSystemMessage(roomID, content string)
}

// HubBroadcaster fans events out through the websocket hub.
type HubBroadcaster struct {
	hub *hub.Hub
}

func NewHubBroadcaster(h *hub.Hub) *HubBroadcaster {
	return &HubBroadcaster{hub: h}
}

func (b *HubBroadcaster) BroadcastMessage(roomID string, msg domain.MessageResponse, excludeClientID string) {
	event := domain.NewMessageEvent{
		Type:    domain.EventNewMessage,
		RoomID:  roomID,
		Message: msg,
	}
	if err := b.hub.BroadcastToRoom(roomID, event, excludeClientID); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast new message")
	}
}

func (b *HubBroadcaster) NotifyDelivered(roomID, userID string) {
	event := domain.ReceiptEvent{
		Type:   domain.EventDelivered,
		RoomID: roomID,
		UserID: userID,
	}
	if err := b.hub.BroadcastToRoom(roomID, event, ""); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast delivery receipt")
	}
}

func (b *HubBroadcaster) NotifyRead(roomID, userID string) {
	event := domain.ReceiptEvent{
		Type:   domain.EventReadBy,
		RoomID: roomID,
		UserID: userID,
	}
	if err := b.hub.BroadcastToRoom(roomID, event, ""); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast read receipt")
	}
}

func (b *HubBroadcaster) NotifyEdited(roomID string, msg domain.MessageResponse) {
	event := domain.NewMessageEvent{
		Type:    domain.EventEdited,
		RoomID:  roomID,
		Message: msg,
	}
	if err := b.hub.BroadcastToRoom(roomID, event, ""); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast message edit")
	}
}

func (b *HubBroadcaster) NotifyDeletedForEveryone(roomID, messageID string) {
	event := domain.DeletedEvent{
		Type:      domain.EventDeleted,
		RoomID:    roomID,
		MessageID: messageID,
	}
	if err := b.hub.BroadcastToRoom(roomID, event, ""); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast hard delete")
	}
}

func (b *HubBroadcaster) NotifyTyping(roomID, userID string, isTyping bool, excludeClientID string) {
	event := domain.TypingIndicatorEvent{
		Type:     domain.EventTypingOut,
		RoomID:   roomID,
		UserID:   userID,
		IsTyping: isTyping,
	}
	if err := b.hub.BroadcastToRoom(roomID, event, excludeClientID); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast typing indicator")
	}
}

func (b *HubBroadcaster) BroadcastSystemMessage(roomID, content string) {
	event := domain.SystemMessageEvent{
		Type:      domain.EventSystem,
		RoomID:    roomID,
		Sender:    domain.SystemSender(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.hub.BroadcastToRoom(roomID, event, ""); err != nil {
		log.L().Warn().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to broadcast system message")
	}
}
