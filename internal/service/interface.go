package service

import (
	"context"

	"github.com/matchday-app/chat-service/internal/domain"
)

// ChatService is the transport-agnostic core of the chat subsystem. The
// websocket gateway and the HTTP handlers both sit on top of it.
type ChatService interface {
	// GetOrCreateRoom returns the room bound to (contextType, contextID),
	// creating it with a fresh encryption key on first use. Concurrent
	// callers converge on the same room.
	GetOrCreateRoom(ctx context.Context, actor domain.Actor, req domain.GetOrCreateRoomRequest) (*domain.RoomResponse, error)

	// GetRoom returns a room the actor may access.
	GetRoom(ctx context.Context, actor domain.Actor, roomID string) (*domain.RoomResponse, error)

	// ListRooms returns the actor's rooms, most recently active first,
	// each with a decrypted last-message preview when one exists.
	ListRooms(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.RoomResponse, error)

	// JoinRoom marks pending messages delivered to the actor and returns
	// recent history in chronological order.
	JoinRoom(ctx context.Context, actor domain.Actor, roomID string, limit int) ([]domain.MessageResponse, error)

	// ListMessages pages history newest-first (before cursor) or
	// chronologically after a since cursor for offline sync.
	ListMessages(ctx context.Context, actor domain.Actor, roomID string, req domain.ListMessagesRequest) ([]domain.MessageResponse, error)

	// SendMessage encrypts and persists a message, fans it out to the
	// room, and falls back to a notification for offline participants.
	// excludeClientID suppresses the fan-out copy to the sending
	// connection, which gets the message on its ack instead.
	SendMessage(ctx context.Context, actor domain.Actor, roomID string, req domain.SendMessageRequest, excludeClientID string) (*domain.MessageResponse, error)

	// EditMessage re-encrypts the content of a message the actor sent
	// within the edit window.
	EditMessage(ctx context.Context, actor domain.Actor, messageID string, req domain.EditMessageRequest) (*domain.MessageResponse, error)

	// MarkDelivered / MarkRead record receipts for every message in the
	// room not sent by the actor. Both are idempotent.
	MarkDelivered(ctx context.Context, actor domain.Actor, roomID string) error
	MarkRead(ctx context.Context, actor domain.Actor, roomID string) error

	// SoftDelete hides a message for the actor only.
	SoftDelete(ctx context.Context, actor domain.Actor, messageID string) error

	// HardDelete removes a message's content for everyone. Only the
	// sender or an admin may do this; repeated calls are no-op successes.
	HardDelete(ctx context.Context, actor domain.Actor, messageID string) error

	// RoomKeyInfo describes the room's encryption scheme without ever
	// exposing the key.
	RoomKeyInfo(ctx context.Context, actor domain.Actor, roomID string) (*domain.KeyInfoResponse, error)

	// Typing relays a transient typing indicator to the room. Never
	// persisted; access is re-checked like any other operation.
	Typing(ctx context.Context, actor domain.Actor, roomID string, isTyping bool, excludeClientID string) error
}
