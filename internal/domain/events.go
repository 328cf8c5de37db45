package domain

import "time"

// WebSocket event types from client.
const (
	EventJoin       = "chat:join"
	EventLeave      = "chat:leave"
	EventSend       = "chat:send"
	EventRead       = "chat:read"
	EventDeleteSoft = "chat:delete"
	EventDeleteHard = "chat:delete_for_everyone"
	EventTyping     = "chat:user_typing"
	EventPing       = "ping"
)

// WebSocket event types to client.
const (
	EventAck        = "ack"
	EventPong       = "pong"
	EventNewMessage = "chat:new_message"
	EventDelivered  = "chat:delivered"
	EventReadBy     = "chat:read"
	EventDeleted    = "chat:delete_for_everyone"
	EventTypingOut  = "chat:user_typing"
	EventEdited     = "chat:message_edited"
	EventSystem     = "chat:system"
)

// Error codes carried in acks and error responses.
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseEvent is the envelope shared by all inbound websocket events.
// AckID, when set, is echoed back on the acknowledgement.
type BaseEvent struct {
	Type  string `json:"type"`
	AckID string `json:"ack_id,omitempty"`
}

// Client -> Server events

type JoinEvent struct {
	BaseEvent
	RoomID string `json:"room_id"`
	Limit  int    `json:"limit,omitempty"`
}

type LeaveEvent struct {
	BaseEvent
	RoomID string `json:"room_id"`
}

type SendEvent struct {
	BaseEvent
	RoomID   string   `json:"room_id"`
	Content  string   `json:"content,omitempty"`
	MediaIDs []string `json:"media_ids,omitempty"`
}

type ReadEvent struct {
	BaseEvent
	RoomID string `json:"room_id"`
}

type SoftDeleteEvent struct {
	BaseEvent
	MessageID string `json:"message_id"`
}

type HardDeleteEvent struct {
	BaseEvent
	MessageID string `json:"message_id"`
}

type TypingEvent struct {
	BaseEvent
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"is_typing"`
}

// Server -> Client events

// AckEvent is the per-event acknowledgement. Every inbound event gets
// exactly one, carrying either a result payload or an error.
type AckEvent struct {
	Type     string            `json:"type"`
	AckID    string            `json:"ack_id,omitempty"`
	Success  bool              `json:"success"`
	Code     string            `json:"code,omitempty"`
	Error    string            `json:"error,omitempty"`
	Message  *MessageResponse  `json:"message,omitempty"`
	Messages []MessageResponse `json:"messages,omitempty"`
}

// Ack returns a successful acknowledgement for ackID.
func Ack(ackID string) *AckEvent {
	return &AckEvent{Type: EventAck, AckID: ackID, Success: true}
}

// Nack returns a failed acknowledgement for ackID.
func Nack(ackID, code, message string) *AckEvent {
	return &AckEvent{Type: EventAck, AckID: ackID, Success: false, Code: code, Error: message}
}

type NewMessageEvent struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id"`
	Message MessageResponse `json:"message"`
}

// ReceiptEvent notifies a delivery or read receipt for a user in a room.
type ReceiptEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type DeletedEvent struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

type TypingIndicatorEvent struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// SystemMessageEvent is a transient announcement (member joined, member
// removed). It is broadcast only, never persisted.
type SystemMessageEvent struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id"`
	Sender    SenderRef `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
