package domain

import (
	"time"
)

// ContextType determines how room access is computed.
type ContextType string

const (
	// ContextDirect rooms are ad-hoc pairings; access is decided by the
	// participants set on the room itself.
	ContextDirect ContextType = "direct"
	// ContextGroup rooms mirror an externally owned group; access is
	// decided by the membership collaborator.
	ContextGroup ContextType = "group"
)

// Valid reports whether t is a known context type.
func (t ContextType) Valid() bool {
	return t == ContextDirect || t == ContextGroup
}

// Room represents a chat room bound 1:1 to a context.
// The room key never appears here; it stays behind the repository and
// the key manager.
type Room struct {
	ID            string      `json:"id"`
	ContextType   ContextType `json:"context_type"`
	ContextID     string      `json:"context_id"`
	Participants  []string    `json:"participants"`
	LastMessageAt time.Time   `json:"last_message_at"`
	CreatedAt     time.Time   `json:"created_at"`
}

// HasParticipant reports whether userID is attached to the room.
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// GetOrCreateRoomRequest is the HTTP payload for room get-or-create.
// Participants seed the room on first creation; the caller is always
// included. Ignored when the room already exists.
type GetOrCreateRoomRequest struct {
	ContextType  string   `json:"context_type" binding:"required,oneof=direct group"`
	ContextID    string   `json:"context_id" binding:"required"`
	Participants []string `json:"participants,omitempty"`
}

// RoomResponse is a room in API responses, optionally carrying a
// decrypted last-message preview for room lists.
type RoomResponse struct {
	ID            string           `json:"id"`
	ContextType   ContextType      `json:"context_type"`
	ContextID     string           `json:"context_id"`
	Participants  []string         `json:"participants"`
	LastMessageAt time.Time        `json:"last_message_at"`
	CreatedAt     time.Time        `json:"created_at"`
	LastMessage   *MessageResponse `json:"last_message,omitempty"`
}

// ToResponse converts Room to RoomResponse.
func (r *Room) ToResponse() RoomResponse {
	return RoomResponse{
		ID:            r.ID,
		ContextType:   r.ContextType,
		ContextID:     r.ContextID,
		Participants:  r.Participants,
		LastMessageAt: r.LastMessageAt,
		CreatedAt:     r.CreatedAt,
	}
}

// KeyInfoResponse describes a room's encryption scheme. The key itself
// never leaves the server boundary.
type KeyInfoResponse struct {
	Algorithm string `json:"algorithm"`
	Version   int    `json:"version"`
}
