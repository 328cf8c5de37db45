package domain

import (
	"time"
)

// MessageState is derived from the flags on a message.
type MessageState string

const (
	StateSent        MessageState = "sent"
	StateDelivered   MessageState = "delivered"
	StateRead        MessageState = "read"
	StateHardDeleted MessageState = "hard_deleted"
)

// Actor is an authenticated caller. Admin is granted by the identity
// collaborator and only widens hard-delete permissions.
type Actor struct {
	ID    string
	Admin bool
}

// SenderKind tags the origin of a message or broadcast event.
type SenderKind string

const (
	SenderSystem SenderKind = "system"
	SenderUser   SenderKind = "user"
)

// SenderRef is a tagged variant: either the system or a concrete user.
type SenderRef struct {
	Kind   SenderKind `json:"kind"`
	UserID string     `json:"user_id,omitempty"`
}

// SystemSender returns the system variant.
func SystemSender() SenderRef {
	return SenderRef{Kind: SenderSystem}
}

// UserSender returns the user variant for id.
func UserSender(id string) SenderRef {
	return SenderRef{Kind: SenderUser, UserID: id}
}

// Message is the stored form of a chat message. Content exists only as
// an AES-256-GCM envelope; plaintext never reaches the repository.
type Message struct {
	ID          string
	RoomID      string
	SenderID    string
	CipherText  string // hex
	IV          string // hex
	AuthTag     string // hex
	Media       []string
	DeliveredTo []string
	ReadBy      []string
	DeletedFor  []string
	IsDeleted   bool
	Edited      bool
	CreatedAt   time.Time
}

// State derives the message state relative to the room's participant
// set: read once every other participant has read it, delivered once
// every other participant has received it.
func (m *Message) State(participants []string) MessageState {
	if m.IsDeleted {
		return StateHardDeleted
	}

	allIn := func(set []string) bool {
		for _, p := range participants {
			if p == m.SenderID {
				continue
			}
			if !contains(set, p) {
				return false
			}
		}
		return true
	}

	if len(participants) > 1 && allIn(m.ReadBy) {
		return StateRead
	}
	if len(participants) > 1 && allIn(m.DeliveredTo) {
		return StateDelivered
	}
	return StateSent
}

// VisibleTo reports whether the message appears in userID's list views.
// Hard-deleted messages stay visible as tombstones; soft deletion hides
// the message for that viewer only.
func (m *Message) VisibleTo(userID string) bool {
	return !contains(m.DeletedFor, userID)
}

// CanSoftDelete reports whether a further soft delete by userID would
// change anything.
func (m *Message) CanSoftDelete(userID string) bool {
	return !contains(m.DeletedFor, userID)
}

// CanDeleteForEveryone reports whether actor may hard-delete the message.
func (m *Message) CanDeleteForEveryone(actor Actor) bool {
	return m.SenderID == actor.ID || actor.Admin
}

// CanEdit reports whether actor may still edit the message at time now.
func (m *Message) CanEdit(actor Actor, now time.Time, window time.Duration) error {
	if m.SenderID != actor.ID {
		return ErrForbidden
	}
	if m.IsDeleted {
		return ErrNotFound
	}
	if now.Sub(m.CreatedAt) > window {
		return ErrEditWindowClosed
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// MessageResponse is a message in API and websocket payloads, with the
// content already decrypted (or substituted by a placeholder).
type MessageResponse struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Sender      SenderRef `json:"sender"`
	Content     string    `json:"content"`
	Media       []string  `json:"media,omitempty"`
	DeliveredTo []string  `json:"delivered_to"`
	ReadBy      []string  `json:"read_by"`
	IsDeleted   bool      `json:"is_deleted"`
	Edited      bool      `json:"edited"`
	CreatedAt   time.Time `json:"created_at"`
}

// SendMessageRequest is the payload for sending a message. Content and
// media are individually optional but not both.
type SendMessageRequest struct {
	Content  string   `json:"content"`
	MediaIDs []string `json:"media_ids"`
}

// EditMessageRequest is the payload for editing a message.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListMessagesRequest captures message pagination: newest-first pages
// with an optional before cursor, or a chronological since cursor for
// offline sync.
type ListMessagesRequest struct {
	Limit  int    `form:"limit"`
	Before string `form:"before"` // RFC3339
	Since  string `form:"since"`  // RFC3339
}
