package repository

import (
	"context"
	"errors"
	"time"

	"github.com/matchday-app/chat-service/internal/domain"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	// ErrDuplicateRoom signals a lost get-or-create race: another writer
	// inserted the (contextType, contextID) room first. Callers re-read
	// and converge on the winning row.
	ErrDuplicateRoom = errors.New("room already exists for context")
)

// RoomRepository defines the interface for chat room persistence.
type RoomRepository interface {
	// Create inserts a new room with its key. Returns ErrDuplicateRoom
	// when the (contextType, contextID) unique index rejects the insert.
	Create(ctx context.Context, room *domain.Room, keyHex string) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	GetByContext(ctx context.Context, contextType domain.ContextType, contextID string) (*domain.Room, error)
	// AddParticipant is an idempotent set-add.
	AddParticipant(ctx context.Context, roomID, userID string) error
	// ListForUser returns rooms the user participates in, most recently
	// active first.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error)
	// RoomKey returns the room's symmetric key in hex. Callers must have
	// passed an access check for the room before asking.
	RoomKey(ctx context.Context, roomID string) (string, error)
	// SetRoomKey stores keyHex only when the room has no key yet and
	// reports whether this call set it.
	SetRoomKey(ctx context.Context, roomID, keyHex string) (bool, error)
	TouchLastMessage(ctx context.Context, roomID string, at time.Time) error
}

// MessageRepository defines the interface for message persistence and
// the flag transitions of the message state machine.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// List returns messages newest-first, excluding those soft-deleted
	// for the viewer. Hard-deleted messages come back as tombstones.
	// A zero before means "from the latest".
	List(ctx context.Context, roomID, viewerID string, limit int, before time.Time) ([]domain.Message, error)
	// ListSince returns messages strictly after since in chronological
	// order, for offline sync.
	ListSince(ctx context.Context, roomID, viewerID string, since time.Time, limit int) ([]domain.Message, error)
	// LastVisible returns the newest message visible to the viewer, or
	// ErrMessageNotFound for an empty room.
	LastVisible(ctx context.Context, roomID, viewerID string) (*domain.Message, error)
	// MarkDelivered / MarkRead add userID to the receipt sets of every
	// message in the room not sent by them. Idempotent; the count of
	// changed messages is returned.
	MarkDelivered(ctx context.Context, roomID, userID string) (int, error)
	MarkRead(ctx context.Context, roomID, userID string) (int, error)
	// SoftDelete hides the message for userID only.
	SoftDelete(ctx context.Context, messageID, userID string) error
	// HardDelete clears content and media and flags the message deleted.
	// Deleting an already-deleted message is a no-op success.
	HardDelete(ctx context.Context, messageID string) error
	// SaveEdit replaces the encrypted envelope and flags the message as
	// edited.
	SaveEdit(ctx context.Context, messageID, cipherText, iv, authTag string) error
}
