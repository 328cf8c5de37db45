package domain

import (
	"time"

	"github.com/matchday-app/chat-service/pkg/database"
)

// RoomModel is the GORM model for the chat_rooms table. The
// (context_type, context_id) pair carries a unique index so concurrent
// first accesses converge on a single room.
type RoomModel struct {
	ID            string               `gorm:"type:varchar(36);primaryKey"`
	ContextType   string               `gorm:"type:varchar(16);not null;uniqueIndex:idx_rooms_context"`
	ContextID     string               `gorm:"type:varchar(64);not null;uniqueIndex:idx_rooms_context"`
	Participants  database.StringArray `gorm:"type:text"`
	RoomKey       string               `gorm:"type:varchar(64);not null"` // hex, server-side only
	LastMessageAt time.Time            `gorm:"index"`
	CreatedAt     time.Time            `gorm:"autoCreateTime"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "chat_rooms"
}

// ToDomain converts RoomModel to domain Room. The room key deliberately
// stays behind; it is only reachable through the repository key accessor.
func (m *RoomModel) ToDomain() *Room {
	return &Room{
		ID:            m.ID,
		ContextType:   ContextType(m.ContextType),
		ContextID:     m.ContextID,
		Participants:  []string(m.Participants),
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
	}
}

// MessageModel is the GORM model for the chat_messages table, indexed
// on (room_id, created_at) for ordered pagination.
type MessageModel struct {
	ID          string               `gorm:"type:varchar(36);primaryKey"`
	RoomID      string               `gorm:"type:varchar(36);not null;index:idx_messages_room_created,priority:1"`
	SenderID    string               `gorm:"type:varchar(36);not null"`
	CipherText  string               `gorm:"type:text"`
	IV          string               `gorm:"type:varchar(64)"`
	AuthTag     string               `gorm:"type:varchar(64)"`
	Media       database.StringArray `gorm:"type:text"`
	DeliveredTo database.StringArray `gorm:"type:text"`
	ReadBy      database.StringArray `gorm:"type:text"`
	DeletedFor  database.StringArray `gorm:"type:text"`
	IsDeleted   bool                 `gorm:"not null;default:false"`
	Edited      bool                 `gorm:"not null;default:false"`
	CreatedAt   time.Time            `gorm:"index:idx_messages_room_created,priority:2"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		CipherText:  m.CipherText,
		IV:          m.IV,
		AuthTag:     m.AuthTag,
		Media:       []string(m.Media),
		DeliveredTo: []string(m.DeliveredTo),
		ReadBy:      []string(m.ReadBy),
		DeletedFor:  []string(m.DeletedFor),
		IsDeleted:   m.IsDeleted,
		Edited:      m.Edited,
		CreatedAt:   m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:          msg.ID,
		RoomID:      msg.RoomID,
		SenderID:    msg.SenderID,
		CipherText:  msg.CipherText,
		IV:          msg.IV,
		AuthTag:     msg.AuthTag,
		Media:       database.StringArray(msg.Media),
		DeliveredTo: database.StringArray(msg.DeliveredTo),
		ReadBy:      database.StringArray(msg.ReadBy),
		DeletedFor:  database.StringArray(msg.DeletedFor),
		IsDeleted:   msg.IsDeleted,
		Edited:      msg.Edited,
		CreatedAt:   msg.CreatedAt,
	}
}
