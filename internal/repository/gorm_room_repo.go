package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/pkg/database"
	"github.com/matchday-app/chat-service/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create inserts a new room. The unique (context_type, context_id)
// index turns concurrent first accesses into ErrDuplicateRoom for every
// writer but one.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room, keyHex string) error {
	l := log.Ctx(ctx)

	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.LastMessageAt.IsZero() {
		room.LastMessageAt = time.Now().UTC()
	}

	model := &domain.RoomModel{
		ID:            room.ID,
		ContextType:   string(room.ContextType),
		ContextID:     room.ContextID,
		Participants:  database.StringArray(room.Participants),
		RoomKey:       keyHex,
		LastMessageAt: room.LastMessageAt,
	}

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateRoom
		}
		l.Error().Err(result.Error).Msg("failed to create chat room in db")
		return result.Error
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.ID).Msg("chat room created in db")
	return nil
}

// GetByID retrieves a room by ID.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByContext retrieves the room bound to a (contextType, contextID)
// pair.
func (r *GormRoomRepository) GetByContext(ctx context.Context, contextType domain.ContextType, contextID string) (*domain.Room, error) {
	var model domain.RoomModel
	result := r.db.WithContext(ctx).
		First(&model, "context_type = ? AND context_id = ?", string(contextType), contextID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Msg("failed to get room by context")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// AddParticipant adds userID to the room's participant set if absent.
func (r *GormRoomRepository) AddParticipant(ctx context.Context, roomID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.RoomModel
		if err := tx.First(&model, "id = ?", roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if !model.Participants.Add(userID) {
			return nil
		}
		return tx.Model(&domain.RoomModel{}).
			Where("id = ?", roomID).
			Update("participants", model.Participants).Error
	})
}

// ListForUser retrieves rooms the user participates in, ordered by
// recent activity. Participants are stored as a JSON array, so
// containment is matched on the quoted id.
func (r *GormRoomRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error) {
	l := log.Ctx(ctx)

	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var models []domain.RoomModel
	result := r.db.WithContext(ctx).
		Where("participants LIKE ?", `%"`+userID+`"%`).
		Order("last_message_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to list user rooms from db")
		return nil, result.Error
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}
	return rooms, nil
}

// RoomKey returns the room's key hex.
func (r *GormRoomRepository) RoomKey(ctx context.Context, roomID string) (string, error) {
	var model domain.RoomModel
	result := r.db.WithContext(ctx).
		Select("id", "room_key").
		First(&model, "id = ?", roomID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrRoomNotFound
		}
		return "", result.Error
	}
	return model.RoomKey, nil
}

// SetRoomKey stores keyHex only if the room has no key yet.
func (r *GormRoomRepository) SetRoomKey(ctx context.Context, roomID, keyHex string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ? AND (room_key IS NULL OR room_key = '')", roomID).
		Update("room_key", keyHex)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TouchLastMessage bumps the room's activity timestamp.
func (r *GormRoomRepository) TouchLastMessage(ctx context.Context, roomID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ?", roomID).
		Update("last_message_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}
