package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create persists a new message.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	l := log.Ctx(ctx)

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	model := domain.MessageToModel(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, msg.RoomID).Msg("failed to create message in db")
		return err
	}

	l.Debug().Str(log.FieldMessageID, msg.ID).Str(log.FieldRoomID, msg.RoomID).Msg("message created in db")
	return nil
}

// GetByID retrieves a message by ID.
func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model domain.MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		log.Ctx(ctx).Error().Err(result.Error).Str(log.FieldMessageID, id).Msg("failed to get message by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// visibleTo excludes messages the viewer soft-deleted. DeletedFor is a
// JSON array column, so containment is matched on the quoted id.
func visibleTo(q *gorm.DB, viewerID string) *gorm.DB {
	return q.Where("deleted_for IS NULL OR deleted_for NOT LIKE ?", `%"`+viewerID+`"%`)
}

// List retrieves messages newest-first with an optional before cursor.
func (r *GormMessageRepository) List(ctx context.Context, roomID, viewerID string, limit int, before time.Time) ([]domain.Message, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("room_id = ?", roomID)
	query = visibleTo(query, viewerID)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var models []domain.MessageModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages from db")
		return nil, err
	}

	return toDomainMessages(models), nil
}

// ListSince retrieves messages strictly after since, oldest first, for
// offline sync.
func (r *GormMessageRepository) ListSince(ctx context.Context, roomID, viewerID string, since time.Time, limit int) ([]domain.Message, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("room_id = ?", roomID)
	query = visibleTo(query, viewerID)
	if !since.IsZero() {
		query = query.Where("created_at > ?", since)
	}

	var models []domain.MessageModel
	if err := query.Order("created_at ASC").Limit(limit).Find(&models).Error; err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to list messages since cursor")
		return nil, err
	}

	return toDomainMessages(models), nil
}

// LastVisible returns the newest message the viewer can see.
func (r *GormMessageRepository) LastVisible(ctx context.Context, roomID, viewerID string) (*domain.Message, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.MessageModel{}).
		Where("room_id = ?", roomID)
	query = visibleTo(query, viewerID)

	var model domain.MessageModel
	result := query.Order("created_at DESC").First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// MarkDelivered adds userID to delivered_to on every message in the
// room they have not sent. Receipt adds are commutative set-adds, so
// re-running on every join converges.
func (r *GormMessageRepository) MarkDelivered(ctx context.Context, roomID, userID string) (int, error) {
	return r.addReceipt(ctx, roomID, userID, "delivered_to", false)
}

// MarkRead adds userID to read_by (and delivered_to, reading implies
// delivery) on every message in the room they have not sent.
func (r *GormMessageRepository) MarkRead(ctx context.Context, roomID, userID string) (int, error) {
	return r.addReceipt(ctx, roomID, userID, "read_by", true)
}

func (r *GormMessageRepository) addReceipt(ctx context.Context, roomID, userID, column string, alsoDelivered bool) (int, error) {
	changed := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var models []domain.MessageModel
		q := tx.Where("room_id = ? AND sender_id != ?", roomID, userID).
			Where(column+" IS NULL OR "+column+" NOT LIKE ?", `%"`+userID+`"%`)
		if err := q.Find(&models).Error; err != nil {
			return err
		}

		for i := range models {
			updates := map[string]interface{}{}
			switch column {
			case "delivered_to":
				if models[i].DeliveredTo.Add(userID) {
					updates["delivered_to"] = models[i].DeliveredTo
				}
			case "read_by":
				if models[i].ReadBy.Add(userID) {
					updates["read_by"] = models[i].ReadBy
				}
			}
			if alsoDelivered && models[i].DeliveredTo.Add(userID) {
				updates["delivered_to"] = models[i].DeliveredTo
			}
			if len(updates) == 0 {
				continue
			}
			if err := tx.Model(&domain.MessageModel{}).
				Where("id = ?", models[i].ID).
				Updates(updates).Error; err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldRoomID, roomID).Str(log.FieldUserID, userID).Msg("failed to add receipt")
		return 0, err
	}
	return changed, nil
}

// SoftDelete hides the message for userID. Already hidden is a no-op.
func (r *GormMessageRepository) SoftDelete(ctx context.Context, messageID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.MessageModel
		if err := tx.First(&model, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if !model.DeletedFor.Add(userID) {
			return nil
		}
		return tx.Model(&domain.MessageModel{}).
			Where("id = ?", messageID).
			Update("deleted_for", model.DeletedFor).Error
	})
}

// HardDelete clears the message globally. A second delete of the same
// message observes it already gone and succeeds without touching it.
func (r *GormMessageRepository) HardDelete(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model domain.MessageModel
		if err := tx.First(&model, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if model.IsDeleted {
			return nil
		}
		return tx.Model(&domain.MessageModel{}).
			Where("id = ?", messageID).
			Updates(map[string]interface{}{
				"cipher_text": "",
				"iv":          "",
				"auth_tag":    "",
				"media":       nil,
				"is_deleted":  true,
			}).Error
	})
}

// SaveEdit replaces the encrypted envelope and flags the message edited.
func (r *GormMessageRepository) SaveEdit(ctx context.Context, messageID, cipherText, iv, authTag string) error {
	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("id = ? AND is_deleted = ?", messageID, false).
		Updates(map[string]interface{}{
			"cipher_text": cipherText,
			"iv":          iv,
			"auth_tag":    authTag,
			"edited":      true,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func toDomainMessages(models []domain.MessageModel) []domain.Message {
	out := make([]domain.Message, len(models))
	for i, model := range models {
		out[i] = *model.ToDomain()
	}
	return out
}
