package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// MembershipStatusActive is the only status that grants room access.
const MembershipStatusActive = "active"

// MembershipModel mirrors the group-membership table owned by the
// group service. This service only ever reads it.
type MembershipModel struct {
	ID        uint   `gorm:"primaryKey"`
	GroupID   string `gorm:"type:varchar(36);index:idx_memberships_group_user,priority:1;not null"`
	UserID    string `gorm:"type:varchar(36);index:idx_memberships_group_user,priority:2;not null"`
	Status    string `gorm:"type:varchar(16);not null;default:'active'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MembershipModel) TableName() string {
	return "group_memberships"
}

// GormMembershipRepository answers group-membership checks from the
// shared database.
type GormMembershipRepository struct {
	db *gorm.DB
}

func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// IsActiveMember reports whether userID holds an active membership in
// groupID. Missing rows and inactive statuses both read as false.
func (r *GormMembershipRepository) IsActiveMember(ctx context.Context, userID, groupID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&MembershipModel{}).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, MembershipStatusActive).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}
