// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ThreadMessage model.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/domain"
)

// CreateThreadMessage inserts a relayed message row.
func CreateThreadMessage(ctx context.Context, db *gorm.DB, m *domain.ThreadMessage) error {
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetThreadMessageByLocalID fetches a staff reply by its reply id.
func GetThreadMessageByLocalID(ctx context.Context, db *gorm.DB, threadID uint, localID int) (*domain.ThreadMessage, error) {
	var m domain.ThreadMessage
	err := db.WithContext(ctx).
		Where("thread_id = ? AND local_thread_message_id = ?", threadID, localID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListThreadMessages returns a thread's messages in insertion order.
func ListThreadMessages(ctx context.Context, db *gorm.DB, threadID uint) ([]domain.ThreadMessage, error) {
	var out []domain.ThreadMessage
	err := db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// UpdateThreadMessageIDs back-fills the side message ids. Empty values leave
// the stored id untouched.
func UpdateThreadMessageIDs(ctx context.Context, db *gorm.DB, id uint, userMessageID, guildMessageID string) error {
	updates := map[string]any{}
	if userMessageID != "" {
		updates["user_message_id"] = userMessageID
	}
	if guildMessageID != "" {
		updates["guild_message_id"] = guildMessageID
	}
	if len(updates) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.ThreadMessage{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
