// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Thread model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a thread is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Creating a second open thread for the same (guild, user) pair returns
//     ErrDuplicate.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate is returned when an insert violates a unique index.
var ErrDuplicate = errors.New("duplicate record")

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// CreateThread inserts an open thread with a zero reply counter.
func CreateThread(ctx context.Context, db *gorm.DB, guildID, userID, channelID string) (*domain.Thread, error) {
	t := &domain.Thread{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: channelID,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return t, nil
}

// GetThread fetches a thread by primary key.
func GetThread(ctx context.Context, db *gorm.DB, threadID uint) (*domain.Thread, error) {
	var t domain.Thread
	if err := db.WithContext(ctx).First(&t, "thread_id = ?", threadID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindOpenThread returns the open thread for (guildID, userID), or ErrNotFound.
func FindOpenThread(ctx context.Context, db *gorm.DB, guildID, userID string) (*domain.Thread, error) {
	var t domain.Thread
	err := db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ? AND closed_by_id IS NULL", guildID, userID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListOpenThreadsByUser returns the user's open threads across all guilds,
// oldest first.
func ListOpenThreadsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Thread, error) {
	var out []domain.Thread
	err := db.WithContext(ctx).
		Where("user_id = ? AND closed_by_id IS NULL", userID).
		Order("thread_id ASC").
		Find(&out).Error
	return out, err
}

// FindOpenThreadByChannel resolves the open thread bound to a host channel.
func FindOpenThreadByChannel(ctx context.Context, db *gorm.DB, channelID string) (*domain.Thread, error) {
	var t domain.Thread
	err := db.WithContext(ctx).
		Where("channel_id = ? AND closed_by_id IS NULL", channelID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// IncrementCounter atomically bumps the thread's reply counter and returns
// the new value. The update and the read share one transaction so concurrent
// callers each observe their own increment.
func IncrementCounter(ctx context.Context, db *gorm.DB, threadID uint) (int, error) {
	var next int
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Thread{}).
			Where("thread_id = ?", threadID).
			UpdateColumn("last_local_thread_message_id", gorm.Expr("last_local_thread_message_id + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var row struct {
			LastLocalThreadMessageID int
		}
		if err := tx.Model(&domain.Thread{}).
			Select("last_local_thread_message_id").
			Where("thread_id = ?", threadID).
			Take(&row).Error; err != nil {
			return err
		}
		next = row.LastLocalThreadMessageID
		return nil
	})
	return next, err
}

// CloseThread marks an open thread closed by closedByID. Closing an already
// closed or missing thread returns ErrNotFound.
func CloseThread(ctx context.Context, db *gorm.DB, threadID uint, closedByID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("thread_id = ? AND closed_by_id IS NULL", threadID).
		Update("closed_by_id", closedByID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListOpenThreads returns every open thread, oldest first.
func ListOpenThreads(ctx context.Context, db *gorm.DB) ([]domain.Thread, error) {
	var out []domain.Thread
	err := db.WithContext(ctx).
		Where("closed_by_id IS NULL").
		Order("thread_id ASC").
		Find(&out).Error
	return out, err
}

// CountOpenThreads returns the number of open threads in a guild.
func CountOpenThreads(ctx context.Context, db *gorm.DB, guildID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("guild_id = ? AND closed_by_id IS NULL", guildID).
		Count(&total).Error
	return total, err
}

// ListOpenThreadsPage returns a page of a guild's open threads, newest first.
// The caller computes offset and limit.
func ListOpenThreadsPage(ctx context.Context, db *gorm.DB, guildID string, offset, limit int) ([]domain.Thread, error) {
	var out []domain.Thread
	err := db.WithContext(ctx).
		Where("guild_id = ? AND closed_by_id IS NULL", guildID).
		Order("thread_id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
