// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for GuildSettings
// and Block.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-modmail/internal/domain"
)

// GetSettings fetches a guild's settings, or ErrNotFound when the guild was
// never configured.
func GetSettings(ctx context.Context, db *gorm.DB, guildID string) (*domain.GuildSettings, error) {
	var s domain.GuildSettings
	if err := db.WithContext(ctx).First(&s, "guild_id = ?", guildID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSettings inserts s, or on conflict overwrites only the listed
// columns of the existing row. It returns the stored row.
func UpsertSettings(ctx context.Context, db *gorm.DB, s *domain.GuildSettings, columns []string) (*domain.GuildSettings, error) {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "guild_id"}}}
	if len(columns) == 0 {
		onConflict.DoNothing = true
	} else {
		cols := append(append([]string{}, columns...), "updated_at")
		onConflict.DoUpdates = clause.AssignmentColumns(cols)
	}

	var out *domain.GuildSettings
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(onConflict).Create(s).Error; err != nil {
			return err
		}
		got, err := GetSettings(ctx, tx, s.GuildID)
		if err != nil {
			return err
		}
		out = got
		return nil
	})
	return out, err
}

// IsBlocked reports whether userID is blocked in guildID.
func IsBlocked(ctx context.Context, db *gorm.DB, guildID, userID string) (bool, error) {
	var b domain.Block
	err := db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateBlock records a block; blocking twice is a no-op.
func CreateBlock(ctx context.Context, db *gorm.DB, guildID, userID string) error {
	b := &domain.Block{GuildID: guildID, UserID: userID, CreatedAt: time.Now().UTC()}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(b).Error
}

// DeleteBlock removes a block. Missing blocks return ErrNotFound.
func DeleteBlock(ctx context.Context, db *gorm.DB, guildID, userID string) error {
	res := db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Delete(&domain.Block{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
