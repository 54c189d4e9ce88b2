// Package services – BlockService
//
// Blocks are written by guild administrators through the HTTP API and read
// by the preflight gate.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-modmail/internal/repo"
)

// ErrBlockNotFound is returned when removing a block that does not exist.
var ErrBlockNotFound = errors.New("block not found")

// BlockService manages per-guild user blocks.
type BlockService struct {
	DB *gorm.DB
}

func validPair(guildID, userID string) error {
	if !IsSnowflake(guildID) {
		return &FieldError{Field: "guildId", Reason: "must be a snowflake id"}
	}
	if !IsSnowflake(userID) {
		return &FieldError{Field: "userId", Reason: "must be a snowflake id"}
	}
	return nil
}

// Block forbids userID from opening threads in guildID. Idempotent.
func (s *BlockService) Block(ctx context.Context, guildID, userID string) error {
	if err := validPair(guildID, userID); err != nil {
		return err
	}
	return repo.CreateBlock(ctx, s.DB, guildID, userID)
}

// Unblock lifts a block, or returns ErrBlockNotFound.
func (s *BlockService) Unblock(ctx context.Context, guildID, userID string) error {
	if err := validPair(guildID, userID); err != nil {
		return err
	}
	if err := repo.DeleteBlock(ctx, s.DB, guildID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBlockNotFound
		}
		return err
	}
	return nil
}

// IsBlocked reports whether userID is blocked in guildID.
func (s *BlockService) IsBlocked(ctx context.Context, guildID, userID string) (bool, error) {
	return repo.IsBlocked(ctx, s.DB, guildID, userID)
}
