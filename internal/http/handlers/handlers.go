package handlers

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-modmail/internal/domain"
	"github.com/tbourn/go-modmail/internal/services"
)

// SettingsService reads and upserts guild settings.
type SettingsService interface {
	Get(ctx context.Context, guildID string) (*domain.GuildSettings, error)
	Update(ctx context.Context, guildID string, patch services.SettingsPatch) (*domain.GuildSettings, error)
}

// ThreadService lists open threads.
type ThreadService interface {
	ListOpenPage(ctx context.Context, guildID string, page, pageSize int) ([]domain.Thread, int64, error)
}

// BlockService manages user blocks.
type BlockService interface {
	Block(ctx context.Context, guildID, userID string) error
	Unblock(ctx context.Context, guildID, userID string) error
}

// Handlers groups the admin API endpoints.
type Handlers struct {
	settings SettingsService
	threads  ThreadService
	blocks   BlockService
}

// New binds the endpoints to their services.
func New(settings SettingsService, threads ThreadService, blocks BlockService) *Handlers {
	setupBinding()
	return &Handlers{settings: settings, threads: threads, blocks: blocks}
}

var bindingOnce sync.Once

// setupBinding makes gin's JSON binding strict and teaches its validator
// the settings rules. Both are process-wide.
func setupBinding() {
	bindingOnce.Do(func() {
		gin.EnableJsonDecoderDisallowUnknownFields()
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			services.RegisterValidation(v)
		}
	})
}
