package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-modmail/internal/http/middleware"
	"github.com/tbourn/go-modmail/internal/services"
)

// SettingsPatchDoc documents the PATCH body. Every field is optional;
// nullable fields accept null to clear them.
type SettingsPatchDoc struct {
	ModmailChannelID *string `json:"modmailChannelId" example:"200000000000000001"`
	GreetingMessage  *string `json:"greetingMessage" example:"Hi {{displayName}}, the {{guildName}} team will reply soon."`
	FarewellMessage  *string `json:"farewellMessage" example:"Thread closed. Thanks!"`
	SimpleMode       *bool   `json:"simpleMode" example:"false"`
	AlertRoleID      *string `json:"alertRoleId" example:"600000000000000001"`
}

// UpdateSettings godoc
// @ID          updateSettings
// @Summary     Upsert guild settings
// @Description Validates the patch and creates or updates the guild's settings. Unknown fields are rejected. Templates are 1-1900 characters.
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Param       guildId  path  string                     true  "Guild ID"  example(100000000000000001)
// @Param       body     body  handlers.SettingsPatchDoc  true  "Settings patch"
// @Success     200  {object}  domain.GuildSettings
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid body or settings"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guilds/{guildId}/settings [patch]
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var patch services.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		if err := services.AsFieldError(err); errors.Is(err, services.ErrInvalidSettings) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidSettings, err.Error())
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	out, err := h.settings.Update(c.Request.Context(), c.Param("guildId"), patch)
	switch {
	case errors.Is(err, services.ErrInvalidSettings):
		fail(c, http.StatusBadRequest, ErrCodeInvalidSettings, err.Error())
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	middleware.LoggerFrom(c).Info().Msg("guild settings updated")
	ok(c, http.StatusOK, out)
}

// GetSettings godoc
// @ID          getSettings
// @Summary     Get guild settings
// @Tags        Settings
// @Produce     json
// @Param       guildId  path  string  true  "Guild ID"  example(100000000000000001)
// @Success     200  {object}  domain.GuildSettings
// @Failure     400  {object}  handlers.ErrorResponse  "Bad guild id"
// @Failure     404  {object}  handlers.ErrorResponse  "Guild never configured"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guilds/{guildId}/settings [get]
func (h *Handlers) GetSettings(c *gin.Context) {
	guildID := c.Param("guildId")
	if !services.IsSnowflake(guildID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guild id must be a snowflake")
		return
	}
	s, err := h.settings.Get(c.Request.Context(), guildID)
	switch {
	case errors.Is(err, services.ErrSettingsNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "settings not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, s)
}
