package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-modmail/internal/services"
)

// BlockUser godoc
// @ID          blockUser
// @Summary     Block a user
// @Description Forbids the user from opening threads in the guild. Idempotent.
// @Tags        Blocks
// @Param       guildId  path  string  true  "Guild ID"  example(100000000000000001)
// @Param       userId   path  string  true  "User ID"   example(300000000000000001)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guilds/{guildId}/blocks/{userId} [put]
func (h *Handlers) BlockUser(c *gin.Context) {
	err := h.blocks.Block(c.Request.Context(), c.Param("guildId"), c.Param("userId"))
	if h.blockErr(c, err) {
		return
	}
	noContent(c)
}

// UnblockUser godoc
// @ID          unblockUser
// @Summary     Unblock a user
// @Tags        Blocks
// @Param       guildId  path  string  true  "Guild ID"  example(100000000000000001)
// @Param       userId   path  string  true  "User ID"   example(300000000000000001)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Not blocked"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guilds/{guildId}/blocks/{userId} [delete]
func (h *Handlers) UnblockUser(c *gin.Context) {
	err := h.blocks.Unblock(c.Request.Context(), c.Param("guildId"), c.Param("userId"))
	if h.blockErr(c, err) {
		return
	}
	noContent(c)
}

// blockErr writes the response for err and reports whether it did.
func (h *Handlers) blockErr(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, services.ErrInvalidSettings):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrBlockNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user is not blocked")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
	return true
}
