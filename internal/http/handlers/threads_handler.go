package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-modmail/internal/domain"
	"github.com/tbourn/go-modmail/internal/repo"
	"github.com/tbourn/go-modmail/internal/services"
	"github.com/tbourn/go-modmail/internal/utils"
)

// Pagination carries list metadata.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListThreadsResponse is a page of open threads.
type ListThreadsResponse struct {
	Threads    []domain.Thread `json:"threads"`
	Pagination Pagination      `json:"pagination"`
}

// ListThreads godoc
// @ID          listThreads
// @Summary     List open threads (paginated)
// @Description Returns a page of the guild's open threads, newest first. Supports weak ETag via If-None-Match.
// @Tags        Threads
// @Produce     json
// @Param       guildId        path    string  true   "Guild ID"                    example(100000000000000001)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListThreadsResponse
// @Header      200  {string}  ETag  "Weak ETag for the open-thread set"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad guild id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /guilds/{guildId}/threads [get]
func (h *Handlers) ListThreads(c *gin.Context) {
	ctx := c.Request.Context()
	guildID := c.Param("guildId")
	if !services.IsSnowflake(guildID) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guild id must be a snowflake")
		return
	}
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check, best effort.
	if svc, isSvc := h.threads.(*services.ThreadService); isSvc && svc.DB != nil {
		if count, maxTS, err := repo.OpenThreadsStats(ctx, svc.DB, guildID); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"threads:%s:%d:%d:%d:%d"`, guildID, count, ts, page, pageSize)
			c.Header("ETag", etag)
			if c.GetHeader("If-None-Match") == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.threads.ListOpenPage(ctx, guildID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListThreadsResponse{
		Threads: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
