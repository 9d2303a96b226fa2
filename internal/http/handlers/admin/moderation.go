package admin

import (
	"strings"

	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetModerationComments 审核端评论列表
func (h *Handler) GetModerationComments(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	comments, total, err := h.CommentService.ListForModeration(c.Request.Context(), actor, repository.CommentListFilter{
		Page:              page,
		PageSize:          pageSize,
		ResourceType:      strings.ToUpper(strings.TrimSpace(c.Query("resource_type"))),
		ResourceID:        strings.TrimSpace(c.Query("resource_id")),
		UserID:            strings.TrimSpace(c.Query("user_id")),
		IncludeTombstoned: c.Query("include_deleted") == "true",
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, comments, handlershared.BuildPagination(page, pageSize, total))
}
