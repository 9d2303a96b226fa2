package public

import (
	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/i18n"
	"github.com/portfolio-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCommentRequest 发表评论请求
type CreateCommentRequest struct {
	ResourceType string `json:"resource_type" binding:"required"`
	ResourceID   string `json:"resource_id" binding:"required"`
	Content      string `json:"content"`
}

// ListComments 资源下的评论（含已删除占位）
func (h *Handler) ListComments(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	comments, total, err := h.CommentService.List(c.Request.Context(), c.Query("resource_type"), c.Query("resource_id"), page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, comments, handlershared.BuildPagination(page, pageSize, total))
}

// CreateComment 发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	comment, err := h.CommentService.Create(c.Request.Context(), actor, service.CommentInput{
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Content:      req.Content,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, comment)
}

// DeleteComment 删除评论（软删除）
func (h *Handler) DeleteComment(c *gin.Context) {
	h.runThreadDelete(c, h.CommentService)
}

func (h *Handler) runThreadDelete(c *gin.Context, deleter service.ThreadDeleter) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	outcome, err := deleter.Delete(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.deleted"), gin.H{"id": id, "outcome": outcome})
}
