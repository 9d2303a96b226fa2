package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAdminPosts 管理端文章列表，review_requested=true 即审核队列
func (h *Handler) GetAdminPosts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.BlogPostListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		AuthorID: strings.TrimSpace(c.Query("author_id")),
		Search:   strings.TrimSpace(c.Query("keyword")),
	}
	if raw := strings.TrimSpace(c.Query("review_requested")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
		filter.ReviewRequested = &value
	}
	posts, total, err := h.BlogService.ListForAdmin(c.Request.Context(), actor, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, posts, handlershared.BuildPagination(page, pageSize, total))
}

// PublishPost 发布（需已申请审核）
func (h *Handler) PublishPost(c *gin.Context) {
	h.runTransition(c, h.BlogService.Publish)
}

// UnarchivePost 取消归档，回到草稿
func (h *Handler) UnarchivePost(c *gin.Context) {
	h.runTransition(c, h.BlogService.Unarchive)
}

func (h *Handler) runTransition(c *gin.Context, transition handlershared.BlogTransition) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	post, err := transition(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_blog_transition", "post_id", post.ID, "status", post.Status, "actor_id", actor.ID)
	response.Success(c, post)
}
