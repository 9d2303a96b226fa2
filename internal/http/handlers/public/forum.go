package public

import (
	"strings"

	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateForumPostRequest 发表主题请求
type CreateForumPostRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// CreateForumCommentRequest 回复主题请求
type CreateForumCommentRequest struct {
	Content string `json:"content"`
}

// ListForumCategories 论坛分类
func (h *Handler) ListForumCategories(c *gin.Context) {
	categories, err := h.ForumService.ListCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, categories)
}

// ListForumPosts 主题列表
func (h *Handler) ListForumPosts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	posts, total, err := h.ForumService.ListPosts(c.Request.Context(), repository.ForumPostListFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: strings.TrimSpace(c.Query("category_id")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, posts, handlershared.BuildPagination(page, pageSize, total))
}

// GetForumPost 主题详情（含回复）
func (h *Handler) GetForumPost(c *gin.Context) {
	detail, err := h.ForumService.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, detail)
}

// CreateForumPost 发表主题
func (h *Handler) CreateForumPost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateForumPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	post, err := h.ForumService.CreatePost(c.Request.Context(), actor, service.ForumPostInput{
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, post)
}

// CreateForumComment 回复主题
func (h *Handler) CreateForumComment(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateForumCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	comment, err := h.ForumService.CreateComment(c.Request.Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, comment)
}

// DeleteForumPost 删除主题（级联删除回复）
func (h *Handler) DeleteForumPost(c *gin.Context) {
	h.runThreadDelete(c, service.ForumPostDeleter{ForumService: h.ForumService})
}

// DeleteForumComment 删除回复
func (h *Handler) DeleteForumComment(c *gin.Context) {
	h.runThreadDelete(c, service.ForumCommentDeleter{ForumService: h.ForumService})
}
