package public

import (
	"strings"

	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/i18n"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/service"

	"github.com/gin-gonic/gin"
)

// BlogPostRequest 文章创建/编辑请求
type BlogPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Version *uint  `json:"version"`
}

func (r BlogPostRequest) toInput() service.BlogPostInput {
	return service.BlogPostInput{Title: r.Title, Content: r.Content, Version: r.Version}
}

// ListPublishedPosts 已发布文章列表
func (h *Handler) ListPublishedPosts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	posts, total, err := h.BlogService.ListPublished(c.Request.Context(), page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, posts, handlershared.BuildPagination(page, pageSize, total))
}

// SearchPublishedPosts 检索已发布文章
func (h *Handler) SearchPublishedPosts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	hits, total, err := h.BlogService.Search(c.Request.Context(), c.Query("q"), page, pageSize)
	if err != nil {
		respondServiceError(c, err, searchErrorRules...)
		return
	}
	response.SuccessWithPage(c, hits, handlershared.BuildPagination(page, pageSize, total))
}

// GetPublishedPost 已发布文章详情
func (h *Handler) GetPublishedPost(c *gin.Context) {
	post, err := h.BlogService.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, post)
}

// ListMyPosts 当前用户的文章（全部状态）
func (h *Handler) ListMyPosts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)
	posts, total, err := h.BlogService.ListMine(c.Request.Context(), actor, repository.BlogPostListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, posts, handlershared.BuildPagination(page, pageSize, total))
}

// CreatePost 创建草稿
func (h *Handler) CreatePost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req BlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	post, err := h.BlogService.Create(c.Request.Context(), actor, req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, post)
}

// GetPost 作者或管理员查看文章（含可执行操作）
func (h *Handler) GetPost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.BlogService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, view)
}

// UpdatePost 编辑文章
func (h *Handler) UpdatePost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req BlogPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	post, err := h.BlogService.Update(c.Request.Context(), actor, c.Param("id"), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, post)
}

// RequestPostReview 申请审核
func (h *Handler) RequestPostReview(c *gin.Context) {
	h.runTransition(c, h.BlogService.RequestReview)
}

// ArchivePost 归档
func (h *Handler) ArchivePost(c *gin.Context) {
	h.runTransition(c, h.BlogService.Archive)
}

// DeletePost 删除文章
func (h *Handler) DeletePost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.BlogService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.deleted"), gin.H{"id": c.Param("id"), "outcome": service.DeleteRemoved})
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
	response.Success(c, post)
}
