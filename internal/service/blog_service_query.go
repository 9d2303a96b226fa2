package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/content"
	"github.com/portfolio-next/internal/lifecycle"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/search"

	"gorm.io/gorm"
)

// BlogPostView 文章视图，附带当前操作者可执行的操作
type BlogPostView struct {
	models.BlogPost
	AllowedOperations []string `json:"allowed_operations,omitempty"`
}

type publishedPage struct {
	Items []models.BlogPost `json:"items"`
	Total int64             `json:"total"`
}

// GetPublished 公开读取已发布文章
func (s *BlogService) GetPublished(ctx context.Context, id string) (*models.BlogPost, error) {
	post, err := s.repo.GetByID(strings.TrimSpace(id))
	if err != nil {
		return nil, persistenceError(err)
	}
	if post == nil || post.Status != constants.BlogStatusPublished {
		return nil, ErrNotFound
	}
	s.formatInline(ctx, post)
	return post, nil
}

// ListPublished 公开文章列表（视图缓存）
func (s *BlogService) ListPublished(ctx context.Context, page, pageSize int) ([]models.BlogPost, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	var key string
	if s.views != nil {
		key = s.views.ViewKey(ctx, constants.PathBlogListing, page, pageSize)
		var cached publishedPage
		if s.views.GetView(ctx, key, &cached) {
			return cached.Items, cached.Total, nil
		}
	}
	posts, total, err := s.repo.List(repository.BlogPostListFilter{
		Page:       page,
		PageSize:   pageSize,
		Status:     constants.BlogStatusPublished,
		WithAuthor: true,
	})
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	for i := range posts {
		posts[i].Content = ""
		posts[i].FormattedContent = ""
	}
	if s.views != nil {
		s.views.SetView(ctx, key, publishedPage{Items: posts, Total: total}, time.Duration(s.cfg.ListingCacheSeconds)*time.Second)
	}
	return posts, total, nil
}

// ListMine 当前用户自己的文章（全部状态）
func (s *BlogService) ListMine(ctx context.Context, actor *permission.Actor, filter repository.BlogPostListFilter) ([]models.BlogPost, int64, error) {
	if actor == nil {
		return nil, 0, ErrUnauthenticated
	}
	filter.AuthorID = actor.ID
	posts, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return posts, total, nil
}

// ListForAdmin 管理端文章列表，ReviewRequested 过滤即审核队列
func (s *BlogService) ListForAdmin(ctx context.Context, actor *permission.Actor, filter repository.BlogPostListFilter) ([]models.BlogPost, int64, error) {
	if actor == nil {
		return nil, 0, ErrUnauthenticated
	}
	if !permission.IsAdmin(actor) {
		return nil, 0, ErrUnauthorized
	}
	if filter.Status != "" && !lifecycle.Status(filter.Status).Valid() {
		return nil, 0, validationError("unknown status %q", filter.Status)
	}
	filter.WithAuthor = true
	posts, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return posts, total, nil
}

// Get 作者或管理员读取任意状态的文章
func (s *BlogService) Get(ctx context.Context, actor *permission.Actor, id string) (*BlogPostView, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	post, err := s.repo.GetByID(strings.TrimSpace(id))
	if err != nil {
		return nil, persistenceError(err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	subject := subjectFor(actor, post.AuthorID)
	if !subject.Admin && !subject.Owner {
		return nil, ErrUnauthorized
	}
	ops := lifecycle.Operations(lifecycle.Status(post.Status), subject)
	view := &BlogPostView{BlogPost: *post, AllowedOperations: make([]string, 0, len(ops))}
	for _, op := range ops {
		view.AllowedOperations = append(view.AllowedOperations, string(op))
	}
	return view, nil
}

// Search 检索已发布文章，检索服务不可用时回退到数据库模糊匹配
func (s *BlogService) Search(ctx context.Context, query string, page, pageSize int) ([]search.Hit, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, validationError("query is required")
	}
	page, pageSize = normalizePage(page, pageSize)
	if s.index.Enabled() {
		hits, total, err := s.index.Search(ctx, query, pageSize, (page-1)*pageSize)
		if err == nil {
			return hits, total, nil
		}
		logger.Ctx(ctx).Warnw("blog_search_index_failed", "query", query, "error", err)
	}
	posts, total, err := s.repo.List(repository.BlogPostListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   constants.BlogStatusPublished,
		Search:   query,
	})
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	hits := make([]search.Hit, 0, len(posts))
	for _, post := range posts {
		hit := search.Hit{
			ID:              post.ID,
			Title:           post.Title,
			Snippet:         post.Excerpt,
			IllustrationURL: post.IllustrationURL,
		}
		if post.PublishedAt != nil {
			hit.PublishedAt = post.PublishedAt.Unix()
		}
		hits = append(hits, hit)
	}
	return hits, total, nil
}

// formatInline 队列不可用时在读路径上补做排版
func (s *BlogService) formatInline(ctx context.Context, post *models.BlogPost) {
	if post == nil || post.FormattedContent != "" || s.enricher == nil {
		return
	}
	if s.queueClient != nil && s.queueClient.Enabled() {
		return
	}
	formatted := s.enricher.Format(ctx, post.Content)
	if formatted == "" || formatted == post.Content {
		return
	}
	post.FormattedContent = formatted
	if err := s.repo.UpdateDerived(post.ID, map[string]interface{}{"formatted_content": formatted}); err != nil {
		logger.Ctx(ctx).Warnw("blog_format_inline_store_failed", "post_id", post.ID, "error", err)
	}
}

// EnrichPost 生成排版内容与配图（队列消费者调用）
// 版本已变化或文章已不在发布态时跳过。
func (s *BlogService) EnrichPost(ctx context.Context, id string, version uint) error {
	if s.enricher == nil {
		return nil
	}
	post, err := s.repo.GetByID(id)
	if err != nil {
		return persistenceError(err)
	}
	if post == nil || post.Status != constants.BlogStatusPublished {
		logger.Debugw("blog_enrich_skip_unpublished", "post_id", id)
		return nil
	}
	if version != 0 && post.Version != version {
		logger.Debugw("blog_enrich_skip_stale", "post_id", id, "task_version", version, "current_version", post.Version)
		return nil
	}

	formatted := s.enricher.Format(ctx, post.Content)
	illustration := post.IllustrationURL
	if illustration == "" {
		illustration = s.enricher.Illustrate(ctx, post.Title)
	}

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if current == nil || current.Version != post.Version {
			return repository.ErrStaleVersion
		}
		return repo.UpdateDerived(id, map[string]interface{}{
			"formatted_content": formatted,
			"illustration_url":  illustration,
			"enriched_at":       s.now(),
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			logger.Debugw("blog_enrich_discard_stale", "post_id", id)
			return nil
		}
		return persistenceError(err)
	}
	if s.views != nil {
		s.views.Invalidate(ctx, constants.PathBlogListing, constants.PathBlogListing+"/"+id)
	}
	return nil
}

// RequeueUnenriched 为尚未增强的已发布文章补投增强任务，返回补投数量
func (s *BlogService) RequeueUnenriched(ctx context.Context, limit int) (int, error) {
	if s.queueClient == nil || !s.queueClient.Enabled() || s.enricher == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 50
	}
	posts, _, err := s.repo.List(repository.BlogPostListFilter{
		Page:       1,
		PageSize:   limit,
		Status:     constants.BlogStatusPublished,
		Unenriched: true,
	})
	if err != nil {
		return 0, persistenceError(err)
	}
	for i := range posts {
		s.enqueueEnrich(&posts[i])
	}
	return len(posts), nil
}

// SyncSearch 同步检索索引（队列消费者或无队列时直接调用）
func (s *BlogService) SyncSearch(ctx context.Context, id string, remove bool) error {
	if !s.index.Enabled() {
		return nil
	}
	if remove {
		return s.index.Remove(ctx, id)
	}
	post, err := s.repo.GetByID(id)
	if err != nil {
		return persistenceError(err)
	}
	if !search.IsPublished(post) {
		return s.index.Remove(ctx, id)
	}
	return s.index.Upsert(ctx, search.DocumentFromPost(post, content.PlainText(post.Content)))
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
