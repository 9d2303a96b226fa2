package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/content"
	"github.com/portfolio-next/internal/enrich"
	"github.com/portfolio-next/internal/lifecycle"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/queue"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/search"

	"gorm.io/gorm"
)

const (
	blogTitleMaxRunes   = 255
	blogContentMaxBytes = 200000
	defaultExcerptRunes = 200
)

// BlogEnricher 文章排版与配图协作方
type BlogEnricher interface {
	enrich.Formatter
	enrich.Illustrator
}

// BlogPostInput 文章创建/更新输入
// Version 可选，提供时必须与当前版本一致。
type BlogPostInput struct {
	Title   string
	Content string
	Version *uint
}

// BlogService 博客文章生命周期服务
type BlogService struct {
	cfg         config.BlogConfig
	repo        repository.BlogPostRepository
	commentRepo repository.CommentRepository
	audit       *ContentAuditService
	views       *cache.ViewInvalidator
	queueClient *queue.Client
	index       search.Index
	enricher    BlogEnricher
	now         func() time.Time
}

// NewBlogService 创建博客服务
func NewBlogService(cfg config.BlogConfig, repo repository.BlogPostRepository, commentRepo repository.CommentRepository, audit *ContentAuditService, views *cache.ViewInvalidator, queueClient *queue.Client, index search.Index, enricher BlogEnricher) *BlogService {
	if index == nil {
		index = search.Disabled{}
	}
	return &BlogService{
		cfg:         cfg,
		repo:        repo,
		commentRepo: commentRepo,
		audit:       audit,
		views:       views,
		queueClient: queueClient,
		index:       index,
		enricher:    enricher,
		now:         time.Now,
	}
}

// Create 创建草稿
func (s *BlogService) Create(ctx context.Context, actor *permission.Actor, input BlogPostInput) (*models.BlogPost, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	title, body, err := normalizeBlogInput(input)
	if err != nil {
		return nil, err
	}
	decision, err := lifecycle.Decide(lifecycle.OpCreate, "", subjectFor(actor, ""))
	if err != nil {
		return nil, lifecycleError(err)
	}
	post := &models.BlogPost{
		Title:    title,
		Content:  body,
		Excerpt:  content.Excerpt(body, s.excerptLength()),
		Status:   string(decision.To),
		AuthorID: actor.ID,
	}
	if err := s.repo.Create(post); err != nil {
		return nil, persistenceError(err)
	}
	s.afterCommit(ctx, actor, lifecycle.OpCreate, decision, post)
	return post, nil
}

// Update 修改标题与正文，状态不变
func (s *BlogService) Update(ctx context.Context, actor *permission.Actor, id string, input BlogPostInput) (*models.BlogPost, error) {
	return s.mutate(ctx, actor, id, lifecycle.OpUpdate, input.Version, func(post *models.BlogPost, _ time.Time) (map[string]interface{}, error) {
		// 输入校验放在身份与守卫之后
		title, body, err := normalizeBlogInput(input)
		if err != nil {
			return nil, err
		}
		updates := map[string]interface{}{
			"title":   title,
			"content": body,
			"excerpt": content.Excerpt(body, s.excerptLength()),
		}
		if body != post.Content {
			updates["formatted_content"] = ""
			updates["enriched_at"] = nil
		}
		return updates, nil
	})
}

// RequestReview 作者申请审核
func (s *BlogService) RequestReview(ctx context.Context, actor *permission.Actor, id string) (*models.BlogPost, error) {
	return s.mutate(ctx, actor, id, lifecycle.OpRequestReview, nil, func(_ *models.BlogPost, now time.Time) (map[string]interface{}, error) {
		return map[string]interface{}{"review_requested_at": now}, nil
	})
}

// Publish 管理员发布已申请审核的草稿
func (s *BlogService) Publish(ctx context.Context, actor *permission.Actor, id string) (*models.BlogPost, error) {
	return s.mutate(ctx, actor, id, lifecycle.OpPublish, nil, func(post *models.BlogPost, now time.Time) (map[string]interface{}, error) {
		if post.ReviewRequestedAt == nil {
			return nil, ErrReviewNotRequested
		}
		return map[string]interface{}{
			"published_at":        now,
			"review_requested_at": nil,
		}, nil
	})
}

// Archive 归档
func (s *BlogService) Archive(ctx context.Context, actor *permission.Actor, id string) (*models.BlogPost, error) {
	return s.mutate(ctx, actor, id, lifecycle.OpArchive, nil, func(_ *models.BlogPost, _ time.Time) (map[string]interface{}, error) {
		return map[string]interface{}{"review_requested_at": nil}, nil
	})
}

// Unarchive 管理员取消归档，回到草稿
func (s *BlogService) Unarchive(ctx context.Context, actor *permission.Actor, id string) (*models.BlogPost, error) {
	return s.mutate(ctx, actor, id, lifecycle.OpUnarchive, nil, func(_ *models.BlogPost, _ time.Time) (map[string]interface{}, error) {
		return map[string]interface{}{"review_requested_at": nil}, nil
	})
}

// Delete 物理删除文章及其评论
func (s *BlogService) Delete(ctx context.Context, actor *permission.Actor, id string) error {
	_, err := s.mutate(ctx, actor, id, lifecycle.OpDelete, nil, nil)
	return err
}

type blogUpdateFunc func(post *models.BlogPost, now time.Time) (map[string]interface{}, error)

// mutate 在单个事务内完成 加锁读取 -> 守卫 -> 流转 -> 条件写入
func (s *BlogService) mutate(ctx context.Context, actor *permission.Actor, id string, op lifecycle.Operation, expectedVersion *uint, apply blogUpdateFunc) (*models.BlogPost, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	var (
		decision lifecycle.Decision
		result   *models.BlogPost
	)
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		post, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return persistenceError(err)
		}
		if post == nil {
			return ErrNotFound
		}
		decision, err = lifecycle.Decide(op, lifecycle.Status(post.Status), subjectFor(actor, post.AuthorID))
		if err != nil {
			return lifecycleError(err)
		}
		if expectedVersion != nil && *expectedVersion != post.Version {
			return ErrVersionConflict
		}

		if decision.Removes {
			if _, err := s.commentRepo.WithTx(tx).DeleteByResource(constants.CommentResourceBlog, post.ID); err != nil {
				return persistenceError(err)
			}
			if err := repo.Delete(post.ID); err != nil {
				return persistenceError(err)
			}
			result = post
			return nil
		}

		updates := map[string]interface{}{}
		if apply != nil {
			updates, err = apply(post, s.now())
			if err != nil {
				return err
			}
		}
		updates["status"] = string(decision.To)
		if err := repo.UpdateVersioned(post.ID, post.Version, updates); err != nil {
			return persistenceError(err)
		}
		fresh, err := repo.GetByID(post.ID)
		if err != nil {
			return persistenceError(err)
		}
		if fresh == nil {
			return ErrNotFound
		}
		result = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, actor, op, decision, result)
	if decision.Removes {
		return nil, nil
	}
	return result, nil
}

// afterCommit 提交后的附带动作：审计、视图失效、异步任务，全部尽力而为
func (s *BlogService) afterCommit(ctx context.Context, actor *permission.Actor, op lifecycle.Operation, decision lifecycle.Decision, post *models.BlogPost) {
	if post == nil {
		return
	}
	toStatus := string(decision.To)
	if decision.Removes {
		toStatus = ""
	}
	s.audit.recordQuietly(ContentAuditRecordInput{
		Actor:      actor,
		Action:     string(op),
		TargetType: constants.AuditTargetBlogPost,
		TargetID:   post.ID,
		FromStatus: string(decision.From),
		ToStatus:   toStatus,
		RequestID:  logger.RequestIDFromContext(ctx),
		Detail:     models.JSON{"version": post.Version, "title": post.Title},
	})

	if s.views != nil {
		s.views.Invalidate(ctx, constants.PathBlogListing, constants.PathBlogListing+"/"+post.ID)
	}

	wasPublic := decision.From == lifecycle.StatusPublished
	isPublic := !decision.Removes && decision.To == lifecycle.StatusPublished
	switch {
	case isPublic:
		s.enqueueEnrich(post)
		s.enqueueSearchSync(post.ID, false)
	case wasPublic:
		s.enqueueSearchSync(post.ID, true)
	}
}

func (s *BlogService) enqueueEnrich(post *models.BlogPost) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueBlogEnrich(queue.BlogEnrichPayload{PostID: post.ID, Version: post.Version}); err != nil {
		logger.Warnw("blog_enqueue_enrich_failed", "post_id", post.ID, "version", post.Version, "error", err)
	}
}

func (s *BlogService) enqueueSearchSync(postID string, remove bool) {
	if !s.index.Enabled() {
		return
	}
	if s.queueClient != nil && s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueSearchSync(queue.SearchSyncPayload{PostID: postID, Remove: remove}); err != nil {
			logger.Warnw("blog_enqueue_search_sync_failed", "post_id", postID, "remove", remove, "error", err)
		}
		return
	}
	if err := s.SyncSearch(context.Background(), postID, remove); err != nil {
		logger.Warnw("blog_search_sync_inline_failed", "post_id", postID, "remove", remove, "error", err)
	}
}

func (s *BlogService) excerptLength() int {
	if s.cfg.ExcerptLength > 0 {
		return s.cfg.ExcerptLength
	}
	return defaultExcerptRunes
}

func subjectFor(actor *permission.Actor, ownerID string) lifecycle.Subject {
	if actor == nil {
		return lifecycle.Subject{}
	}
	return lifecycle.Subject{
		Admin: permission.IsAdmin(actor),
		Owner: permission.CanManageOwnContent(actor.ID, ownerID),
	}
}

func normalizeBlogInput(input BlogPostInput) (string, string, error) {
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Content)
	if title == "" {
		return "", "", validationError("title is required")
	}
	if body == "" {
		return "", "", validationError("content is required")
	}
	if utf8.RuneCountInString(title) > blogTitleMaxRunes {
		return "", "", validationError("title exceeds %d characters", blogTitleMaxRunes)
	}
	if len(body) > blogContentMaxBytes {
		return "", "", validationError("content exceeds %d bytes", blogContentMaxBytes)
	}
	return title, body, nil
}
