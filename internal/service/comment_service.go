package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/repository"

	"gorm.io/gorm"
)

const commentMaxRunes = 5000

// CommentInput 评论输入
type CommentInput struct {
	ResourceType string
	ResourceID   string
	Content      string
}

// CommentService 通用评论服务（博客、案例）
type CommentService struct {
	repo  repository.CommentRepository
	views *cache.ViewInvalidator
	now   func() time.Time
}

// NewCommentService 创建评论服务
func NewCommentService(repo repository.CommentRepository, views *cache.ViewInvalidator) *CommentService {
	return &CommentService{repo: repo, views: views, now: time.Now}
}

// Create 发表评论
func (s *CommentService) Create(ctx context.Context, actor *permission.Actor, input CommentInput) (*models.Comment, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	resourceType, err := normalizeCommentResource(input.ResourceType)
	if err != nil {
		return nil, err
	}
	resourceID := strings.TrimSpace(input.ResourceID)
	if resourceID == "" {
		return nil, validationError("resource id is required")
	}
	body, err := normalizeThreadContent(input.Content, commentMaxRunes)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       actor.ID,
		Content:      body,
	}
	if err := s.repo.Create(comment); err != nil {
		return nil, persistenceError(err)
	}
	s.invalidate(ctx, comment)
	return comment, nil
}

// List 资源下的评论（含已删除占位，保持楼层）
func (s *CommentService) List(ctx context.Context, resourceType, resourceID string, page, pageSize int) ([]models.Comment, int64, error) {
	normalized, err := normalizeCommentResource(resourceType)
	if err != nil {
		return nil, 0, err
	}
	if strings.TrimSpace(resourceID) == "" {
		return nil, 0, validationError("resource id is required")
	}
	comments, total, err := s.repo.List(repository.CommentListFilter{
		Page:              page,
		PageSize:          pageSize,
		ResourceType:      normalized,
		ResourceID:        resourceID,
		IncludeTombstoned: true,
	})
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return comments, total, nil
}

// ListForModeration 版主查看最新评论
func (s *CommentService) ListForModeration(ctx context.Context, actor *permission.Actor, filter repository.CommentListFilter) ([]models.Comment, int64, error) {
	if actor == nil {
		return nil, 0, ErrUnauthenticated
	}
	if !permission.CanModerateActor(actor) {
		return nil, 0, ErrUnauthorized
	}
	if filter.ResourceType != "" {
		normalized, err := normalizeCommentResource(filter.ResourceType)
		if err != nil {
			return nil, 0, err
		}
		filter.ResourceType = normalized
	}
	comments, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return comments, total, nil
}

// Delete 软删除：内容替换为占位文本，行保留；重复删除幂等
// 加锁读取、守卫与写入在同一事务内完成。
func (s *CommentService) Delete(ctx context.Context, actor *permission.Actor, id string) (DeleteOutcome, error) {
	if actor == nil {
		return "", ErrUnauthenticated
	}
	var (
		target  *models.Comment
		changed bool
	)
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		comment, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return persistenceError(err)
		}
		if comment == nil {
			return ErrNotFound
		}
		if err := authorizeThreadDelete(actor, comment.UserID); err != nil {
			return err
		}
		target = comment
		if comment.IsTombstoned() {
			return nil
		}
		if err := repo.Tombstone(comment.ID, constants.CommentTombstone, s.now()); err != nil {
			return persistenceError(err)
		}
		changed = true
		return nil
	})
	if err != nil {
		return "", err
	}
	if changed {
		s.invalidate(ctx, target)
	}
	return DeleteTombstoned, nil
}

func (s *CommentService) invalidate(ctx context.Context, comment *models.Comment) {
	if s.views == nil || comment == nil {
		return
	}
	s.views.Invalidate(ctx, commentResourcePath(comment.ResourceType, comment.ResourceID))
}

func commentResourcePath(resourceType, resourceID string) string {
	switch resourceType {
	case constants.CommentResourceCaseStudy:
		return constants.PathCaseStudies + "/" + resourceID
	default:
		return constants.PathBlogListing + "/" + resourceID
	}
}

func normalizeCommentResource(resourceType string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(resourceType)) {
	case constants.CommentResourceBlog:
		return constants.CommentResourceBlog, nil
	case constants.CommentResourceCaseStudy:
		return constants.CommentResourceCaseStudy, nil
	default:
		return "", validationError("unknown resource type %q", resourceType)
	}
}

func normalizeThreadContent(raw string, maxRunes int) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", validationError("content is required")
	}
	if utf8.RuneCountInString(body) > maxRunes {
		return "", validationError("content exceeds %d characters", maxRunes)
	}
	return body, nil
}
