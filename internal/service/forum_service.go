package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/repository"

	"gorm.io/gorm"
)

const (
	forumTitleMaxRunes   = 255
	forumContentMaxRunes = 20000
	forumCommentMaxRunes = 5000
)

// ForumPostInput 主题输入
type ForumPostInput struct {
	CategoryID string
	Title      string
	Content    string
}

// ForumPostDetail 主题详情（含回复）
type ForumPostDetail struct {
	models.ForumPost
	Comments []models.ForumComment `json:"comments"`
}

// ForumService 论坛服务
type ForumService struct {
	repo  repository.ForumRepository
	views *cache.ViewInvalidator
}

// NewForumService 创建论坛服务
func NewForumService(repo repository.ForumRepository, views *cache.ViewInvalidator) *ForumService {
	return &ForumService{repo: repo, views: views}
}

// DefaultForumCategories 预置分类
func DefaultForumCategories() []models.ForumCategory {
	return []models.ForumCategory{
		{Name: "Product strategy", Description: "Roadmaps, discovery and the trade-offs behind what gets built.", SortOrder: 10},
		{Name: "Engineering leadership", Description: "Hiring, growing and running engineering teams.", SortOrder: 20},
		{Name: "System design", Description: "Architecture deep dives, scaling stories and design reviews.", SortOrder: 30},
	}
}

// SeedCategories 幂等写入预置分类
func (s *ForumService) SeedCategories(ctx context.Context) ([]models.ForumCategory, error) {
	categories := DefaultForumCategories()
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range categories {
			if err := repo.EnsureCategory(&categories[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError(err)
	}
	return categories, nil
}

// ListCategories 分类列表
func (s *ForumService) ListCategories(ctx context.Context) ([]models.ForumCategory, error) {
	categories, err := s.repo.ListCategories()
	if err != nil {
		return nil, persistenceError(err)
	}
	return categories, nil
}

// CreatePost 发表主题，分类不存在由外键约束拒绝
func (s *ForumService) CreatePost(ctx context.Context, actor *permission.Actor, input ForumPostInput) (*models.ForumPost, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	categoryID := strings.TrimSpace(input.CategoryID)
	if categoryID == "" {
		return nil, validationError("category id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if utf8.RuneCountInString(title) > forumTitleMaxRunes {
		return nil, validationError("title exceeds %d characters", forumTitleMaxRunes)
	}
	body, err := normalizeThreadContent(input.Content, forumContentMaxRunes)
	if err != nil {
		return nil, err
	}
	post := &models.ForumPost{
		CategoryID: categoryID,
		UserID:     actor.ID,
		Title:      title,
		Content:    body,
	}
	if err := s.repo.CreatePost(post); err != nil {
		return nil, persistenceError(err)
	}
	s.invalidate(ctx, post.ID)
	return post, nil
}

// ListPosts 主题列表
func (s *ForumService) ListPosts(ctx context.Context, filter repository.ForumPostListFilter) ([]models.ForumPost, int64, error) {
	posts, total, err := s.repo.ListPosts(filter)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return posts, total, nil
}

// GetPost 主题详情
func (s *ForumService) GetPost(ctx context.Context, id string) (*ForumPostDetail, error) {
	post, err := s.repo.GetPostByID(id)
	if err != nil {
		return nil, persistenceError(err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	comments, err := s.repo.ListCommentsByPost(post.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return &ForumPostDetail{ForumPost: *post, Comments: comments}, nil
}

// CreateComment 回复主题，主题不存在由外键约束拒绝
func (s *ForumService) CreateComment(ctx context.Context, actor *permission.Actor, postID, raw string) (*models.ForumComment, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, validationError("post id is required")
	}
	body, err := normalizeThreadContent(raw, forumCommentMaxRunes)
	if err != nil {
		return nil, err
	}
	comment := &models.ForumComment{PostID: postID, UserID: actor.ID, Content: body}
	if err := s.repo.CreateComment(comment); err != nil {
		return nil, persistenceError(err)
	}
	s.invalidate(ctx, postID)
	return comment, nil
}

// DeleteComment 硬删除回复
func (s *ForumService) DeleteComment(ctx context.Context, actor *permission.Actor, id string) (DeleteOutcome, error) {
	if actor == nil {
		return "", ErrUnauthenticated
	}
	var postID string
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		comment, err := repo.GetCommentByIDForUpdate(id)
		if err != nil {
			return persistenceError(err)
		}
		if comment == nil {
			return ErrNotFound
		}
		if err := authorizeThreadDelete(actor, comment.UserID); err != nil {
			return err
		}
		postID = comment.PostID
		return persistenceError(repo.DeleteComment(comment.ID))
	})
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, postID)
	return DeleteRemoved, nil
}

// DeletePost 级联删除：加锁读取、守卫、删回复、删主题，同一事务
func (s *ForumService) DeletePost(ctx context.Context, actor *permission.Actor, id string) (DeleteOutcome, error) {
	if actor == nil {
		return "", ErrUnauthenticated
	}
	var postID string
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		post, err := repo.GetPostByIDForUpdate(id)
		if err != nil {
			return persistenceError(err)
		}
		if post == nil {
			return ErrNotFound
		}
		if err := authorizeThreadDelete(actor, post.UserID); err != nil {
			return err
		}
		if _, err := repo.DeleteCommentsByPost(post.ID); err != nil {
			return persistenceError(err)
		}
		postID = post.ID
		return persistenceError(repo.DeletePost(post.ID))
	})
	if err != nil {
		return "", err
	}
	s.invalidate(ctx, postID)
	return DeleteRemoved, nil
}

// ForumPostDeleter 以 ThreadDeleter 形式暴露主题删除
type ForumPostDeleter struct{ *ForumService }

// Delete 实现 ThreadDeleter
func (d ForumPostDeleter) Delete(ctx context.Context, actor *permission.Actor, id string) (DeleteOutcome, error) {
	return d.DeletePost(ctx, actor, id)
}

// ForumCommentDeleter 以 ThreadDeleter 形式暴露回复删除
type ForumCommentDeleter struct{ *ForumService }

// Delete 实现 ThreadDeleter
func (d ForumCommentDeleter) Delete(ctx context.Context, actor *permission.Actor, id string) (DeleteOutcome, error) {
	return d.DeleteComment(ctx, actor, id)
}

var (
	_ ThreadDeleter = (*CommentService)(nil)
	_ ThreadDeleter = ForumPostDeleter{}
	_ ThreadDeleter = ForumCommentDeleter{}
)

func (s *ForumService) invalidate(ctx context.Context, postID string) {
	if s.views == nil {
		return
	}
	paths := []string{constants.PathForumListing}
	if postID != "" {
		paths = append(paths, constants.PathForumListing+"/"+postID)
	}
	s.views.Invalidate(ctx, paths...)
}
