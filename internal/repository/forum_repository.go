package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/portfolio-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForumRepository 论坛数据访问接口
type ForumRepository interface {
	ListCategories() ([]models.ForumCategory, error)
	GetCategoryByID(id string) (*models.ForumCategory, error)
	EnsureCategory(category *models.ForumCategory) error
	GetPostByID(id string) (*models.ForumPost, error)
	GetPostByIDForUpdate(id string) (*models.ForumPost, error)
	CreatePost(post *models.ForumPost) error
	DeletePost(id string) error
	ListPosts(filter ForumPostListFilter) ([]models.ForumPost, int64, error)
	GetCommentByID(id string) (*models.ForumComment, error)
	GetCommentByIDForUpdate(id string) (*models.ForumComment, error)
	CreateComment(comment *models.ForumComment) error
	DeleteComment(id string) error
	DeleteCommentsByPost(postID string) (int64, error)
	ListCommentsByPost(postID string) ([]models.ForumComment, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ForumRepository
}

// GormForumRepository GORM 实现
type GormForumRepository struct {
	db *gorm.DB
}

// NewForumRepository 创建论坛仓库
func NewForumRepository(db *gorm.DB) *GormForumRepository {
	return &GormForumRepository{db: db}
}

// WithTx 绑定事务
func (r *GormForumRepository) WithTx(tx *gorm.DB) ForumRepository {
	if tx == nil {
		return r
	}
	return &GormForumRepository{db: tx}
}

// Transaction 执行事务
func (r *GormForumRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// ListCategories 分类列表
func (r *GormForumRepository) ListCategories() ([]models.ForumCategory, error) {
	categories := make([]models.ForumCategory, 0)
	if err := r.db.Order("sort_order ASC").Order("name ASC").Find(&categories).Error; err != nil {
		return nil, translateError(err)
	}
	return categories, nil
}

// GetCategoryByID 根据 ID 获取分类
func (r *GormForumRepository) GetCategoryByID(id string) (*models.ForumCategory, error) {
	var category models.ForumCategory
	if err := r.db.Where("id = ?", strings.TrimSpace(id)).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &category, nil
}

// EnsureCategory 按名称幂等写入分类，已存在时刷新描述与排序
func (r *GormForumRepository) EnsureCategory(category *models.ForumCategory) error {
	if category == nil {
		return nil
	}
	var existing models.ForumCategory
	err := r.db.Where("name = ?", category.Name).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return translateError(r.db.Create(category).Error)
	}
	if err != nil {
		return translateError(err)
	}
	category.ID = existing.ID
	return translateError(r.db.Model(&existing).Updates(map[string]interface{}{
		"description": category.Description,
		"sort_order":  category.SortOrder,
	}).Error)
}

// GetPostByID 根据 ID 获取主题
func (r *GormForumRepository) GetPostByID(id string) (*models.ForumPost, error) {
	return r.getPost(preloadAuthor(r.db, "User"), id)
}

// GetPostByIDForUpdate 根据 ID 加锁获取主题
func (r *GormForumRepository) GetPostByIDForUpdate(id string) (*models.ForumPost, error) {
	return r.getPost(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormForumRepository) getPost(query *gorm.DB, id string) (*models.ForumPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var post models.ForumPost
	if err := query.Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &post, nil
}

// CreatePost 创建主题
func (r *GormForumRepository) CreatePost(post *models.ForumPost) error {
	return translateError(r.db.Create(post).Error)
}

// DeletePost 物理删除主题
func (r *GormForumRepository) DeletePost(id string) error {
	return rowsAffectedOrNotFound(r.db.Where("id = ?", id).Delete(&models.ForumPost{}))
}

// ListPosts 主题列表
func (r *GormForumRepository) ListPosts(filter ForumPostListFilter) ([]models.ForumPost, int64, error) {
	query := r.db.Model(&models.ForumPost{})
	if categoryID := strings.TrimSpace(filter.CategoryID); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}
	posts := make([]models.ForumPost, 0)
	if err := applyPagination(preloadAuthor(query, "User"), filter.Page, filter.PageSize).Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return posts, total, nil
}

// GetCommentByID 根据 ID 获取回复
func (r *GormForumRepository) GetCommentByID(id string) (*models.ForumComment, error) {
	return r.getComment(r.db, id)
}

// GetCommentByIDForUpdate 根据 ID 加锁获取回复
func (r *GormForumRepository) GetCommentByIDForUpdate(id string) (*models.ForumComment, error) {
	return r.getComment(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormForumRepository) getComment(query *gorm.DB, id string) (*models.ForumComment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var comment models.ForumComment
	if err := query.Where("id = ?", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &comment, nil
}

// CreateComment 创建回复，主题不存在时由外键约束拒绝
func (r *GormForumRepository) CreateComment(comment *models.ForumComment) error {
	return translateError(r.db.Create(comment).Error)
}

// DeleteComment 物理删除回复
func (r *GormForumRepository) DeleteComment(id string) error {
	return rowsAffectedOrNotFound(r.db.Where("id = ?", id).Delete(&models.ForumComment{}))
}

// DeleteCommentsByPost 删除主题下全部回复
func (r *GormForumRepository) DeleteCommentsByPost(postID string) (int64, error) {
	result := r.db.Where("post_id = ?", postID).Delete(&models.ForumComment{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// ListCommentsByPost 主题下的回复（按时间正序）
func (r *GormForumRepository) ListCommentsByPost(postID string) ([]models.ForumComment, error) {
	comments := make([]models.ForumComment, 0)
	if err := preloadAuthor(r.db, "User").Where("post_id = ?", postID).Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, translateError(err)
	}
	return comments, nil
}
