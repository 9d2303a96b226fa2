package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/portfolio-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository 通用评论数据访问接口
type CommentRepository interface {
	GetByID(id string) (*models.Comment, error)
	GetByIDForUpdate(id string) (*models.Comment, error)
	Create(comment *models.Comment) error
	Tombstone(id, marker string, at time.Time) error
	DeleteByResource(resourceType, resourceID string) (int64, error)
	List(filter CommentListFilter) ([]models.Comment, int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommentRepository
}

// GormCommentRepository GORM 实现
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommentRepository) WithTx(tx *gorm.DB) CommentRepository {
	if tx == nil {
		return r
	}
	return &GormCommentRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommentRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByID 根据 ID 获取评论
func (r *GormCommentRepository) GetByID(id string) (*models.Comment, error) {
	return r.get(r.db, id)
}

// GetByIDForUpdate 根据 ID 加锁获取评论
func (r *GormCommentRepository) GetByIDForUpdate(id string) (*models.Comment, error) {
	return r.get(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCommentRepository) get(query *gorm.DB, id string) (*models.Comment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var comment models.Comment
	if err := query.Where("id = ?", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &comment, nil
}

// Create 创建评论
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return translateError(r.db.Create(comment).Error)
}

// Tombstone 软删除：替换内容并标记时间，保留行
func (r *GormCommentRepository) Tombstone(id, marker string, at time.Time) error {
	result := r.db.Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":       marker,
		"tombstoned_at": at,
	})
	return rowsAffectedOrNotFound(result)
}

// DeleteByResource 删除资源下的全部评论（资源被物理删除时调用）
func (r *GormCommentRepository) DeleteByResource(resourceType, resourceID string) (int64, error) {
	result := r.db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).Delete(&models.Comment{})
	if result.Error != nil {
		return 0, translateError(result.Error)
	}
	return result.RowsAffected, nil
}

// List 评论列表（按创建时间正序，保持楼层位置稳定）
func (r *GormCommentRepository) List(filter CommentListFilter) ([]models.Comment, int64, error) {
	query := r.db.Model(&models.Comment{})
	if resourceType := strings.TrimSpace(filter.ResourceType); resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}
	if resourceID := strings.TrimSpace(filter.ResourceID); resourceID != "" {
		query = query.Where("resource_id = ?", resourceID)
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if !filter.IncludeTombstoned {
		query = query.Where("tombstoned_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	order := "created_at ASC"
	if filter.ResourceID == "" {
		order = "created_at DESC"
	}
	comments := make([]models.Comment, 0)
	if err := applyPagination(preloadAuthor(query, "User"), filter.Page, filter.PageSize).Order(order).Find(&comments).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return comments, total, nil
}
