package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/portfolio-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlogPostRepository 博客文章数据访问接口
type BlogPostRepository interface {
	GetByID(id string) (*models.BlogPost, error)
	GetByIDForUpdate(id string) (*models.BlogPost, error)
	Create(post *models.BlogPost) error
	UpdateVersioned(id string, version uint, updates map[string]interface{}) error
	UpdateDerived(id string, updates map[string]interface{}) error
	Delete(id string) error
	List(filter BlogPostListFilter) ([]models.BlogPost, int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) BlogPostRepository
}

// GormBlogPostRepository GORM 实现
type GormBlogPostRepository struct {
	db *gorm.DB
}

// NewBlogPostRepository 创建文章仓库
func NewBlogPostRepository(db *gorm.DB) *GormBlogPostRepository {
	return &GormBlogPostRepository{db: db}
}

// WithTx 绑定事务
func (r *GormBlogPostRepository) WithTx(tx *gorm.DB) BlogPostRepository {
	if tx == nil {
		return r
	}
	return &GormBlogPostRepository{db: tx}
}

// Transaction 执行事务
func (r *GormBlogPostRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByID 根据 ID 获取文章
func (r *GormBlogPostRepository) GetByID(id string) (*models.BlogPost, error) {
	return r.get(preloadAuthor(r.db, "Author"), id)
}

// GetByIDForUpdate 根据 ID 加锁获取文章
func (r *GormBlogPostRepository) GetByIDForUpdate(id string) (*models.BlogPost, error) {
	return r.get(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBlogPostRepository) get(query *gorm.DB, id string) (*models.BlogPost, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var post models.BlogPost
	if err := query.Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &post, nil
}

// Create 创建文章
func (r *GormBlogPostRepository) Create(post *models.BlogPost) error {
	return translateError(r.db.Create(post).Error)
}

// UpdateVersioned 带版本校验的部分更新，成功后版本号加一
func (r *GormBlogPostRepository) UpdateVersioned(id string, version uint, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = gorm.Expr("version + 1")
	result := r.db.Model(&models.BlogPost{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.BlogPost{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return translateError(err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrStaleVersion
	}
	return nil
}

// UpdateDerived 更新派生缓存字段（排版内容、配图），不改变版本号
func (r *GormBlogPostRepository) UpdateDerived(id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.Model(&models.BlogPost{}).Where("id = ?", id).UpdateColumns(updates)
	return rowsAffectedOrNotFound(result)
}

// Delete 物理删除文章
func (r *GormBlogPostRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.BlogPost{})
	return rowsAffectedOrNotFound(result)
}

// List 文章列表
func (r *GormBlogPostRepository) List(filter BlogPostListFilter) ([]models.BlogPost, int64, error) {
	query := r.db.Model(&models.BlogPost{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if authorID := strings.TrimSpace(filter.AuthorID); authorID != "" {
		query = query.Where("author_id = ?", authorID)
	}
	if filter.ReviewRequested != nil {
		if *filter.ReviewRequested {
			query = query.Where("review_requested_at IS NOT NULL")
		} else {
			query = query.Where("review_requested_at IS NULL")
		}
	}
	if filter.Unenriched {
		query = query.Where("enriched_at IS NULL")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"title", "content"})
		query = query.Where(condition, repeatLikeArgs("%"+escapeLike(search)+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	if filter.WithAuthor {
		query = preloadAuthor(query, "Author")
	}
	posts := make([]models.BlogPost, 0)
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Order("COALESCE(published_at, created_at) DESC").
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return posts, total, nil
}
