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

// UserRepository 用户数据访问接口
type UserRepository interface {
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByEmailForUpdate(email string) (*models.User, error)
	Create(user *models.User) error
	UpdateFields(id string, updates map[string]interface{}) error
	List(filter UserListFilter) ([]models.User, int64, error)
	GetIdentity(provider, subject string) (*models.UserOAuthIdentity, error)
	UpsertIdentity(identity *models.UserOAuthIdentity) error
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) UserRepository
}

// GormUserRepository GORM 实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) UserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// Transaction 执行事务
func (r *GormUserRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByID 根据 ID 获取用户
func (r *GormUserRepository) GetByID(id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户（邮箱需已归一化为小写）
func (r *GormUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.getByEmail(r.db, email)
}

// GetByEmailForUpdate 根据邮箱加锁查询用户
func (r *GormUserRepository) GetByEmailForUpdate(email string) (*models.User, error) {
	return r.getByEmail(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), email)
}

func (r *GormUserRepository) getByEmail(query *gorm.DB, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var user models.User
	if err := query.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &user, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return translateError(r.db.Create(user).Error)
}

// UpdateFields 按字段更新用户
func (r *GormUserRepository) UpdateFields(id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	return rowsAffectedOrNotFound(result)
}

// List 用户列表
func (r *GormUserRepository) List(filter UserListFilter) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})
	if role := strings.TrimSpace(filter.Role); role != "" {
		query = query.Where("role = ?", role)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"email", "name"})
		query = query.Where(condition, repeatLikeArgs("%"+escapeLike(keyword)+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	users := make([]models.User, 0)
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return users, total, nil
}

// GetIdentity 根据提供方与主体标识获取身份绑定
func (r *GormUserRepository) GetIdentity(provider, subject string) (*models.UserOAuthIdentity, error) {
	var identity models.UserOAuthIdentity
	if err := r.db.Where("provider = ? AND subject = ?", provider, subject).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translateError(err)
	}
	return &identity, nil
}

// UpsertIdentity 写入或刷新身份绑定
func (r *GormUserRepository) UpsertIdentity(identity *models.UserOAuthIdentity) error {
	if identity == nil {
		return nil
	}
	if identity.LastUsedAt.IsZero() {
		identity.LastUsedAt = time.Now()
	}
	existing, err := r.GetIdentity(identity.Provider, identity.Subject)
	if err != nil {
		return err
	}
	if existing == nil {
		return translateError(r.db.Create(identity).Error)
	}
	identity.ID = existing.ID
	result := r.db.Model(&models.UserOAuthIdentity{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"user_id":      identity.UserID,
		"last_used_at": identity.LastUsedAt,
	})
	return rowsAffectedOrNotFound(result)
}
