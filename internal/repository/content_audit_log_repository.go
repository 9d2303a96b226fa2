package repository

import (
	"github.com/portfolio-next/internal/models"

	"gorm.io/gorm"
)

// ContentAuditLogRepository 内容审计日志数据访问接口
type ContentAuditLogRepository interface {
	Create(log *models.ContentAuditLog) error
	ListAdmin(filter ContentAuditLogListFilter) ([]models.ContentAuditLog, int64, error)
}

// GormContentAuditLogRepository GORM 实现
type GormContentAuditLogRepository struct {
	db *gorm.DB
}

// NewContentAuditLogRepository 创建内容审计日志仓库
func NewContentAuditLogRepository(db *gorm.DB) *GormContentAuditLogRepository {
	return &GormContentAuditLogRepository{db: db}
}

// Create 写入审计日志
func (r *GormContentAuditLogRepository) Create(log *models.ContentAuditLog) error {
	if log == nil {
		return nil
	}
	return translateError(r.db.Create(log).Error)
}

// ListAdmin 管理端查询审计日志
func (r *GormContentAuditLogRepository) ListAdmin(filter ContentAuditLogListFilter) ([]models.ContentAuditLog, int64, error) {
	query := r.db.Model(&models.ContentAuditLog{})
	if filter.ActorID != "" {
		query = query.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	logs := make([]models.ContentAuditLog, 0)
	if err := applyPagination(query, filter.Page, filter.PageSize).Order("id DESC").Find(&logs).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return logs, total, nil
}
