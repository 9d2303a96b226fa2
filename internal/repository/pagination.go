package repository

import "gorm.io/gorm"

// MaxPageSize 单页上限，防止列表接口一次拉取整表
const MaxPageSize = 100

// applyPagination 分页；pageSize<=0 表示不分页（内部批量任务使用）
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
