package repository

import "gorm.io/gorm"

// publicAuthorColumns 关联作者时只取公开字段，邮箱与角色不随内容下发
var publicAuthorColumns = []string{"id", "name", "image"}

func preloadAuthor(query *gorm.DB, association string) *gorm.DB {
	return query.Preload(association, func(db *gorm.DB) *gorm.DB {
		return db.Select(publicAuthorColumns)
	})
}
