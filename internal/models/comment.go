package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment 通用评论（挂载在博客/案例上）
// 删除为软删除：内容替换为占位文本，行保留。
type Comment struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ResourceType string     `gorm:"type:varchar(20);not null;index:idx_comment_resource" json:"resource_type"`
	ResourceID   string     `gorm:"type:varchar(64);not null;index:idx_comment_resource" json:"resource_id"`
	UserID       string     `gorm:"type:varchar(36);index;not null" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	Content      string     `gorm:"type:text;not null" json:"content"`
	TombstonedAt *time.Time `gorm:"index" json:"tombstoned_at,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}

// BeforeCreate 生成主键
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// IsTombstoned 是否已软删除
func (c *Comment) IsTombstoned() bool {
	return c != nil && c.TombstonedAt != nil
}
