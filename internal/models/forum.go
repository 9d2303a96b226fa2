package models

import (
	"time"

	"gorm.io/gorm"
)

// ForumCategory 论坛分类
type ForumCategory struct {
	ID          string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string      `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
	Description string      `gorm:"type:varchar(500);default:''" json:"description"`
	SortOrder   int         `gorm:"default:0;index" json:"sort_order"`
	Posts       []ForumPost `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TableName 指定表名
func (ForumCategory) TableName() string {
	return "forum_categories"
}

// BeforeCreate 生成主键
func (c *ForumCategory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ForumPost 论坛主题
// 删除为硬删除，且先删除其下全部回复。
type ForumPost struct {
	ID         string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CategoryID string         `gorm:"type:varchar(36);index;not null" json:"category_id"`
	UserID     string         `gorm:"type:varchar(36);index;not null" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Comments   []ForumComment `gorm:"foreignKey:PostID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (ForumPost) TableName() string {
	return "forum_posts"
}

// BeforeCreate 生成主键
func (p *ForumPost) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ForumComment 论坛回复
type ForumComment struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID    string    `gorm:"type:varchar(36);index;not null" json:"post_id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ForumComment) TableName() string {
	return "forum_comments"
}

// BeforeCreate 生成主键
func (c *ForumComment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
