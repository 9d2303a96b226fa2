package models

import (
	"time"

	"gorm.io/gorm"
)

// BlogPost 博客文章表
// Status 只能经由生命周期操作变更；Version 为乐观锁版本号。
type BlogPost struct {
	ID                string     `gorm:"type:varchar(36);primaryKey" json:"id"`                 // 主键
	Title             string     `gorm:"type:varchar(255);not null" json:"title"`               // 标题
	Content           string     `gorm:"type:text;not null" json:"content"`                     // Markdown 原文
	Excerpt           string     `gorm:"type:varchar(1024);default:''" json:"excerpt"`          // 纯文本摘要
	FormattedContent  string     `gorm:"type:text" json:"formatted_content,omitempty"`          // 排版后的内容（派生缓存）
	IllustrationURL   string     `gorm:"type:varchar(1024);default:''" json:"illustration_url"` // 配图（派生缓存）
	Status            string     `gorm:"type:varchar(20);index;not null" json:"status"`         // draft/published/archived
	AuthorID          string     `gorm:"type:varchar(36);index;not null" json:"author_id"`      // 作者（创建后不可变）
	Author            *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author,omitempty"`
	ReviewRequestedAt *time.Time `gorm:"index" json:"review_requested_at"`  // 申请审核时间（仅草稿态）
	PublishedAt       *time.Time `gorm:"index" json:"published_at"`         // 最近发布时间
	EnrichedAt        *time.Time `json:"enriched_at,omitempty"`             // 增强完成时间
	Version           uint       `gorm:"not null;default:1" json:"version"` // 乐观锁版本
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                        // 更新时间
}

// TableName 指定表名
func (BlogPost) TableName() string {
	return "blog_posts"
}

// BeforeCreate 生成主键
func (p *BlogPost) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}
