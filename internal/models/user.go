package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（仅 OAuth 登录，无密码）
type User struct {
	ID          string     `gorm:"type:varchar(36);primaryKey" json:"id"`                         // 主键
	Email       string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email,omitempty"` // 邮箱（小写）
	Name        string     `gorm:"type:varchar(255);default:''" json:"name"`                      // 显示名
	Image       string     `gorm:"type:varchar(1024);default:''" json:"image"`                    // 头像
	Role        string     `gorm:"type:varchar(20);index;not null" json:"role,omitempty"`         // 角色 user/moderator/admin
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`                                       // 最后登录时间
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt   time.Time  `json:"updated_at"`                                                    // 更新时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 生成主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// UserOAuthIdentity 第三方登录身份绑定
type UserOAuthIdentity struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Provider   string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_oauth_provider_subject" json:"provider"`
	Subject    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_oauth_provider_subject" json:"subject"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (UserOAuthIdentity) TableName() string {
	return "user_oauth_identities"
}

// BeforeCreate 生成主键
func (i *UserOAuthIdentity) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
