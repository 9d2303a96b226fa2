package models

import "time"

// ContentAuditLog 内容审计日志
// 说明：记录文章生命周期流转与角色授予，支持按操作人、对象与时间范围检索。
type ContentAuditLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ActorID    string    `gorm:"type:varchar(36);index;not null" json:"actor_id"`
	ActorEmail string    `gorm:"type:varchar(255);index;not null;default:''" json:"actor_email"`
	Action     string    `gorm:"type:varchar(50);index;not null" json:"action"`
	TargetType string    `gorm:"type:varchar(30);index;not null" json:"target_type"`
	TargetID   string    `gorm:"type:varchar(36);index;not null" json:"target_id"`
	FromStatus string    `gorm:"type:varchar(20);not null;default:''" json:"from_status"`
	ToStatus   string    `gorm:"type:varchar(20);not null;default:''" json:"to_status"`
	RequestID  string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON JSON      `gorm:"type:json" json:"detail"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ContentAuditLog) TableName() string {
	return "content_audit_logs"
}
