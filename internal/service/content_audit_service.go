package service

import (
	"strings"
	"time"

	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/repository"
)

// ContentAuditRecordInput 内容审计记录输入
type ContentAuditRecordInput struct {
	Actor      *permission.Actor
	Action     string
	TargetType string
	TargetID   string
	FromStatus string
	ToStatus   string
	RequestID  string
	Detail     models.JSON
}

// ContentAuditService 内容审计服务
type ContentAuditService struct {
	repo repository.ContentAuditLogRepository
}

// NewContentAuditService 创建内容审计服务
func NewContentAuditService(repo repository.ContentAuditLogRepository) *ContentAuditService {
	return &ContentAuditService{repo: repo}
}

// Record 记录审计日志
func (s *ContentAuditService) Record(input ContentAuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if input.Actor == nil || strings.TrimSpace(input.Actor.ID) == "" {
		return nil
	}
	if strings.TrimSpace(input.Action) == "" {
		return nil
	}

	item := &models.ContentAuditLog{
		ActorID:    input.Actor.ID,
		ActorEmail: strings.TrimSpace(input.Actor.Email),
		Action:     strings.TrimSpace(input.Action),
		TargetType: strings.TrimSpace(input.TargetType),
		TargetID:   strings.TrimSpace(input.TargetID),
		FromStatus: strings.TrimSpace(input.FromStatus),
		ToStatus:   strings.TrimSpace(input.ToStatus),
		RequestID:  strings.TrimSpace(input.RequestID),
		DetailJSON: input.Detail,
		CreatedAt:  time.Now(),
	}
	return s.repo.Create(item)
}

// recordQuietly 写审计失败只记日志，不影响已提交的业务
func (s *ContentAuditService) recordQuietly(input ContentAuditRecordInput) {
	if err := s.Record(input); err != nil {
		logger.Warnw("content_audit_record_failed",
			"action", input.Action,
			"target_type", input.TargetType,
			"target_id", input.TargetID,
			"error", err,
		)
	}
}

// ListForAdmin 管理端查询审计日志
func (s *ContentAuditService) ListForAdmin(actor *permission.Actor, filter repository.ContentAuditLogListFilter) ([]models.ContentAuditLog, int64, error) {
	if actor == nil {
		return nil, 0, ErrUnauthenticated
	}
	if !permission.IsAdmin(actor) {
		return nil, 0, ErrUnauthorized
	}
	if s == nil || s.repo == nil {
		return []models.ContentAuditLog{}, 0, nil
	}
	logs, total, err := s.repo.ListAdmin(filter)
	if err != nil {
		return nil, 0, persistenceError(err)
	}
	return logs, total, nil
}
