package admin

import (
	"strings"

	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetContentAuditLogs 内容审计日志
func (h *Handler) GetContentAuditLogs(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.ParsePagination(c)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	items, total, err := h.ContentAuditService.ListForAdmin(actor, repository.ContentAuditLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		ActorID:     strings.TrimSpace(c.Query("actor_id")),
		TargetType:  strings.TrimSpace(c.Query("target_type")),
		TargetID:    strings.TrimSpace(c.Query("target_id")),
		Action:      strings.TrimSpace(c.Query("action")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}
