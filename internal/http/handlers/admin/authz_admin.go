package admin

import (
	"strings"

	"github.com/portfolio-next/internal/authz"
	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AuthzPolicyRequest 策略授予/撤销请求
type AuthzPolicyRequest struct {
	Subject string `json:"subject" binding:"required"`
	Object  string `json:"object" binding:"required"`
	Action  string `json:"action" binding:"required"`
}

var authzErrorRules = []handlershared.MappedError{
	{Target: authz.ErrInvalidPolicy, Code: response.CodeBadRequest, Key: "error.authz_policy_invalid"},
	{Target: authz.ErrBuiltinPolicy, Code: response.CodeConflict, Key: "error.authz_builtin_policy"},
}

func respondAuthzError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, authzErrorRules, response.CodeUnavailable, "error.authz_unavailable")
}

// GetAuthzRoles 角色列表
func (h *Handler) GetAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondAuthzError(c, err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzPolicies 主体的直接策略，subject 可为角色名或 user:<id>
func (h *Handler) GetAuthzPolicies(c *gin.Context) {
	policies, err := h.AuthzService.GetPolicies(strings.TrimSpace(c.Query("subject")))
	if err != nil {
		respondAuthzError(c, err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req AuthzPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.GrantPolicy(req.Subject, req.Object, req.Action); err != nil {
		respondAuthzError(c, err)
		return
	}
	h.logPolicyChange(c, "grant", req)
	subject, _ := authz.NormalizeSubject(req.Subject)
	response.Success(c, authz.Policy{Subject: subject, Object: authz.NormalizeObject(req.Object), Action: authz.NormalizeAction(req.Action)})
}

// RevokeAuthzPolicy 撤销策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	var req AuthzPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.RevokePolicy(req.Subject, req.Object, req.Action); err != nil {
		respondAuthzError(c, err)
		return
	}
	h.logPolicyChange(c, "revoke", req)
	response.Success(c, nil)
}

func (h *Handler) logPolicyChange(c *gin.Context, action string, req AuthzPolicyRequest) {
	actorID := ""
	if actor := handlershared.ActorFromContext(c); actor != nil {
		actorID = actor.ID
	}
	requestLog(c).Infow("admin_authz_policy_changed",
		"action", action,
		"subject", req.Subject,
		"object", req.Object,
		"method", req.Action,
		"actor_id", actorID,
	)
}
