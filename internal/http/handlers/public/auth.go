package public

import (
	"net/http"
	"strings"

	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/i18n"
	"github.com/portfolio-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ListOAuthProviders 已启用的登录方式
func (h *Handler) ListOAuthProviders(c *gin.Context) {
	response.Success(c, gin.H{"providers": h.OAuthService.Providers()})
}

// OAuthAuthorize 跳转第三方授权页
// 带 ?redirect=false 时仅返回授权地址，供前端自行跳转。
func (h *Handler) OAuthAuthorize(c *gin.Context) {
	url, err := h.OAuthService.AuthorizeURL(c.Param("provider"))
	if err != nil {
		respondServiceError(c, err, oauthErrorRules...)
		return
	}
	if strings.EqualFold(c.Query("redirect"), "false") {
		response.Success(c, gin.H{"url": url})
		return
	}
	c.Redirect(http.StatusFound, url)
}

// OAuthCallback 授权回调：换取资料并登录
func (h *Handler) OAuthCallback(c *gin.Context) {
	if errParam := strings.TrimSpace(c.Query("error")); errParam != "" {
		respondError(c, response.CodeUnauthorized, "error.oauth_failed", nil)
		return
	}
	ctx := c.Request.Context()
	profile, err := h.OAuthService.Exchange(ctx, c.Param("provider"), c.Query("code"), c.Query("state"))
	if err != nil {
		respondServiceError(c, err, oauthErrorRules...)
		return
	}
	if strings.TrimSpace(profile.Email) == "" {
		respondError(c, response.CodeBadRequest, "error.oauth_email_missing", nil)
		return
	}
	session, err := h.IdentityService.SignIn(ctx, service.Identity{
		Provider: profile.Provider,
		Subject:  profile.Subject,
		Email:    profile.Email,
		Name:     profile.Name,
		Image:    profile.Image,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.signed_in"), gin.H{
		"user":       session.Actor,
		"token":      session.Token,
		"expires_at": session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetMe 当前用户
func (h *Handler) GetMe(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	response.Success(c, actor)
}
