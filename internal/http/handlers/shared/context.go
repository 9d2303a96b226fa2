package shared

import (
	"context"

	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"

	"github.com/gin-gonic/gin"
)

// ActorContextKey 认证中间件写入当前用户的上下文键
const ActorContextKey = "actor"

// ActorFromContext 读取当前用户，匿名请求返回 nil。
func ActorFromContext(c *gin.Context) *permission.Actor {
	if c == nil {
		return nil
	}
	value, exists := c.Get(ActorContextKey)
	if !exists {
		return nil
	}
	actor, ok := value.(*permission.Actor)
	if !ok {
		return nil
	}
	return actor
}

// RequireActor 读取当前用户，缺失时直接返回 401。
func RequireActor(c *gin.Context) (*permission.Actor, bool) {
	actor := ActorFromContext(c)
	if actor == nil {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return nil, false
	}
	return actor, true
}

// BlogTransition 文章生命周期操作的统一签名。
type BlogTransition func(ctx context.Context, actor *permission.Actor, id string) (*models.BlogPost, error)
