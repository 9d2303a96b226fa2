package admin

import "github.com/portfolio-next/internal/provider"

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于管理端与审核端 API，路由层已完成 RBAC 门禁。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
