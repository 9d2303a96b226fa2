package public

import "github.com/portfolio-next/internal/provider"

// Handler 前台接口处理器入口
// 说明：匿名读接口与登录用户接口共用该处理器，登录态由路由中间件注入。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
