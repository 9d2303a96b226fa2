package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/portfolio-next/internal/logger"
)

// StaleChannel 视图失效通知频道
const StaleChannel = "view:stale"

// ViewInvalidator 列表/详情视图失效信号
// 每个路径维护一个代数，缓存键携带代数；失效时代数加一并广播路径。
type ViewInvalidator struct{}

// NewViewInvalidator 创建视图失效器
func NewViewInvalidator() *ViewInvalidator {
	return &ViewInvalidator{}
}

// Invalidate 标记路径过期
// 缓存不可用时静默跳过，不影响业务写入。
func (v *ViewInvalidator) Invalidate(ctx context.Context, paths ...string) {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, err := Incr(ctx, generationKey(path)); err != nil {
			logger.Warnw("view_invalidate_incr_failed", "path", path, "error", err)
			continue
		}
		if err := Publish(ctx, StaleChannel, path); err != nil {
			logger.Warnw("view_invalidate_publish_failed", "path", path, "error", err)
		}
	}
}

// Generation 读取路径当前代数
func (v *ViewInvalidator) Generation(ctx context.Context, path string) int64 {
	gen, err := GetInt64(ctx, generationKey(path))
	if err != nil {
		logger.Warnw("view_generation_read_failed", "path", path, "error", err)
		return 0
	}
	return gen
}

// ViewKey 构造携带代数的视图缓存键
func (v *ViewInvalidator) ViewKey(ctx context.Context, path string, parts ...interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "view:%s:g%d", strings.Trim(path, "/"), v.Generation(ctx, path))
	for _, part := range parts {
		fmt.Fprintf(&b, ":%v", part)
	}
	return b.String()
}

// GetView 读取视图缓存
func (v *ViewInvalidator) GetView(ctx context.Context, key string, dest interface{}) bool {
	hit, err := GetJSON(ctx, key, dest)
	if err != nil {
		logger.Warnw("view_cache_read_failed", "key", key, "error", err)
		return false
	}
	return hit
}

// SetView 写入视图缓存
func (v *ViewInvalidator) SetView(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := SetJSON(ctx, key, value, ttl); err != nil {
		logger.Warnw("view_cache_write_failed", "key", key, "error", err)
	}
}

func generationKey(path string) string {
	return "view:gen:" + strings.Trim(strings.TrimSpace(path), "/")
}
