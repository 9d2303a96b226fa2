package router

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/portfolio-next/internal/authz"
	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	adminhandlers "github.com/portfolio-next/internal/http/handlers/admin"
	publichandlers "github.com/portfolio-next/internal/http/handlers/public"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pf"
	}
	redisClient := cache.Client()
	signInRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:sign_in", redisPrefix),
		WindowSeconds: cfg.Security.SignInRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.SignInRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.SignInRateLimit.BlockSeconds,
	}
	commentRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:comment", redisPrefix),
		WindowSeconds: cfg.Security.CommentRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CommentRateLimit.MaxRequests,
		BlockSeconds:  cfg.Security.CommentRateLimit.BlockSeconds,
	}
	commentLimit := RateLimitMiddleware(redisClient, commentRule, KeyByActorOrIP)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(LocaleMiddleware())

	// API 路由组
	apiV1 := r.Group("/api/v1")
	apiV1.Use(ActorAuthMiddleware(c.IdentityService))
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/posts", publicHandler.ListPublishedPosts)
			public.GET("/posts/search", publicHandler.SearchPublishedPosts)
			public.GET("/posts/:id", publicHandler.GetPublishedPost)
			public.GET("/comments", publicHandler.ListComments)
			public.GET("/forum/categories", publicHandler.ListForumCategories)
			public.GET("/forum/posts", publicHandler.ListForumPosts)
			public.GET("/forum/posts/:id", publicHandler.GetForumPost)
		}

		// 第三方登录
		auth := apiV1.Group("/auth")
		{
			auth.GET("/oauth/providers", publicHandler.ListOAuthProviders)
			auth.GET("/oauth/:provider/authorize", RateLimitMiddleware(redisClient, signInRule, KeyByIP), publicHandler.OAuthAuthorize)
			auth.GET("/oauth/:provider/callback", RateLimitMiddleware(redisClient, signInRule, KeyByIP), publicHandler.OAuthCallback)
		}

		// 用户接口（需登录）
		actor := apiV1.Group("")
		actor.Use(RequireActorMiddleware())
		{
			actor.GET("/me", publicHandler.GetMe)
			actor.GET("/me/posts", publicHandler.ListMyPosts)

			actor.POST("/blog/posts", publicHandler.CreatePost)
			actor.GET("/blog/posts/:id", publicHandler.GetPost)
			actor.PUT("/blog/posts/:id", publicHandler.UpdatePost)
			actor.POST("/blog/posts/:id/review", publicHandler.RequestPostReview)
			actor.POST("/blog/posts/:id/archive", publicHandler.ArchivePost)
			actor.DELETE("/blog/posts/:id", publicHandler.DeletePost)

			actor.POST("/comments", commentLimit, publicHandler.CreateComment)
			actor.DELETE("/comments/:id", publicHandler.DeleteComment)

			actor.POST("/forum/posts", commentLimit, publicHandler.CreateForumPost)
			actor.DELETE("/forum/posts/:id", publicHandler.DeleteForumPost)
			actor.POST("/forum/posts/:id/comments", commentLimit, publicHandler.CreateForumComment)
			actor.DELETE("/forum/comments/:id", publicHandler.DeleteForumComment)
		}

		// 审核接口
		moderation := apiV1.Group("/moderation")
		moderation.Use(RequireActorMiddleware(), RBACMiddleware(c.AuthzService))
		{
			moderation.GET("/comments", adminHandler.GetModerationComments)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(RequireActorMiddleware(), RBACMiddleware(c.AuthzService))
		{
			// 文章审核
			admin.GET("/blog/posts", adminHandler.GetAdminPosts)
			admin.POST("/blog/posts/:id/publish", adminHandler.PublishPost)
			admin.POST("/blog/posts/:id/unarchive", adminHandler.UnarchivePost)

			// 用户管理
			admin.GET("/users", adminHandler.GetAdminUsers)
			admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)

			// 审计日志
			admin.GET("/audit-logs", adminHandler.GetContentAuditLogs)

			// 权限管理
			admin.GET("/authz/roles", adminHandler.GetAuthzRoles)
			admin.GET("/authz/policies", adminHandler.GetAuthzPolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			admin.GET("/authz/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", healthHandler)

	return r
}

// healthHandler 进程存活即返回 ok，缓存不可达时标记 degraded
func healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	redisStatus := "ok"
	if !cache.Enabled() {
		redisStatus = "disabled"
	} else if err := cache.Ping(ctx); err != nil {
		logger.Warnw("health_redis_ping_failed", "error", err)
		redisStatus = "unreachable"
	}
	status := "ok"
	if redisStatus == "unreachable" {
		status = "degraded"
	}
	c.JSON(200, gin.H{"status": status, "redis": redisStatus})
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildPermissionCatalog 列出受 RBAC 保护的路由，供授予策略时选择
func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") && !strings.HasPrefix(item.Path, "/api/v1/moderation/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
