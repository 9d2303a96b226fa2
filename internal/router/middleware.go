package router

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/portfolio-next/internal/authz"
	"github.com/portfolio-next/internal/config"
	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/http/response"
	"github.com/portfolio-next/internal/i18n"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-CSRF-Token",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if actor := handlershared.ActorFromContext(c); actor != nil {
			log = log.With("actor_id", actor.ID)
		}
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// LocaleMiddleware 协商请求语言并写入上下文
func LocaleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(i18n.ContextKey, i18n.ResolveLocale(c))
		c.Next()
	}
}

// ActorTokenResolver 会话令牌解析
type ActorTokenResolver interface {
	Resolve(ctx context.Context, token string) (*permission.Actor, error)
}

// ActorAuthMiddleware 解析可选的 Bearer 令牌
// 未携带令牌时按匿名处理；携带但无效时直接 401。
func ActorAuthMiddleware(resolver ActorTokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c)
			return
		}
		if resolver == nil {
			logger.Errorw("actor_auth_resolver_unavailable")
			abortUnauthorized(c)
			return
		}

		actor, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil || actor == nil {
			if err != nil && !errors.Is(err, service.ErrUnauthenticated) {
				logger.Warnw("actor_auth_resolve_failed", "path", c.Request.URL.Path, "error", err)
			}
			abortUnauthorized(c)
			return
		}
		c.Set(handlershared.ActorContextKey, actor)
		c.Next()
	}
}

// RequireActorMiddleware 要求已登录
func RequireActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if handlershared.ActorFromContext(c) == nil {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

// RouteEnforcer 路由级授权判定
type RouteEnforcer interface {
	EnforceActor(actor *permission.Actor, obj, act string) (bool, error)
}

// RBACMiddleware 管理端/审核端 RBAC 鉴权中间件
func RBACMiddleware(enforcer RouteEnforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := handlershared.ActorFromContext(c)
		if actor == nil {
			abortUnauthorized(c)
			return
		}
		if enforcer == nil {
			logger.Errorw("rbac_service_unavailable")
			response.Error(c, response.CodeUnavailable, "error.authz_unavailable")
			c.Abort()
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := enforcer.EnforceActor(actor, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("rbac_enforce_failed",
				"actor_id", actor.ID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			response.Error(c, response.CodeUnavailable, "error.authz_unavailable")
			c.Abort()
			return
		}
		if !allowed {
			logger.Warnw("rbac_permission_denied",
				"actor_id", actor.ID,
				"role", actor.Role,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	response.Unauthorized(c)
	c.Abort()
}
