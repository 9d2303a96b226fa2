package provider

import (
	"context"
	"time"

	"github.com/portfolio-next/internal/authz"
	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/enrich"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/oauth"
	"github.com/portfolio-next/internal/queue"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/search"
	"github.com/portfolio-next/internal/service"
	"github.com/portfolio-next/internal/storage"
)

const storageInitTimeout = 10 * time.Second

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo            repository.UserRepository
	BlogPostRepo        repository.BlogPostRepository
	CommentRepo         repository.CommentRepository
	ForumRepo           repository.ForumRepository
	ContentAuditLogRepo repository.ContentAuditLogRepository

	// Collaborators
	SearchIndex search.Index
	Enricher    *enrich.Client
	Views       *cache.ViewInvalidator

	// Services
	AuthzService        *authz.Service
	OAuthService        *oauth.Service
	IdentityService     *service.IdentityService
	ContentAuditService *service.ContentAuditService
	BlogService         *service.BlogService
	CommentService      *service.CommentService
	ForumService        *service.ForumService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 队列关闭时返回禁用的客户端，增强改为同步降级
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化外部协作方
	c.initCollaborators()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.BlogPostRepo = repository.NewBlogPostRepository(db)
	c.CommentRepo = repository.NewCommentRepository(db)
	c.ForumRepo = repository.NewForumRepository(db)
	c.ContentAuditLogRepo = repository.NewContentAuditLogRepository(db)
}

func (c *Container) initCollaborators() {
	c.Views = cache.NewViewInvalidator()
	c.Enricher = enrich.NewClient(c.Config.Enrichment)
	if c.Config.Storage.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), storageInitTimeout)
		store, err := storage.NewMinio(ctx, c.Config.Storage)
		cancel()
		if err != nil {
			logger.Warnw("provider_init_storage_failed", "endpoint", c.Config.Storage.Endpoint, "error", err)
		} else {
			c.Enricher.WithImageStore(store)
		}
	}
	if c.Config.Search.Enabled {
		c.SearchIndex = search.NewMeili(c.Config.Search.URL, c.Config.Search.APIKey, c.Config.Search.IndexName)
	} else {
		c.SearchIndex = search.Disabled{}
	}
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.OAuthService = oauth.NewService(c.Config.OAuth, c.Config.Session.SecretKey)
	c.ContentAuditService = service.NewContentAuditService(c.ContentAuditLogRepo)
	c.IdentityService = service.NewIdentityService(c.Config.Session, c.Config.Auth, c.UserRepo, c.ContentAuditService)
	c.BlogService = service.NewBlogService(
		c.Config.Blog,
		c.BlogPostRepo,
		c.CommentRepo,
		c.ContentAuditService,
		c.Views,
		c.QueueClient,
		c.SearchIndex,
		c.Enricher,
	)
	c.CommentService = service.NewCommentService(c.CommentRepo, c.Views)
	c.ForumService = service.NewForumService(c.ForumRepo, c.Views)
}

// Close 释放队列与搜索连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if meili, ok := c.SearchIndex.(*search.Meili); ok {
		meili.Close()
	}
}
