package main

import (
	"context"
	"flag"

	"github.com/portfolio-next/internal/authz"
	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/service"
)

func main() {
	var withRoles bool
	flag.BoolVar(&withRoles, "roles", true, "同时初始化预置角色与策略")
	flag.Parse()

	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	driver, dsn, err := cfg.Database.Connection()
	if err != nil {
		stdLog.Fatalf("Invalid database config: %v", err)
	}
	if err := models.InitDB(driver, dsn, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 论坛分类
	forumService := service.NewForumService(repository.NewForumRepository(models.DB), cache.NewViewInvalidator())
	categories, err := forumService.SeedCategories(context.Background())
	if err != nil {
		stdLog.Fatalf("Failed to seed forum categories: %v", err)
	}
	for _, category := range categories {
		stdLog.Printf("Forum category ready: %s (%s)", category.Name, category.ID)
	}

	// 预置角色
	if withRoles {
		authzService, err := authz.NewService(models.DB)
		if err != nil {
			stdLog.Fatalf("Failed to init authz: %v", err)
		}
		if err := authzService.BootstrapBuiltinRoles(); err != nil {
			stdLog.Fatalf("Failed to bootstrap roles: %v", err)
		}
		roles, err := authzService.ListRoles()
		if err != nil {
			stdLog.Fatalf("Failed to list roles: %v", err)
		}
		stdLog.Printf("Roles ready: %v", roles)
	}

	stdLog.Println("Seed completed")
}
