package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/queue"
	"github.com/portfolio-next/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	dialector, err := models.OpenDialector("sqlite", dsn)
	if err != nil {
		t.Fatalf("open dialector failed: %v", err)
	}
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupServiceTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.UseClient(client, "test")
	t.Cleanup(func() {
		cache.UseClient(nil, "")
		_ = client.Close()
	})
	return mr
}

func createServiceTestUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: strings.Split(email, "@")[0], Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func actorOf(user *models.User) *permission.Actor {
	return &permission.Actor{ID: user.ID, Role: user.Role, Email: user.Email, Name: user.Name}
}

type stubEnricher struct {
	formatted    string
	illustration string
	formatCalls  int
}

func (s *stubEnricher) Format(_ context.Context, raw string) string {
	s.formatCalls++
	if s.formatted == "" {
		return raw
	}
	return s.formatted
}

func (s *stubEnricher) Illustrate(_ context.Context, _ string) string {
	return s.illustration
}

type blogFixture struct {
	db       *gorm.DB
	service  *BlogService
	audit    *ContentAuditService
	enricher *stubEnricher
	author   *models.User
	other    *models.User
	admin    *models.User
}

func newBlogFixture(t *testing.T) *blogFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	t.Cleanup(func() { _ = queueClient.Close() })

	audit := NewContentAuditService(repository.NewContentAuditLogRepository(db))
	enricher := &stubEnricher{formatted: "## formatted", illustration: "/images/blog/fallback-2.svg"}
	svc := NewBlogService(
		config.BlogConfig{ListingCacheSeconds: 60, ExcerptLength: 40},
		repository.NewBlogPostRepository(db),
		repository.NewCommentRepository(db),
		audit,
		cache.NewViewInvalidator(),
		queueClient,
		nil,
		enricher,
	)
	return &blogFixture{
		db:       db,
		service:  svc,
		audit:    audit,
		enricher: enricher,
		author:   createServiceTestUser(t, db, "author@example.com", constants.RoleUser),
		other:    createServiceTestUser(t, db, "other@example.com", constants.RoleUser),
		admin:    createServiceTestUser(t, db, "admin@example.com", constants.RoleAdmin),
	}
}

func (f *blogFixture) createDraft(t *testing.T, title string) *models.BlogPost {
	t.Helper()
	post, err := f.service.Create(context.Background(), actorOf(f.author), BlogPostInput{Title: title, Content: "Body of " + title})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	return post
}

func (f *blogFixture) publish(t *testing.T, id string) *models.BlogPost {
	t.Helper()
	ctx := context.Background()
	if _, err := f.service.RequestReview(ctx, actorOf(f.author), id); err != nil {
		t.Fatalf("request review failed: %v", err)
	}
	post, err := f.service.Publish(ctx, actorOf(f.admin), id)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	return post
}
