//go:build integration
// +build integration

package repository

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.ForumComment{},
		&models.ForumPost{},
		&models.ForumCategory{},
		&models.Comment{},
		&models.BlogPost{},
		&models.UserOAuthIdentity{},
		&models.ContentAuditLog{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresBlogPostLockingAndSearch(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	user := &models.User{Email: "pg@example.com", Role: constants.RoleUser}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	repo := NewBlogPostRepository(db)
	post := &models.BlogPost{
		Title:    "Postgres Release Notes",
		Content:  "row level locks",
		Status:   constants.BlogStatusDraft,
		AuthorID: user.ID,
	}
	if err := repo.Create(post); err != nil {
		t.Fatalf("create post failed: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).GetByIDForUpdate(post.ID)
		if err != nil || locked == nil {
			t.Fatalf("lock row failed: %v", err)
		}
		return repo.WithTx(tx).UpdateVersioned(post.ID, locked.Version, map[string]interface{}{"title": "Postgres Release Notes v2"})
	})
	if err != nil {
		t.Fatalf("locked update failed: %v", err)
	}
	if err := repo.UpdateVersioned(post.ID, 1, map[string]interface{}{"title": "stale"}); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected stale version, got %v", err)
	}

	rows, total, err := repo.List(BlogPostListFilter{Page: 1, Search: "release"})
	if err != nil {
		t.Fatalf("post list search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("post list search want 1 got total=%d len=%d", total, len(rows))
	}
}

func TestPostgresForumCommentForeignKey(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	user := &models.User{Email: "pg-forum@example.com", Role: constants.RoleUser}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	repo := NewForumRepository(db)
	err := repo.CreateComment(&models.ForumComment{PostID: models.NewID(), UserID: user.ID, Content: "orphan"})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}
