package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"

	"gorm.io/gorm"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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

func createRepositoryTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Role: constants.RoleUser}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func createRepositoryTestPost(t *testing.T, repo *GormBlogPostRepository, authorID, title string) *models.BlogPost {
	t.Helper()
	post := &models.BlogPost{
		Title:    title,
		Content:  "body of " + title,
		Status:   constants.BlogStatusDraft,
		AuthorID: authorID,
	}
	if err := repo.Create(post); err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	return post
}

func TestBlogPostUpdateVersionedBumpsVersion(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewBlogPostRepository(db)
	author := createRepositoryTestUser(t, db, "author@example.com")
	post := createRepositoryTestPost(t, repo, author.ID, "First")
	if post.ID == "" || post.Version != 1 {
		t.Fatalf("expected generated id and version 1, got id=%q version=%d", post.ID, post.Version)
	}

	if err := repo.UpdateVersioned(post.ID, 1, map[string]interface{}{"title": "Renamed"}); err != nil {
		t.Fatalf("versioned update failed: %v", err)
	}
	reloaded, err := repo.GetByID(post.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Title != "Renamed" || reloaded.Version != 2 {
		t.Fatalf("unexpected row after update: title=%s version=%d", reloaded.Title, reloaded.Version)
	}
	if reloaded.Author == nil || reloaded.Author.Email != "author@example.com" {
		t.Fatalf("expected author preload")
	}
}

func TestBlogPostUpdateVersionedDetectsStaleAndMissing(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewBlogPostRepository(db)
	author := createRepositoryTestUser(t, db, "author@example.com")
	post := createRepositoryTestPost(t, repo, author.ID, "First")

	if err := repo.UpdateVersioned(post.ID, 7, map[string]interface{}{"title": "x"}); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected stale version, got %v", err)
	}
	if err := repo.UpdateVersioned("missing", 1, map[string]interface{}{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBlogPostDeleteAndGetMissing(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewBlogPostRepository(db)
	author := createRepositoryTestUser(t, db, "author@example.com")
	post := createRepositoryTestPost(t, repo, author.ID, "Gone")

	if err := repo.Delete(post.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err := repo.GetByID(post.ID)
	if err != nil || got != nil {
		t.Fatalf("expected nil after delete, got %+v err=%v", got, err)
	}
	if err := repo.Delete(post.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestBlogPostCreateRejectsUnknownAuthor(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewBlogPostRepository(db)
	err := repo.Create(&models.BlogPost{
		Title:    "Orphan",
		Content:  "body",
		Status:   constants.BlogStatusDraft,
		AuthorID: "no-such-user",
	})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestBlogPostListFilters(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewBlogPostRepository(db)
	author := createRepositoryTestUser(t, db, "author@example.com")
	other := createRepositoryTestUser(t, db, "other@example.com")

	createRepositoryTestPost(t, repo, author.ID, "Draft one")
	reviewed := createRepositoryTestPost(t, repo, author.ID, "Needs review")
	now := time.Now()
	if err := repo.UpdateVersioned(reviewed.ID, 1, map[string]interface{}{"review_requested_at": now}); err != nil {
		t.Fatalf("request review update failed: %v", err)
	}
	published := createRepositoryTestPost(t, repo, other.ID, "Golang tips 100%")
	if err := repo.UpdateVersioned(published.ID, 1, map[string]interface{}{
		"status":       constants.BlogStatusPublished,
		"published_at": now,
	}); err != nil {
		t.Fatalf("publish update failed: %v", err)
	}

	rows, total, err := repo.List(BlogPostListFilter{Status: constants.BlogStatusPublished, Page: 1, PageSize: 10, WithAuthor: true})
	if err != nil || total != 1 || len(rows) != 1 || rows[0].ID != published.ID {
		t.Fatalf("published filter mismatch: total=%d err=%v", total, err)
	}
	if rows[0].Author == nil {
		t.Fatalf("expected author preload in list")
	}

	requested := true
	rows, total, err = repo.List(BlogPostListFilter{ReviewRequested: &requested})
	if err != nil || total != 1 || rows[0].ID != reviewed.ID {
		t.Fatalf("review filter mismatch: total=%d err=%v", total, err)
	}

	rows, total, err = repo.List(BlogPostListFilter{AuthorID: author.ID})
	if err != nil || total != 2 || len(rows) != 2 {
		t.Fatalf("author filter mismatch: total=%d err=%v", total, err)
	}

	rows, total, err = repo.List(BlogPostListFilter{Search: "100%"})
	if err != nil || total != 1 || rows[0].ID != published.ID {
		t.Fatalf("escaped search mismatch: total=%d err=%v", total, err)
	}
}

func TestBlogPostUpdateDerivedKeepsVersion(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewBlogPostRepository(db)
	author := createRepositoryTestUser(t, db, "author@example.com")
	post := createRepositoryTestPost(t, repo, author.ID, "Illustrated")

	if err := repo.UpdateDerived(post.ID, map[string]interface{}{"illustration_url": "/images/blog/fallback-1.svg"}); err != nil {
		t.Fatalf("derived update failed: %v", err)
	}
	reloaded, _ := repo.GetByID(post.ID)
	if reloaded.IllustrationURL != "/images/blog/fallback-1.svg" || reloaded.Version != 1 {
		t.Fatalf("unexpected derived update result: %+v", reloaded)
	}
}
