package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"

	"gorm.io/gorm"
)

func TestForumCommentRequiresExistingPost(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewForumRepository(db)
	user := createRepositoryTestUser(t, db, "u@example.com")

	err := repo.CreateComment(&models.ForumComment{PostID: "missing-post", UserID: user.ID, Content: "hi"})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestForumCascadeDeleteInTransaction(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewForumRepository(db)
	user := createRepositoryTestUser(t, db, "u@example.com")
	category := &models.ForumCategory{Name: "System design"}
	if err := repo.EnsureCategory(category); err != nil {
		t.Fatalf("ensure category failed: %v", err)
	}
	post := &models.ForumPost{CategoryID: category.ID, UserID: user.ID, Title: "Queues", Content: "why"}
	if err := repo.CreatePost(post); err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.CreateComment(&models.ForumComment{PostID: post.ID, UserID: user.ID, Content: "reply"}); err != nil {
			t.Fatalf("create comment failed: %v", err)
		}
	}

	err := repo.Transaction(context.Background(), func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		removed, err := txRepo.DeleteCommentsByPost(post.ID)
		if err != nil {
			return err
		}
		if removed != 3 {
			t.Fatalf("expected 3 removed comments, got %d", removed)
		}
		return txRepo.DeletePost(post.ID)
	})
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}
	comments, err := repo.ListCommentsByPost(post.ID)
	if err != nil || len(comments) != 0 {
		t.Fatalf("expected no comments left, got %d err=%v", len(comments), err)
	}
	if got, _ := repo.GetPostByID(post.ID); got != nil {
		t.Fatalf("expected post removed")
	}
}

func TestEnsureCategoryIsIdempotent(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewForumRepository(db)
	first := &models.ForumCategory{Name: "Product strategy", Description: "old"}
	if err := repo.EnsureCategory(first); err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	second := &models.ForumCategory{Name: "Product strategy", Description: "new", SortOrder: 2}
	if err := repo.EnsureCategory(second); err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same id, got %s vs %s", second.ID, first.ID)
	}
	categories, err := repo.ListCategories()
	if err != nil || len(categories) != 1 || categories[0].Description != "new" {
		t.Fatalf("unexpected categories: %+v err=%v", categories, err)
	}
}

func TestCommentTombstoneKeepsRow(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewCommentRepository(db)
	user := createRepositoryTestUser(t, db, "u@example.com")
	comment := &models.Comment{
		ResourceType: constants.CommentResourceBlog,
		ResourceID:   "post-1",
		UserID:       user.ID,
		Content:      "nice post",
	}
	if err := repo.Create(comment); err != nil {
		t.Fatalf("create comment failed: %v", err)
	}
	if err := repo.Tombstone(comment.ID, constants.CommentTombstone, time.Now()); err != nil {
		t.Fatalf("tombstone failed: %v", err)
	}
	got, err := repo.GetByID(comment.ID)
	if err != nil || got == nil {
		t.Fatalf("tombstoned comment should still exist: %v", err)
	}
	if got.Content != constants.CommentTombstone || !got.IsTombstoned() || got.ResourceID != "post-1" {
		t.Fatalf("unexpected tombstoned row: %+v", got)
	}

	rows, total, err := repo.List(CommentListFilter{ResourceType: constants.CommentResourceBlog, ResourceID: "post-1", IncludeTombstoned: true})
	if err != nil || total != 1 || len(rows) != 1 {
		t.Fatalf("expected tombstoned row in thread listing, total=%d err=%v", total, err)
	}
	if err := repo.Tombstone("missing", constants.CommentTombstone, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
