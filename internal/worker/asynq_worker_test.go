package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/provider"
	"github.com/portfolio-next/internal/queue"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/search"
	"github.com/portfolio-next/internal/service"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type fakeEnricher struct{}

func (fakeEnricher) Format(_ context.Context, raw string) string {
	return "formatted:" + raw
}

func (fakeEnricher) Illustrate(_ context.Context, _ string) string {
	return "/images/blog/fallback-1.svg"
}

type recordingIndex struct {
	upserts []string
	removes []string
}

func (r *recordingIndex) Enabled() bool { return true }

func (r *recordingIndex) Upsert(_ context.Context, doc search.PostDocument) error {
	r.upserts = append(r.upserts, doc.ID)
	return nil
}

func (r *recordingIndex) Remove(_ context.Context, id string) error {
	r.removes = append(r.removes, id)
	return nil
}

func (r *recordingIndex) Search(_ context.Context, _ string, _, _ int) ([]search.Hit, int64, error) {
	return nil, 0, nil
}

func setupWorkerTest(t *testing.T) (*Consumer, *gorm.DB, *recordingIndex) {
	t.Helper()
	dsn := fmt.Sprintf("file:worker_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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

	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	index := &recordingIndex{}
	blogService := service.NewBlogService(
		config.BlogConfig{},
		repository.NewBlogPostRepository(db),
		repository.NewCommentRepository(db),
		nil,
		nil,
		queueClient,
		index,
		fakeEnricher{},
	)
	return NewConsumer(&provider.Container{BlogService: blogService}), db, index
}

func createPublishedPost(t *testing.T, db *gorm.DB) *models.BlogPost {
	t.Helper()
	author := &models.User{Email: "writer@example.com", Role: constants.RoleUser}
	if err := db.Create(author).Error; err != nil {
		t.Fatalf("create author failed: %v", err)
	}
	now := time.Now()
	post := &models.BlogPost{
		Title:       "Shipping small",
		Content:     "Small batches win.",
		Status:      constants.BlogStatusPublished,
		AuthorID:    author.ID,
		PublishedAt: &now,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	return post
}

func newTask(t *testing.T, typename string, payload interface{}) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return asynq.NewTask(typename, body)
}

func TestHandleBlogEnrichStoresDerivedFields(t *testing.T) {
	consumer, db, _ := setupWorkerTest(t)
	post := createPublishedPost(t, db)

	task := newTask(t, queue.TaskBlogEnrich, queue.BlogEnrichPayload{PostID: post.ID, Version: post.Version})
	if err := consumer.handleBlogEnrich(context.Background(), task); err != nil {
		t.Fatalf("handle enrich failed: %v", err)
	}

	var stored models.BlogPost
	if err := db.First(&stored, "id = ?", post.ID).Error; err != nil {
		t.Fatalf("reload post failed: %v", err)
	}
	if stored.FormattedContent != "formatted:Small batches win." {
		t.Fatalf("unexpected formatted content: %q", stored.FormattedContent)
	}
	if stored.IllustrationURL == "" || stored.EnrichedAt == nil {
		t.Fatalf("expected illustration and enriched_at, got %+v", stored)
	}
	if stored.Version != post.Version {
		t.Fatalf("enrichment must not bump version: %d -> %d", post.Version, stored.Version)
	}
}

func TestHandleBlogEnrichSkipsStaleVersion(t *testing.T) {
	consumer, db, _ := setupWorkerTest(t)
	post := createPublishedPost(t, db)

	task := newTask(t, queue.TaskBlogEnrich, queue.BlogEnrichPayload{PostID: post.ID, Version: post.Version + 1})
	if err := consumer.handleBlogEnrich(context.Background(), task); err != nil {
		t.Fatalf("stale task must be dropped silently: %v", err)
	}
	var stored models.BlogPost
	if err := db.First(&stored, "id = ?", post.ID).Error; err != nil {
		t.Fatalf("reload post failed: %v", err)
	}
	if stored.FormattedContent != "" || stored.EnrichedAt != nil {
		t.Fatalf("stale task must not write derived fields")
	}
}

func TestHandleBlogEnrichPayloadValidation(t *testing.T) {
	consumer, _, _ := setupWorkerTest(t)
	ctx := context.Background()

	if err := consumer.handleBlogEnrich(ctx, asynq.NewTask(queue.TaskBlogEnrich, []byte("{"))); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	if err := consumer.handleBlogEnrich(ctx, newTask(t, queue.TaskBlogEnrich, queue.BlogEnrichPayload{})); err != nil {
		t.Fatalf("empty post id must be skipped: %v", err)
	}
	if err := consumer.handleBlogEnrich(ctx, newTask(t, queue.TaskBlogEnrich, queue.BlogEnrichPayload{PostID: "missing"})); err != nil {
		t.Fatalf("missing post must be skipped: %v", err)
	}
}

func TestHandleSearchSyncUpsertsAndRemoves(t *testing.T) {
	consumer, db, index := setupWorkerTest(t)
	post := createPublishedPost(t, db)
	ctx := context.Background()

	if err := consumer.handleSearchSync(ctx, newTask(t, queue.TaskSearchSync, queue.SearchSyncPayload{PostID: post.ID})); err != nil {
		t.Fatalf("search upsert failed: %v", err)
	}
	if err := consumer.handleSearchSync(ctx, newTask(t, queue.TaskSearchSync, queue.SearchSyncPayload{PostID: post.ID, Remove: true})); err != nil {
		t.Fatalf("search remove failed: %v", err)
	}
	if len(index.upserts) != 1 || index.upserts[0] != post.ID {
		t.Fatalf("unexpected upserts: %v", index.upserts)
	}
	if len(index.removes) != 1 || index.removes[0] != post.ID {
		t.Fatalf("unexpected removes: %v", index.removes)
	}
}

func TestNilConsumerIsSafe(t *testing.T) {
	var consumer *Consumer
	if err := consumer.handleBlogEnrich(context.Background(), nil); err != nil {
		t.Fatalf("nil consumer must be a no-op: %v", err)
	}
	consumer.Register(asynq.NewServeMux())
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, &Consumer{}); err == nil {
		t.Fatalf("expected error for disabled queue")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("expected error for nil consumer")
	}
}
