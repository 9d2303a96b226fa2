package public

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/portfolio-next/internal/cache"
	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/constants"
	handlershared "github.com/portfolio-next/internal/http/handlers/shared"
	"github.com/portfolio-next/internal/i18n"
	"github.com/portfolio-next/internal/models"
	"github.com/portfolio-next/internal/permission"
	"github.com/portfolio-next/internal/provider"
	"github.com/portfolio-next/internal/queue"
	"github.com/portfolio-next/internal/repository"
	"github.com/portfolio-next/internal/search"
	"github.com/portfolio-next/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type passthroughEnricher struct{}

func (passthroughEnricher) Format(_ context.Context, raw string) string { return raw }
func (passthroughEnricher) Illustrate(_ context.Context, _ string) string {
	return "/images/blog/fallback-1.svg"
}

type handlerFixture struct {
	db     *gorm.DB
	engine *gin.Engine
	blog   *service.BlogService
	author *models.User
	admin  *models.User
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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
	t.Cleanup(func() { _ = queueClient.Close() })

	views := cache.NewViewInvalidator()
	audit := service.NewContentAuditService(repository.NewContentAuditLogRepository(db))
	commentRepo := repository.NewCommentRepository(db)
	container := &provider.Container{
		Config:      &config.Config{},
		QueueClient: queueClient,
		SearchIndex: search.Disabled{},
		Views:       views,
		BlogService: service.NewBlogService(
			config.BlogConfig{ExcerptLength: 40},
			repository.NewBlogPostRepository(db),
			commentRepo,
			audit,
			views,
			queueClient,
			search.Disabled{},
			passthroughEnricher{},
		),
		CommentService: service.NewCommentService(commentRepo, views),
	}

	f := &handlerFixture{db: db, blog: container.BlogService}
	f.author = f.createUser(t, "author@example.com", constants.RoleUser)
	f.admin = f.createUser(t, "admin@example.com", constants.RoleAdmin)

	users := map[string]*models.User{"author": f.author, "admin": f.admin}
	h := New(container)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(i18n.ContextKey, i18n.ResolveLocale(c))
		if user, ok := users[c.GetHeader("X-Test-User")]; ok {
			c.Set(handlershared.ActorContextKey, &permission.Actor{ID: user.ID, Role: user.Role, Email: user.Email})
		}
		c.Next()
	})
	r.GET("/public/posts", h.ListPublishedPosts)
	r.GET("/public/posts/:id", h.GetPublishedPost)
	r.GET("/comments", h.ListComments)
	r.POST("/blog/posts", h.CreatePost)
	r.POST("/blog/posts/:id/review", h.RequestPostReview)
	r.DELETE("/blog/posts/:id", h.DeletePost)
	r.POST("/comments", h.CreateComment)
	r.DELETE("/comments/:id", h.DeleteComment)
	f.engine = r
	return f
}

func (f *handlerFixture) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: strings.Split(email, "@")[0], Role: role}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (f *handlerFixture) do(t *testing.T, method, path, user string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return w.Code, resp
}

func TestDraftIsHiddenFromPublicRead(t *testing.T) {
	f := newHandlerFixture(t)

	code, resp := f.do(t, http.MethodPost, "/blog/posts", "author", map[string]string{"title": "Hello", "content": "First draft"})
	if code != http.StatusOK || resp.StatusCode != 0 {
		t.Fatalf("create draft failed: %d %+v", code, resp)
	}
	var post models.BlogPost
	if err := json.Unmarshal(resp.Data, &post); err != nil {
		t.Fatalf("decode post failed: %v", err)
	}
	if post.Status != constants.BlogStatusDraft {
		t.Fatalf("expected draft, got %s", post.Status)
	}

	code, resp = f.do(t, http.MethodGet, "/public/posts/"+post.ID, "", nil)
	if code != http.StatusNotFound || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("draft must not be publicly readable, got %d %+v", code, resp)
	}

	code, resp = f.do(t, http.MethodGet, "/public/posts", "", nil)
	if code != http.StatusOK || strings.Contains(string(resp.Data), post.ID) {
		t.Fatalf("draft must not be listed publicly, got %d %s", code, resp.Data)
	}
}

func TestCreatePostRequiresActor(t *testing.T) {
	f := newHandlerFixture(t)
	code, resp := f.do(t, http.MethodPost, "/blog/posts", "", map[string]string{"title": "x", "content": "y"}, "Accept-Language", "zh-CN")
	if code != http.StatusUnauthorized || resp.Msg != "请先登录" {
		t.Fatalf("expected localized 401, got %d %+v", code, resp)
	}
}

func TestRequestReviewByStrangerIsForbidden(t *testing.T) {
	f := newHandlerFixture(t)
	_, resp := f.do(t, http.MethodPost, "/blog/posts", "admin", map[string]string{"title": "Admin post", "content": "body"})
	var post models.BlogPost
	if err := json.Unmarshal(resp.Data, &post); err != nil {
		t.Fatalf("decode post failed: %v", err)
	}

	code, resp := f.do(t, http.MethodPost, "/blog/posts/"+post.ID+"/review", "author", nil)
	if code != http.StatusForbidden || !strings.Contains(string(resp.Data), `"error":"error.forbidden"`) {
		t.Fatalf("expected 403 with forbidden key, got %d %+v", code, resp)
	}

	code, _ = f.do(t, http.MethodDelete, "/blog/posts/missing", "author", nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing post, got %d", code)
	}
}

func TestCommentSoftDeleteLeavesTombstone(t *testing.T) {
	f := newHandlerFixture(t)

	code, resp := f.do(t, http.MethodPost, "/comments", "author", map[string]string{
		"resource_type": "blog",
		"resource_id":   "post-1",
		"content":       "Nice write-up",
	})
	if code != http.StatusOK {
		t.Fatalf("create comment failed: %d %+v", code, resp)
	}
	var comment models.Comment
	if err := json.Unmarshal(resp.Data, &comment); err != nil {
		t.Fatalf("decode comment failed: %v", err)
	}

	code, resp = f.do(t, http.MethodDelete, "/comments/"+comment.ID, "author", nil)
	if code != http.StatusOK || resp.Msg != "Deleted" {
		t.Fatalf("delete comment failed: %d %+v", code, resp)
	}
	if !strings.Contains(string(resp.Data), constants.DeleteOutcomeTombstoned) {
		t.Fatalf("expected tombstoned outcome, got %s", resp.Data)
	}

	code, resp = f.do(t, http.MethodGet, "/comments?resource_type=BLOG&resource_id=post-1", "", nil)
	if code != http.StatusOK || !strings.Contains(string(resp.Data), constants.CommentTombstone) {
		t.Fatalf("expected tombstone in listing, got %d %s", code, resp.Data)
	}

	code, _ = f.do(t, http.MethodPost, "/comments", "author", map[string]string{"resource_type": "FORUM", "resource_id": "x", "content": "hi"})
	if code != http.StatusBadRequest {
		t.Fatalf("unsupported resource type should be rejected, got %d", code)
	}
}

func TestPublicReadsHideAuthorContactDetails(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	author := &permission.Actor{ID: f.author.ID, Role: f.author.Role, Email: f.author.Email}
	admin := &permission.Actor{ID: f.admin.ID, Role: f.admin.Role, Email: f.admin.Email}

	post, err := f.blog.Create(ctx, author, service.BlogPostInput{Title: "Public", Content: "Visible body"})
	if err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	if _, err := f.blog.RequestReview(ctx, author, post.ID); err != nil {
		t.Fatalf("request review failed: %v", err)
	}
	if _, err := f.blog.Publish(ctx, admin, post.ID); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if code, resp := f.do(t, http.MethodPost, "/comments", "author", map[string]string{
		"resource_type": "BLOG",
		"resource_id":   post.ID,
		"content":       "Author note",
	}); code != http.StatusOK {
		t.Fatalf("create comment failed: %d %+v", code, resp)
	}

	for _, path := range []string{"/public/posts", "/public/posts/" + post.ID, "/comments?resource_type=BLOG&resource_id=" + post.ID} {
		code, resp := f.do(t, http.MethodGet, path, "", nil)
		if code != http.StatusOK {
			t.Fatalf("%s failed: %d %+v", path, code, resp)
		}
		body := string(resp.Data)
		if !strings.Contains(body, `"name":"author"`) {
			t.Fatalf("%s should carry the author display name, got %s", path, body)
		}
		for _, leaked := range []string{f.author.Email, `"email"`, `"role"`, `"last_login_at"`} {
			if strings.Contains(body, leaked) {
				t.Fatalf("%s leaks %s: %s", path, leaked, body)
			}
		}
	}
}
