// Package search 维护已发布文章的全文检索索引。
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/portfolio-next/internal/constants"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/models"

	meili "github.com/meilisearch/meilisearch-go"
)

// ErrUnavailable 检索服务不可用
var ErrUnavailable = errors.New("search unavailable")

// PostDocument 索引文档
type PostDocument struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Excerpt         string `json:"excerpt"`
	Body            string `json:"body"`
	AuthorID        string `json:"authorId"`
	AuthorName      string `json:"authorName"`
	IllustrationURL string `json:"illustrationUrl"`
	PublishedAt     int64  `json:"publishedAt"`
}

// Hit 检索结果
type Hit struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Snippet         string `json:"snippet"`
	IllustrationURL string `json:"illustration_url"`
	PublishedAt     int64  `json:"published_at"`
}

// Index 检索索引接口
type Index interface {
	Enabled() bool
	Upsert(ctx context.Context, doc PostDocument) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit, offset int) ([]Hit, int64, error)
}

// DocumentFromPost 由已发布文章构造索引文档
func DocumentFromPost(post *models.BlogPost, plainBody string) PostDocument {
	doc := PostDocument{
		ID:              post.ID,
		Title:           post.Title,
		Excerpt:         post.Excerpt,
		Body:            plainBody,
		AuthorID:        post.AuthorID,
		IllustrationURL: post.IllustrationURL,
	}
	if post.Author != nil {
		doc.AuthorName = post.Author.Name
	}
	if post.PublishedAt != nil {
		doc.PublishedAt = post.PublishedAt.Unix()
	}
	return doc
}

// Disabled 未启用检索时的空实现
type Disabled struct{}

// Enabled 恒为 false
func (Disabled) Enabled() bool { return false }

// Upsert 空操作
func (Disabled) Upsert(context.Context, PostDocument) error { return nil }

// Remove 空操作
func (Disabled) Remove(context.Context, string) error { return nil }

// Search 始终不可用
func (Disabled) Search(context.Context, string, int, int) ([]Hit, int64, error) {
	return nil, 0, ErrUnavailable
}

// Meili Meilisearch 实现
type Meili struct {
	client  meili.ServiceManager
	index   string
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili 创建 Meilisearch 索引，初次连接失败时仍返回实例并在后台重试
func NewMeili(url, apiKey, index string) *Meili {
	if strings.TrimSpace(index) == "" {
		index = "blog_posts"
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		index:  index,
		done:   make(chan struct{}),
	}
	if _, err := m.client.Health(); err != nil {
		logger.Warnw("search_meili_unavailable", "url", url, "error", err)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}
	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: m.index, PrimaryKey: "id"}); err != nil {
		logger.Debugw("search_meili_create_index", "index", m.index, "error", err)
	}
	index := m.client.Index(m.index)
	searchable := []string{"title", "excerpt", "body", "authorName"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		logger.Warnw("search_meili_searchable_failed", "index", m.index, "error", err)
	}
	sortable := []string{"publishedAt"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		logger.Warnw("search_meili_sortable_failed", "index", m.index, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				logger.Infow("search_meili_recovered", "index", m.index)
				m.configureIndex()
			}
		}
	}
}

// Close 停止健康检查
func (m *Meili) Close() {
	close(m.done)
}

// Enabled 服务是否可用
func (m *Meili) Enabled() bool {
	return m != nil && m.healthy.Load()
}

// Upsert 写入或更新文档
func (m *Meili) Upsert(ctx context.Context, doc PostDocument) error {
	if !m.Enabled() {
		return ErrUnavailable
	}
	_, err := m.client.Index(m.index).AddDocuments([]PostDocument{doc}, nil)
	return err
}

// Remove 删除文档
func (m *Meili) Remove(ctx context.Context, id string) error {
	if !m.Enabled() {
		return ErrUnavailable
	}
	_, err := m.client.Index(m.index).DeleteDocument(id, nil)
	return err
}

// Search 检索已发布文章
func (m *Meili) Search(ctx context.Context, query string, limit, offset int) ([]Hit, int64, error) {
	if !m.Enabled() {
		return nil, 0, ErrUnavailable
	}
	if limit <= 0 {
		limit = 20
	}
	resp, err := m.client.Index(m.index).Search(query, &meili.SearchRequest{
		Limit:                 int64(limit),
		Offset:                int64(offset),
		AttributesToHighlight: []string{"title", "excerpt"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}
	hits := make([]Hit, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		hits = append(hits, decodeHit(hit))
	}
	return hits, resp.EstimatedTotalHits, nil
}

func decodeHit(hit meili.Hit) Hit {
	result := Hit{
		ID:              decodeString(hit, "id"),
		Title:           firstNonBlank(decodeFormatted(hit, "title"), decodeString(hit, "title")),
		Snippet:         firstNonBlank(decodeFormatted(hit, "excerpt"), decodeString(hit, "excerpt")),
		IllustrationURL: decodeString(hit, "illustrationUrl"),
	}
	if raw, ok := hit["publishedAt"]; ok {
		_ = json.Unmarshal(raw, &result.PublishedAt)
	}
	return result
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormatted(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IsPublished 文章是否应出现在索引中
func IsPublished(post *models.BlogPost) bool {
	return post != nil && post.Status == constants.BlogStatusPublished
}
