package queue

import (
	"encoding/json"

	"github.com/portfolio-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskBlogEnrich 文章排版与配图任务
	TaskBlogEnrich = constants.TaskBlogEnrich
	// TaskSearchSync 检索索引同步任务
	TaskSearchSync = constants.TaskSearchSync
)

// BlogEnrichPayload 文章增强任务载荷
type BlogEnrichPayload struct {
	PostID  string `json:"post_id"`
	Version uint   `json:"version"`
}

// SearchSyncPayload 检索同步任务载荷
// Remove 为 true 时从索引中删除文档。
type SearchSyncPayload struct {
	PostID string `json:"post_id"`
	Remove bool   `json:"remove"`
}

// NewBlogEnrichTask 创建文章增强任务
func NewBlogEnrichTask(payload BlogEnrichPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBlogEnrich, body), nil
}

// NewSearchSyncTask 创建检索同步任务
func NewSearchSyncTask(payload SearchSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSearchSync, body), nil
}
