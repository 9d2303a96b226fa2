package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/provider"
	"github.com/portfolio-next/internal/queue"
	"github.com/portfolio-next/internal/search"
	"github.com/portfolio-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskBlogEnrich, c.handleBlogEnrich)
	mux.HandleFunc(queue.TaskSearchSync, c.handleSearchSync)
}

func (c *Consumer) handleBlogEnrich(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_blog_enrich_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BlogEnrichPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_blog_enrich_unmarshal_failed", "error", err)
		return err
	}
	postID := strings.TrimSpace(payload.PostID)
	if postID == "" {
		logger.Debugw("worker_blog_enrich_skip_invalid_payload", "post_id", payload.PostID)
		return nil
	}
	if c.BlogService == nil {
		logger.Warnw("worker_blog_enrich_skip_blog_service_nil", "post_id", postID)
		return nil
	}
	if err := c.BlogService.EnrichPost(ctx, postID, payload.Version); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_blog_enrich_skip_post_not_found", "post_id", postID)
			return nil
		default:
			logger.Warnw("worker_blog_enrich_failed", "post_id", postID, "version", payload.Version, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleSearchSync(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_search_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SearchSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_search_sync_unmarshal_failed", "error", err)
		return err
	}
	postID := strings.TrimSpace(payload.PostID)
	if postID == "" {
		logger.Debugw("worker_search_sync_skip_invalid_payload", "post_id", payload.PostID)
		return nil
	}
	if c.BlogService == nil {
		logger.Warnw("worker_search_sync_skip_blog_service_nil", "post_id", postID)
		return nil
	}
	if err := c.BlogService.SyncSearch(ctx, postID, payload.Remove); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_search_sync_skip_post_not_found", "post_id", postID)
			return nil
		case errors.Is(err, search.ErrUnavailable):
			logger.Warnw("worker_search_sync_index_unavailable", "post_id", postID, "remove", payload.Remove)
			return err
		default:
			logger.Warnw("worker_search_sync_failed", "post_id", postID, "remove", payload.Remove, "error", err)
			return err
		}
	}
	return nil
}
