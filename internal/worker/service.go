package worker

import (
	"context"
	"errors"
	"time"

	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	enrichRequeueInterval = 5 * time.Minute
	enrichRequeueBatch    = 50
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.BlogService != nil {
		go s.runEnrichRequeueLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runEnrichRequeueLoop 周期补投丢失的增强任务（入队失败只记日志）
func (s *Service) runEnrichRequeueLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.BlogService == nil {
		return
	}
	runOnce := func() {
		count, err := s.consumer.BlogService.RequeueUnenriched(ctx, enrichRequeueBatch)
		if err != nil {
			logger.Warnw("worker_enrich_requeue_failed", "error", err)
			return
		}
		if count > 0 {
			logger.Infow("worker_enrich_requeued", "count", count)
		}
	}
	runOnce()

	ticker := time.NewTicker(enrichRequeueInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
