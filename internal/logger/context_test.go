package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCtxAttachesRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	previous := L
	L = zap.New(core)
	t.Cleanup(func() { L = previous })

	ctx := WithRequestID(context.Background(), " req-7 ")
	if got := RequestIDFromContext(ctx); got != "req-7" {
		t.Fatalf("request id want req-7 got %q", got)
	}
	Ctx(ctx).Infow("blog_published", "post_id", "p1")
	Ctx(context.Background()).Infow("no_request")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "req-7" {
		t.Fatalf("request id field missing: %v", entries[0].ContextMap())
	}
	if _, ok := entries[1].ContextMap()["request_id"]; ok {
		t.Fatalf("request id must be absent without context value")
	}
	if WithRequestID(ctx, "  ") != ctx {
		t.Fatalf("blank request id must keep the parent context")
	}
}
