// Package enrich 封装文章排版与配图生成两个外部协作方。
//
// 两者均为尽力而为：任何失败都降级为原文或本地占位图，不向调用方返回错误。
package enrich

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/logger"
	"github.com/portfolio-next/internal/storage"
)

const formatSystemPrompt = `You are a meticulous editor and storyteller. Take the provided blog content and:
- Remove stray symbols, repeated punctuation, and obvious formatting noise.
- Improve flow and grammar while keeping the author's voice.
- Organize the narrative for a compelling read: add headings, subheadings, bullet lists, callouts, and emphasis using Markdown where useful.
- Surface summaries or key takeaways near the top if the content benefits from it.
- Return beautiful, reader-ready Markdown only. Do not wrap with code fences.`

const illustrationPromptTemplate = "Create a modern, calm 3D illustration representing: %s. Theme: AI data engineering, pastel gradients, cinematic lighting, minimal futuristic objects on a pedestal."

const defaultFallbackImage = "/images/blog/fallback-1.svg"

const maxImageBytes = 20 << 20

var (
	// ErrDisabled 未配置增强服务
	ErrDisabled = errors.New("enrichment disabled")
	// ErrEmptyResult 上游返回空结果
	ErrEmptyResult = errors.New("enrichment returned empty result")
)

// Formatter 文本排版
type Formatter interface {
	Format(ctx context.Context, raw string) string
}

// Illustrator 配图生成
type Illustrator interface {
	Illustrate(ctx context.Context, title string) string
}

// Client OpenAI 兼容接口客户端
type Client struct {
	cfg        config.EnrichmentConfig
	httpClient *http.Client
	pick       func(n int) int
	store      storage.ImageStore
}

// NewClient 创建增强客户端
func NewClient(cfg config.EnrichmentConfig) *Client {
	timeout := cfg.TimeoutMS
	if timeout <= 0 {
		timeout = 30000
	}
	if len(cfg.FallbackImages) == 0 {
		cfg.FallbackImages = []string{defaultFallbackImage}
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Millisecond},
		pick:       rand.IntN,
	}
}

// WithImageStore 配置图片持久化
// 上游返回的临时地址或 base64 图片会转存到对象存储。
func (c *Client) WithImageStore(store storage.ImageStore) *Client {
	if c != nil {
		c.store = store
	}
	return c
}

// Enabled 是否具备调用条件
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled && strings.TrimSpace(c.cfg.APIKey) != ""
}

// Format 排版文章内容，失败返回原文
func (c *Client) Format(ctx context.Context, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	formatted, err := c.format(ctx, raw)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			logger.Warnw("enrich_format_failed", "error", err)
		}
		return raw
	}
	return formatted
}

// Illustrate 生成配图地址，失败返回随机占位图
func (c *Client) Illustrate(ctx context.Context, title string) string {
	url, err := c.illustrate(ctx, title)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			logger.Warnw("enrich_illustrate_failed", "error", err)
		}
		return c.FallbackImage()
	}
	return url
}

// FallbackImage 随机选择一张本地占位图
func (c *Client) FallbackImage() string {
	if c == nil || len(c.cfg.FallbackImages) == 0 {
		return defaultFallbackImage
	}
	idx := c.pick(len(c.cfg.FallbackImages))
	if idx < 0 || idx >= len(c.cfg.FallbackImages) {
		idx = 0
	}
	return c.cfg.FallbackImages[idx]
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (c *Client) format(ctx context.Context, raw string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	if limit := c.cfg.MaxContentLength; limit > 0 && len(raw) > limit {
		return "", fmt.Errorf("content too long for formatting: %d", len(raw))
	}
	var resp chatResponse
	err := c.postJSON(ctx, "/chat/completions", chatRequest{
		Model: c.cfg.FormatModel,
		Messages: []chatMessage{
			{Role: "system", Content: formatSystemPrompt},
			{Role: "user", Content: raw},
		},
		Temperature: c.cfg.Temperature,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResult
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResult
	}
	return content, nil
}

func (c *Client) illustrate(ctx context.Context, title string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyResult
	}
	var resp imageResponse
	err := c.postJSON(ctx, "/images/generations", imageRequest{
		Model:  c.cfg.ImageModel,
		Prompt: fmt.Sprintf(illustrationPromptTemplate, title),
		Size:   c.cfg.ImageSize,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", ErrEmptyResult
	}
	imageURL := strings.TrimSpace(resp.Data[0].URL)
	encoded := strings.TrimSpace(resp.Data[0].B64JSON)

	if encoded != "" {
		if c.store == nil {
			return "", fmt.Errorf("inline image returned without image store")
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("decode inline image: %w", err)
		}
		return c.store.PutImage(ctx, data, "image/png")
	}
	if imageURL == "" {
		return "", ErrEmptyResult
	}
	if c.store == nil {
		return imageURL, nil
	}
	data, contentType, err := c.download(ctx, imageURL)
	if err != nil {
		return "", err
	}
	return c.store.PutImage(ctx, data, contentType)
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("image download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
