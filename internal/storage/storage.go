// Package storage 持久化生成的文章配图。
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/portfolio-next/internal/config"
	"github.com/portfolio-next/internal/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const illustrationCacheControl = "public, max-age=31536000, immutable"

// ErrEmptyObject 空对象不写入
var ErrEmptyObject = errors.New("storage: empty object")

// ImageStore 图片存储
type ImageStore interface {
	PutImage(ctx context.Context, data []byte, contentType string) (string, error)
}

// Minio S3 兼容对象存储
type Minio struct {
	client        *minio.Client
	bucket        string
	keyPrefix     string
	publicBaseURL string
}

// NewMinio 创建对象存储客户端，桶不存在时尝试创建
func NewMinio(ctx context.Context, cfg config.StorageConfig) (*Minio, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("storage endpoint and bucket are required")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		logger.Infow("storage_bucket_created", "bucket", bucket)
	}

	publicBaseURL := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBaseURL == "" {
		publicBaseURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + bucket
	}
	return &Minio{
		client:        client,
		bucket:        bucket,
		keyPrefix:     strings.Trim(strings.TrimSpace(cfg.KeyPrefix), "/"),
		publicBaseURL: publicBaseURL,
	}, nil
}

// PutImage 写入图片并返回公开地址
func (m *Minio) PutImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyObject
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(data)
	}
	key := ObjectKey(m.keyPrefix, contentType)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: illustrationCacheControl,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return PublicURL(m.publicBaseURL, key), nil
}

// ObjectKey 生成对象键：<prefix>/<uuid>.<ext>
func ObjectKey(prefix, contentType string) string {
	name := uuid.NewString() + extensionFor(contentType)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// PublicURL 拼接公开访问地址
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".png"
	}
}
