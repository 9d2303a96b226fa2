package config

import (
	"fmt"
	"strings"

	"github.com/portfolio-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Session    JWTConfig        `mapstructure:"session"`
	OAuth      OAuthConfig      `mapstructure:"oauth"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Security   SecurityConfig   `mapstructure:"security"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Search     SearchConfig     `mapstructure:"search"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Blog       BlogConfig       `mapstructure:"blog"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Mode    string `mapstructure:"mode"` // debug / release
	BaseURL string `mapstructure:"base_url"`
	// ShutdownTimeoutSeconds 优雅退出等待时长
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	URL    string             `mapstructure:"url"`    // 数据库 URL（如 postgres://...、sqlite:./db/x.db），设置后覆盖 driver/dsn
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 会话令牌配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// OAuthProviderConfig 单个 OAuth 提供方配置
type OAuthProviderConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// OAuthConfig OAuth 登录配置
type OAuthConfig struct {
	GitHub          OAuthProviderConfig `mapstructure:"github"`
	Google          OAuthProviderConfig `mapstructure:"google"`
	StateTTLSeconds int                 `mapstructure:"state_ttl_seconds"`
	TimeoutMS       int                 `mapstructure:"timeout_ms"`
}

// AuthConfig 身份配置
// AdminEmails 为固定管理员邮箱列表，每次登录都会被提升为 admin。
type AuthConfig struct {
	AdminEmails []string `mapstructure:"admin_emails"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	SignInRateLimit  RateLimitConfig `mapstructure:"sign_in_rate_limit"`
	CommentRateLimit RateLimitConfig `mapstructure:"comment_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// EnrichmentConfig 内容增强（排版/配图）配置
type EnrichmentConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	BaseURL          string   `mapstructure:"base_url"`
	APIKey           string   `mapstructure:"api_key"`
	FormatModel      string   `mapstructure:"format_model"`
	ImageModel       string   `mapstructure:"image_model"`
	ImageSize        string   `mapstructure:"image_size"`
	Temperature      float64  `mapstructure:"temperature"`
	TimeoutMS        int      `mapstructure:"timeout_ms"`
	FallbackImages   []string `mapstructure:"fallback_images"`
	MaxContentLength int      `mapstructure:"max_content_length"`
}

// SearchConfig 全文检索配置
type SearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	IndexName string `mapstructure:"index_name"`
}

// StorageConfig 对象存储配置（S3 兼容，用于持久化生成的配图）
type StorageConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// BlogConfig 博客配置
type BlogConfig struct {
	ListingCacheSeconds int `mapstructure:"listing_cache_seconds"`
	ExcerptLength       int `mapstructure:"excerpt_length"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	setDefaults(viper.GetViper())

	// 环境变量支持（server.port -> SERVER_PORT）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	cfg.Auth.AdminEmails = NormalizeEmails(cfg.Auth.AdminEmails)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "portfolio.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/portfolio.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("session.secret", "change-me-in-production")
	v.SetDefault("session.expire_hours", 168)
	v.SetDefault("oauth.github.scopes", []string{"read:user", "user:email"})
	v.SetDefault("oauth.google.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("oauth.state_ttl_seconds", 600)
	v.SetDefault("oauth.timeout_ms", 5000)
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "pf")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.queues", map[string]int{
		"default":    5,
		"enrichment": 1,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.sign_in_rate_limit.window_seconds", 300)
	v.SetDefault("security.sign_in_rate_limit.max_requests", 20)
	v.SetDefault("security.sign_in_rate_limit.block_seconds", 600)
	v.SetDefault("security.comment_rate_limit.window_seconds", 60)
	v.SetDefault("security.comment_rate_limit.max_requests", 10)
	v.SetDefault("security.comment_rate_limit.block_seconds", 300)
	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.base_url", "https://api.openai.com/v1")
	v.SetDefault("enrichment.format_model", "gpt-4o-mini")
	v.SetDefault("enrichment.image_model", "gpt-image-1")
	v.SetDefault("enrichment.image_size", "1024x1024")
	v.SetDefault("enrichment.temperature", 0.2)
	v.SetDefault("enrichment.timeout_ms", 30000)
	v.SetDefault("enrichment.fallback_images", []string{
		"/images/blog/fallback-1.svg",
		"/images/blog/fallback-2.svg",
		"/images/blog/fallback-3.svg",
	})
	v.SetDefault("enrichment.max_content_length", 20000)
	v.SetDefault("search.enabled", false)
	v.SetDefault("search.url", "http://127.0.0.1:7700")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.index_name", "blog_posts")
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.bucket", "portfolio")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.key_prefix", "blog/illustrations")
	v.SetDefault("blog.listing_cache_seconds", 300)
	v.SetDefault("blog.excerpt_length", 200)
}

// NormalizeEmails 邮箱列表归一化（去空白、小写、去重）
func NormalizeEmails(emails []string) []string {
	result := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
